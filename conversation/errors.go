package conversation

import "errors"

var (
	// ErrNotFound is returned when a conversation id is unknown.
	ErrNotFound = errors.New("conversation not found")

	// ErrInvalidID is returned for an empty conversation id.
	ErrInvalidID = errors.New("conversation id must not be empty")
)
