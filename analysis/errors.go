package analysis

import "errors"

var (
	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrReasonerRequired is returned when no reasoner is provided.
	ErrReasonerRequired = errors.New("reasoner required")

	// ErrConversationsRequired is returned when no conversation store is provided.
	ErrConversationsRequired = errors.New("conversation store required")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrMalformedResponse marks a model reply that could not be parsed
	// into an answer.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrUnknownChunk marks a reply whose prose names chunk ids that were
	// not part of the retrieved evidence.
	ErrUnknownChunk = errors.New("reply references chunks that were not retrieved")

	// ErrReasoningFailed wraps errors from the reasoning service.
	ErrReasoningFailed = errors.New("reasoning service call failed")
)
