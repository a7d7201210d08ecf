package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery indicates invalid query parameters.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// store's established dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnavailable indicates the store could not be reached at all.
	ErrUnavailable = errors.New("vector store unavailable")
)
