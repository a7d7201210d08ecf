package ingestion

import "errors"

var (
	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrEmbedderRequired is returned when an embedding pipeline is not provided.
	ErrEmbedderRequired = errors.New("embedding pipeline required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")
)
