package retrieval

import "errors"

var (
	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when a query embedder is not provided.
	ErrEmbedderRequired = errors.New("query embedder required")

	// ErrInvalidTopK is returned when topK is not positive.
	ErrInvalidTopK = errors.New("topK must be positive")
)
