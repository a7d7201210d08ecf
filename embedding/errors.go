package embedding

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrAllFailed is returned when every text in a batch failed to embed,
	// which indicates the embedding service is unavailable.
	ErrAllFailed = errors.New("all embedding calls failed")
)
