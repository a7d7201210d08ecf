package storage

import (
	"context"

	"github.com/poiesic/logsage/core"
)

// VectorStore persists chunk records and answers nearest-neighbour queries.
type VectorStore interface {
	// Upsert inserts or replaces records keyed by ChunkID.
	// Records without a vector are rejected with ErrInvalidQuery.
	Upsert(ctx context.Context, records ...*core.ChunkRecord) error

	// Search returns up to topK records ordered by cosine similarity, highest
	// first. There is no score cutoff. An empty store yields an empty slice.
	Search(ctx context.Context, vector []float32, topK int) ([]*core.SearchResult, error)

	// DeleteFile removes every record that came from filename and returns
	// how many were removed when the store can tell.
	DeleteFile(ctx context.Context, filename string) (int, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// ConversationStore persists conversation histories.
type ConversationStore interface {
	// SaveConversation writes or replaces the snapshot for conv.ID.
	SaveConversation(ctx context.Context, conv *core.Conversation) error

	// LoadConversations returns every stored conversation.
	LoadConversations(ctx context.Context) ([]*core.Conversation, error)

	// DeleteConversation removes a snapshot. Deleting an unknown id is not an error.
	DeleteConversation(ctx context.Context, id string) error
}
