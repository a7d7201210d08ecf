// Package memory provides a process-local storage.VectorStore.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
)

// Store keeps chunk records in a map guarded by a read-write mutex.
type Store struct {
	mu      sync.RWMutex
	records map[string]*core.ChunkRecord
	dim     int
	closed  bool
}

var _ storage.VectorStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[string]*core.ChunkRecord)}
}

// Upsert stores copies of records keyed by chunk id.
func (s *Store) Upsert(ctx context.Context, records ...*core.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrStorageClosed
	}

	dim := s.dim
	for _, r := range records {
		if r.ChunkID == "" || len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %q has no id or vector", storage.ErrInvalidQuery, r.ChunkID)
		}
		if dim == 0 {
			dim = len(r.Vector)
		} else if len(r.Vector) != dim {
			return fmt.Errorf("%w: %s has %d dimensions, store has %d",
				storage.ErrDimensionMismatch, r.ChunkID, len(r.Vector), dim)
		}
	}

	s.dim = dim
	for _, r := range records {
		cp := *r
		cp.Vector = slices.Clone(r.Vector)
		cp.Levels = r.Levels.Clone()
		s.records[r.ChunkID] = &cp
	}
	return nil
}

// Search scores every record and returns the topK best, ties by chunk id.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]*core.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, storage.ErrStorageClosed
	}
	results := make([]*core.SearchResult, 0, len(s.records))
	for _, r := range s.records {
		results = append(results, &core.SearchResult{
			Record: r,
			Score:  storage.CosineSimilarity(vector, r.Vector),
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.Record.ChunkID, b.Record.ChunkID)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteFile removes every record of filename.
func (s *Store) DeleteFile(ctx context.Context, filename string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, storage.ErrStorageClosed
	}
	removed := 0
	for id, r := range s.records {
		if r.Filename == filename {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, storage.ErrStorageClosed
	}
	return len(s.records), nil
}

// Close drops all records.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}
