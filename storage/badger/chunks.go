// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
)

// ChunkStore implements storage.VectorStore for BadgerDB.
// Search is a brute-force scan scoring every record by cosine similarity,
// which is adequate for the few thousand chunks a debugging session holds.
type ChunkStore struct {
	backend     *Backend
	codec       *storage.Codec
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.VectorStore = (*ChunkStore)(nil)

// NewChunkStore creates a ChunkStore on backend. The caller keeps ownership
// of the backend and must close it after the store.
func NewChunkStore(backend *Backend) (*ChunkStore, error) {
	codec, err := storage.NewCodec()
	if err != nil {
		return nil, err
	}
	return &ChunkStore{
		backend: backend,
		codec:   codec,
		logger:  backend.logger.With("store", "chunks"),
	}, nil
}

// Close releases the codec, and the backend when the store owns it.
func (s *ChunkStore) Close() error {
	s.codec.Close()
	if s.ownsBackend {
		return s.backend.Close()
	}
	return nil
}

// Upsert stores records, replacing any existing record with the same chunk id.
// All records in one call must share the dimension of previously stored vectors.
func (s *ChunkStore) Upsert(ctx context.Context, records ...*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		dim, err := readDimension(tx)
		if err != nil {
			return err
		}

		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if record.ChunkID == "" || len(record.Vector) == 0 {
				return fmt.Errorf("%w: record %q has no id or vector", storage.ErrInvalidQuery, record.ChunkID)
			}
			if dim == 0 {
				dim = len(record.Vector)
				if err := writeDimension(tx, dim); err != nil {
					return err
				}
			} else if len(record.Vector) != dim {
				return fmt.Errorf("%w: %s has %d dimensions, store has %d",
					storage.ErrDimensionMismatch, record.ChunkID, len(record.Vector), dim)
			}

			key := makeChunkKey(record.ChunkID)
			old, err := s.readChunk(tx, key)
			if err != nil {
				return err
			}
			if old != nil && old.Filename != record.Filename {
				if err := tx.Delete(makeChunkFileKey(old.Filename, old.ChunkID)); err != nil {
					return err
				}
			}

			value, err := s.codec.MarshalChunkRecord(record)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
			if err := tx.Set(makeChunkFileKey(record.Filename, record.ChunkID), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Search scores every stored record against vector and returns the topK best.
// Ties are broken by chunk id so results are deterministic.
func (s *ChunkStore) Search(ctx context.Context, vector []float32, topK int) ([]*core.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	results := make([]*core.SearchResult, 0, topK)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.ChunkRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = s.codec.UnmarshalChunkRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(record.Vector) == 0 {
				continue
			}

			results = append(results, &core.SearchResult{
				Record: record,
				Score:  storage.CosineSimilarity(vector, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteFile removes every chunk of filename.
func (s *ChunkStore) DeleteFile(ctx context.Context, filename string) (int, error) {
	if s.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	removed := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := makePartialChunkFileKey(filename)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var indexKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			indexKeys = append(indexKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, indexKey := range indexKeys {
			chunkID := string(bytes.TrimPrefix(indexKey, prefix))
			if err := tx.Delete(makeChunkKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(indexKey); err != nil {
				return err
			}
			removed++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}

	s.logger.Debug("deleted file chunks", "filename", filename, "removed", removed)
	return removed, nil
}

// Count returns the number of stored chunk records.
func (s *ChunkStore) Count(ctx context.Context) (int, error) {
	if s.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

func (s *ChunkStore) readChunk(tx *badger.Txn, key []byte) (*core.ChunkRecord, error) {
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var record *core.ChunkRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = s.codec.UnmarshalChunkRecord(val)
		return err
	})
	return record, err
}

func readDimension(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(dimensionKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var dim int
	err = item.Value(func(val []byte) error {
		if len(val) != 4 {
			return storage.ErrTruncatedData
		}
		dim = int(binary.BigEndian.Uint32(val))
		return nil
	})
	return dim, err
}

func writeDimension(tx *badger.Txn, dim int) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(dim))
	return tx.Set([]byte(dimensionKey), buf)
}

// sortResults orders by score descending, then chunk id ascending.
func sortResults(results []*core.SearchResult) {
	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return strings.Compare(a.Record.ChunkID, b.Record.ChunkID)
	})
}
