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

// Package storage defines the persistence abstractions used by logsage.
//
// # Vector Stores
//
// VectorStore holds one ChunkRecord per chunk id together with its
// embedding. Three implementations exist:
//
//   - storage/badger: embedded BadgerDB with brute-force cosine search
//   - storage/qdrant: a Qdrant collection over its REST API
//   - storage/memory: a map guarded by a mutex, for tests and one-shot runs
//
// Search never applies a score cutoff; callers decide what is relevant.
//
// # Conversation Snapshots
//
// ConversationStore persists conversation histories so they survive a
// restart. Only storage/badger implements it.
//
// # Record Encoding
//
// Codec encodes records for stores that keep raw bytes. Vectors are stored
// as little-endian float32 values and the remaining fields as
// zstd-compressed JSON.
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout
// support. Network-backed stores honor the context deadline on every
// request.
package storage
