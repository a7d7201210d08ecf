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

package retrieval

import (
	"context"
	"log/slog"

	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
)

// QueryEmbedder turns a question into a vector.
// embedding.Pipeline satisfies it.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs top-K semantic retrieval over a vector store.
type Retriever struct {
	store    storage.VectorStore
	embedder QueryEmbedder
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retrieval")
		return nil
	}
}

// NewRetriever creates a new retriever.
func NewRetriever(store storage.VectorStore, embedder QueryEmbedder, opts ...Option) (*Retriever, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		store:    store,
		embedder: embedder,
		logger:   slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Retrieve embeds question and returns up to topK chunks, best first.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]*core.SearchResult, error) {
	return r.RetrieveWithMonitor(ctx, question, topK, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, question string, topK int, monitor Monitor) ([]*core.SearchResult, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(question, topK)

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		r.logger.Error("error generating embedding for question", "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	results, err := r.Search(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	for i, result := range results {
		monitor.Hit(i+1, result)
	}
	monitor.Finish(results)
	return results, nil
}

// Search returns up to topK chunks nearest to vector with no score cutoff.
func (r *Retriever) Search(ctx context.Context, vector []float32, topK int) ([]*core.SearchResult, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}

	results, err := r.store.Search(ctx, vector, topK)
	if err != nil {
		r.logger.Error("error querying vector store", "err", err)
		return nil, err
	}
	if results == nil {
		results = []*core.SearchResult{}
	}
	r.logger.Debug("retrieved chunks", "requested", topK, "returned", len(results))
	return results, nil
}
