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

package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/logsage/ai"
)

// Pipeline embeds batches of texts over a bounded worker pool.
// A Pipeline is safe for concurrent use; concurrent batches share the pool,
// so Concurrency bounds the total number of in-flight embedding calls.
type Pipeline struct {
	embedder ai.Embedder
	pool     *ants.Pool
	config   *Config
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "embedding")
		return nil
	}
}

// NewPipeline creates a pipeline for embedder. A nil config uses DefaultConfig.
func NewPipeline(embedder ai.Embedder, config *Config, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder: embedder,
		config:   config,
		logger:   slog.Default().With("component", "embedding"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(config.Concurrency)
	if err != nil {
		return nil, err
	}
	p.pool = pool
	return p, nil
}

// Result holds the outcome of one batch.
type Result struct {
	// Vectors is index-aligned with the input; entries for failed texts are nil.
	Vectors [][]float32
	// Failed lists the input indices that exhausted their attempts, ascending.
	Failed []int
}

// Succeeded returns the number of texts that produced a vector.
func (r *Result) Succeeded() int {
	return len(r.Vectors) - len(r.Failed)
}

type callOptions struct {
	progress Progress
}

// CallOption configures a single EmbedAll call.
type CallOption func(*callOptions)

// ReportTo sends one increment per completed text, successful or not.
func ReportTo(progress Progress) CallOption {
	return func(o *callOptions) {
		o.progress = progress
	}
}

// EmbedAll embeds texts and returns vectors in input order.
// Individual failures are reported in Result.Failed. The error is non-nil
// only when ctx ends before the batch completes, or when every text failed
// (ErrAllFailed); the partial Result is returned in both cases.
func (p *Pipeline) EmbedAll(ctx context.Context, texts []string, opts ...CallOption) (*Result, error) {
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	result := &Result{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return result, nil
	}

	errs := make([]error, len(texts))
	start := time.Now()

	var wg sync.WaitGroup
	for i := range texts {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			result.Vectors[i], errs[i] = p.embedOne(ctx, texts[i])
			if co.progress != nil {
				co.progress.Increment(1)
			}
		}
		if err := p.pool.Submit(task); err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submitting embedding task: %w", err)
		}
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			result.Vectors[i] = nil
			result.Failed = append(result.Failed, i)
			p.logger.Warn("dropping text after failed embedding", "index", i, "err", err)
		}
	}

	p.logger.Debug("embedded batch",
		"texts", len(texts),
		"failed", len(result.Failed),
		"elapsed", time.Since(start))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Failed) == len(texts) {
		return result, fmt.Errorf("%w: %w", ErrAllFailed, errs[0])
	}
	return result, nil
}

// Embed embeds a single text, such as a question, with the same retry and
// timeout policy as batch tasks. It does not use the pool.
func (p *Pipeline) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embedOne(ctx, text)
}

func (p *Pipeline) embedOne(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		v, err := p.embedder.EmbedText(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ai.ErrEmptyEmbedding
		}
		vector = v
		return nil
	}, p.config.MaxAttempts, p.config.RetryDelay, p.config.CallTimeout)
	if err != nil {
		return nil, err
	}
	if p.config.Normalize {
		vector = NormalizeVector(vector)
	}
	return vector, nil
}

// Concurrency returns the pool size.
func (p *Pipeline) Concurrency() int {
	return p.pool.Cap()
}

// Release stops the worker pool and waits for workers to exit.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool == nil {
		return
	}
	if err := p.pool.ReleaseTimeout(5 * time.Second); err != nil {
		p.logger.Warn("worker pool did not stop in time", "err", err)
	}
}
