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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/logsage/chunker"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/embedding"
	"github.com/poiesic/logsage/parser"
	"github.com/poiesic/logsage/storage"
)

const (
	megabyte = 1024 * 1024

	// DefaultMaxFileSize is the hard upload limit.
	DefaultMaxFileSize = 50 * megabyte
	// DefaultWarnFileSize is the size above which a warning is logged and reported.
	DefaultWarnFileSize = 10 * megabyte
)

// Embedder embeds a batch of texts in input order.
// embedding.Pipeline satisfies it.
type Embedder interface {
	EmbedAll(ctx context.Context, texts []string, opts ...embedding.CallOption) (*embedding.Result, error)
}

// Pipeline orchestrates parsing, chunking, embedding and storage of log files.
type Pipeline struct {
	parser      *parser.Parser
	chunker     *chunker.Chunker
	embedder    Embedder
	store       storage.VectorStore
	maxFileSize int64
	warnSize    int64
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithMaxFileSize sets the hard size limit in bytes.
// A non-positive value disables the limit.
func WithMaxFileSize(bytes int64) Option {
	return func(p *Pipeline) error {
		p.maxFileSize = bytes
		return nil
	}
}

// WithWarnFileSize sets the size in bytes above which a warning is emitted.
// A non-positive value disables the warning.
func WithWarnFileSize(bytes int64) Option {
	return func(p *Pipeline) error {
		p.warnSize = bytes
		return nil
	}
}

// WithParser replaces the default parser.
func WithParser(ps *parser.Parser) Option {
	return func(p *Pipeline) error {
		if ps != nil {
			p.parser = ps
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(chk *chunker.Chunker, embedder Embedder, store storage.VectorStore, opts ...Option) (*Pipeline, error) {
	if chk == nil {
		return nil, ErrChunkerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		chunker:     chk,
		embedder:    embedder,
		store:       store,
		maxFileSize: DefaultMaxFileSize,
		warnSize:    DefaultWarnFileSize,
		logger:      slog.Default().With("component", "ingestion"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	if p.parser == nil {
		p.parser = parser.New(parser.WithLogger(p.logger))
	}
	return p, nil
}

// IngestResult reports what one ingest produced.
type IngestResult struct {
	Filename         string        `json:"filename" yaml:"filename"`
	ChunksCreated    int           `json:"chunks_created" yaml:"chunks_created"`
	TotalChunks      int           `json:"total_chunks" yaml:"total_chunks"`     // before the per-file cap
	DroppedByCap     int           `json:"dropped_by_cap" yaml:"dropped_by_cap"` // removed by the per-file cap
	FailedEmbeddings []string      `json:"failed_embeddings,omitempty" yaml:"failed_embeddings,omitempty"`
	Warnings         []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Stats            parser.Stats  `json:"stats" yaml:"stats"`
	Elapsed          time.Duration `json:"elapsed" yaml:"elapsed"`
}

type ingestOptions struct {
	progress func(total int) embedding.Progress
	format   parser.Format
}

// IngestOption configures a single Ingest call.
type IngestOption func(*ingestOptions)

// WithProgress reports per-chunk embedding progress. newProgress is called
// once, after chunking, with the number of chunks about to be embedded.
func WithProgress(newProgress func(total int) embedding.Progress) IngestOption {
	return func(o *ingestOptions) {
		o.progress = newProgress
	}
}

// WithFormat skips detection and parses with the named format.
func WithFormat(format parser.Format) IngestOption {
	return func(o *ingestOptions) {
		o.format = format
	}
}

// IngestFile checks the file size before reading it, then ingests its
// contents under its base name.
func (p *Pipeline) IngestFile(ctx context.Context, path, filename string, opts ...IngestOption) (*IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := core.CheckSize(info.Size(), p.maxFileSize); err != nil {
		p.logger.Warn("rejected oversize file", "path", path, "bytes", info.Size(), "limit", p.maxFileSize)
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Ingest(ctx, data, filename, opts...)
}

// Ingest parses, chunks, embeds and stores one file. Chunks previously
// stored for filename are replaced.
func (p *Pipeline) Ingest(ctx context.Context, data []byte, filename string, opts ...IngestOption) (*IngestResult, error) {
	var cfg ingestOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	start := time.Now()
	logger := p.logger.With("filename", filename)

	if err := core.CheckSize(int64(len(data)), p.maxFileSize); err != nil {
		logger.Warn("rejected oversize file", "bytes", len(data), "limit", p.maxFileSize)
		return nil, err
	}
	if err := core.ValidateInput(data, filename, p.maxFileSize); err != nil {
		return nil, err
	}

	result := &IngestResult{Filename: filename}
	if p.warnSize > 0 && int64(len(data)) > p.warnSize {
		msg := fmt.Sprintf("file is %.1f MB, above the %.1f MB warning threshold",
			float64(len(data))/megabyte, float64(p.warnSize)/megabyte)
		logger.Warn("large file", "bytes", len(data), "warn_bytes", p.warnSize)
		result.Warnings = append(result.Warnings, msg)
	}

	var (
		doc *parser.Document
		err error
	)
	if cfg.format != "" {
		doc, err = p.parser.ParseAs(data, cfg.format)
	} else {
		doc, err = p.parser.Parse(data)
	}
	if err != nil {
		return nil, err
	}
	entries := doc.Collect()
	result.Stats = parser.ComputeStats(doc.Format, entries)

	chunked := p.chunker.Chunk(filename, entries)
	result.TotalChunks = chunked.Total
	result.DroppedByCap = len(chunked.Dropped)
	if result.DroppedByCap > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("kept %d of %d chunks; lowest-priority chunks were dropped", len(chunked.Chunks), chunked.Total))
	}

	logger.Info("parsed log file",
		"format", doc.Format,
		"entries", len(entries),
		"chunks", len(chunked.Chunks),
		"dropped_by_cap", result.DroppedByCap)

	if len(chunked.Chunks) == 0 {
		result.Elapsed = time.Since(start)
		return result, nil
	}

	texts := make([]string, len(chunked.Chunks))
	for i, c := range chunked.Chunks {
		texts[i] = c.Text
	}

	var callOpts []embedding.CallOption
	if cfg.progress != nil {
		if progress := cfg.progress(len(texts)); progress != nil {
			callOpts = append(callOpts, embedding.ReportTo(progress))
		}
	}
	embedded, err := p.embedder.EmbedAll(ctx, texts, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("embedding chunks of %s: %w", filename, err)
	}

	records := make([]*core.ChunkRecord, 0, embedded.Succeeded())
	for i, c := range chunked.Chunks {
		if embedded.Vectors[i] == nil {
			result.FailedEmbeddings = append(result.FailedEmbeddings, c.ID)
			continue
		}
		records = append(records, core.RecordFromChunk(c, embedded.Vectors[i]))
	}
	if n := len(result.FailedEmbeddings); n > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d chunks failed to embed and were skipped", n))
	}

	removed, err := p.store.DeleteFile(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("replacing chunks of %s: %w", filename, err)
	}
	if removed > 0 {
		logger.Debug("removed previous chunks", "count", removed)
	}
	if err := p.store.Upsert(ctx, records...); err != nil {
		return nil, fmt.Errorf("storing chunks of %s: %w", filename, err)
	}

	result.ChunksCreated = len(records)
	result.Elapsed = time.Since(start)
	logger.Info("ingested log file",
		"chunks_created", result.ChunksCreated,
		"failed_embeddings", len(result.FailedEmbeddings),
		"elapsed", result.Elapsed)
	return result, nil
}
