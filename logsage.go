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

// Package logsage answers questions about log files with cited evidence.
//
// A Service wires the full stack together: parsing, chunking, embedding,
// vector storage, retrieval, conversation history and answer synthesis.
//
//	cfg, _ := config.Load("")
//	svc, _ := logsage.New(ctx, cfg)
//	defer svc.Close()
//
//	res, _ := svc.IngestFile(ctx, "/var/log/app.log")
//	answer, _ := svc.Analyze(ctx, "why did checkout fail?", 0, "")
package logsage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/logsage/ai"
	"github.com/poiesic/logsage/ai/factory"
	"github.com/poiesic/logsage/analysis"
	"github.com/poiesic/logsage/chunker"
	"github.com/poiesic/logsage/config"
	"github.com/poiesic/logsage/conversation"
	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/embedding"
	"github.com/poiesic/logsage/ingestion"
	"github.com/poiesic/logsage/retrieval"
	"github.com/poiesic/logsage/storage"
	"github.com/poiesic/logsage/storage/badger"
	"github.com/poiesic/logsage/storage/memory"
	"github.com/poiesic/logsage/storage/qdrant"
)

// Service is the ingest and analyze entry point.
type Service struct {
	config        *config.Config
	provider      ai.AIProvider
	backend       *badger.Backend
	store         storage.VectorStore
	convRepo      *badger.ConversationRepository
	embedder      *embedding.Pipeline
	ingest        *ingestion.Pipeline
	conversations *conversation.Store
	synthesizer   *analysis.Synthesizer
	stopSweeper   func()
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	provider ai.AIProvider
	store    storage.VectorStore
	logger   *slog.Logger
}

// WithProvider uses provider instead of building one from the configuration.
// The Service closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithVectorStore uses store instead of the configured backend.
// The Service closes it on Close.
func WithVectorStore(store storage.VectorStore) Option {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// New builds a Service from cfg. A nil cfg uses config.Default().
func New(ctx context.Context, cfg *config.Config, opts ...Option) (svc *Service, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	s := &Service{config: cfg, logger: options.logger}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.provider = options.provider
	if s.provider == nil {
		if s.provider, err = factory.New(cfg.AIConfig()); err != nil {
			return nil, err
		}
	}

	s.store = options.store
	if s.store == nil {
		if err = s.openStore(); err != nil {
			return nil, err
		}
	}

	if s.embedder, err = embedding.NewPipeline(s.provider.Embedder(), cfg.EmbeddingConfig(),
		embedding.WithLogger(s.logger)); err != nil {
		return nil, err
	}

	chk, err := chunker.New(cfg.ChunkerConfig(), chunker.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	if s.ingest, err = ingestion.NewPipeline(chk, s.embedder, s.store,
		ingestion.WithMaxFileSize(cfg.MaxFileSizeBytes()),
		ingestion.WithWarnFileSize(cfg.WarnFileSizeBytes()),
		ingestion.WithLogger(s.logger)); err != nil {
		return nil, err
	}

	retriever, err := retrieval.NewRetriever(s.store, s.embedder, retrieval.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	convOpts := []conversation.Option{
		conversation.WithMaxTurns(cfg.Conversation.MaxTurns),
		conversation.WithLogger(s.logger),
	}
	if s.convRepo != nil {
		convOpts = append(convOpts, conversation.WithPersistence(s.convRepo))
	}
	if s.conversations, err = conversation.New(convOpts...); err != nil {
		return nil, err
	}
	if _, err = s.conversations.Restore(ctx); err != nil {
		return nil, err
	}
	if ttl := cfg.Conversation.IdleTTL; ttl > 0 {
		s.stopSweeper = s.conversations.StartSweeper(sweepInterval(ttl), ttl)
	}

	if s.synthesizer, err = analysis.NewSynthesizer(retriever, s.provider.Reasoner(), s.conversations,
		analysis.WithConfig(cfg.AnalysisConfig()),
		analysis.WithLogger(s.logger)); err != nil {
		return nil, err
	}

	s.logger.Info("logsage ready",
		"vector_store", cfg.VectorStore,
		"embedding_concurrency", s.embedder.Concurrency())
	return s, nil
}

func (s *Service) openStore() error {
	cfg := s.config
	switch cfg.VectorStore {
	case config.StoreMemory:
		s.store = memory.New()
	case config.StoreQdrant:
		store, err := qdrant.New(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		}, qdrant.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.store = store
	default:
		backend, err := badger.OpenBackend(filepath.Join(cfg.DataDir, "db"), false)
		if err != nil {
			return err
		}
		s.backend = backend
		store, err := badger.NewChunkStore(backend)
		if err != nil {
			return err
		}
		s.store = store
	}

	// Conversation snapshots need the embedded database.
	if s.backend != nil && cfg.Conversation.Persist {
		repo, err := badger.NewConversationRepository(s.backend)
		if err != nil {
			return err
		}
		s.convRepo = repo
	}
	return nil
}

// sweepInterval checks four times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}

// Ingest stores one file's chunks, replacing any earlier upload with the
// same filename.
func (s *Service) Ingest(ctx context.Context, data []byte, filename string, opts ...ingestion.IngestOption) (*ingestion.IngestResult, error) {
	return s.ingest.Ingest(ctx, data, filename, opts...)
}

// IngestFile ingests the file at path under its base name. Oversize files
// are rejected before they are read.
func (s *Service) IngestFile(ctx context.Context, path string, opts ...ingestion.IngestOption) (*ingestion.IngestResult, error) {
	return s.ingest.IngestFile(ctx, path, filepath.Base(path), opts...)
}

// Analyze answers question. A non-positive topK uses the configured
// default; an empty conversationID starts a new conversation.
func (s *Service) Analyze(ctx context.Context, question string, topK int, conversationID string) (*core.AnalysisResult, error) {
	return s.synthesizer.Analyze(ctx, question, topK, conversationID)
}

// ResetConversation forgets a conversation's history.
func (s *Service) ResetConversation(ctx context.Context, conversationID string) bool {
	return s.conversations.Reset(ctx, conversationID)
}

// Conversation returns a copy of a conversation's history.
func (s *Service) Conversation(conversationID string) (*core.Conversation, error) {
	return s.conversations.Get(conversationID)
}

// ChunkCount returns the number of stored chunks.
func (s *Service) ChunkCount(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// Config returns the effective configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// Close releases every resource. It is safe to call on a partially
// constructed Service.
func (s *Service) Close() error {
	var errs []error
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	if s.embedder != nil {
		s.embedder.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if s.convRepo != nil {
		if err := s.convRepo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing vector store", "err", err)
			errs = append(errs, err)
		}
	}
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("closing logsage: %w", errors.Join(errs...))
	}
	return nil
}
