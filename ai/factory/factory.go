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

// Package factory assembles an ai.AIProvider from configuration.
package factory

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/logsage/ai"
	"github.com/poiesic/logsage/ai/ollama"
	"github.com/poiesic/logsage/ai/openai"
)

// Provider pairs an embedder with a reasoner.
type Provider struct {
	embedder ai.Embedder
	reasoner ai.Reasoner
	backend  ai.InferenceProvider
	logger   *slog.Logger
}

// New builds the embedder and reasoner selected by config.
// Embeddings come from the configured embedding service regardless of the
// reasoning backend so vectors stay comparable when the backend changes.
//
// Returns ai.AIProvider interface to enforce abstraction.
func New(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := NewEmbedder(config)
	if err != nil {
		return nil, err
	}

	backend := config.ResolveProvider()
	var reasoner ai.Reasoner
	switch backend {
	case ai.ProviderGroq:
		reasoner, err = openai.NewReasoner(config)
	case ai.ProviderOllama:
		reasoner, err = ollama.NewReasoner(config)
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s (supported: %v)", backend, AvailableProviders())
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s reasoner: %w", backend, err)
	}

	logger := slog.Default().With("component", "ai-provider")
	logger.Debug("ai provider ready", "reasoner", backend, "embedding_api", config.EmbeddingAPI)
	return &Provider{
		embedder: embedder,
		reasoner: reasoner,
		backend:  backend,
		logger:   logger,
	}, nil
}

// NewEmbedder builds only the embedding service, for callers that never reason.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.EmbeddingAPI {
	case ai.EmbeddingAPIOpenAI:
		return openai.NewEmbedder(config)
	default:
		return ollama.NewEmbedder(config)
	}
}

// AvailableProviders lists the concrete reasoning backends.
func AvailableProviders() []ai.InferenceProvider {
	return []ai.InferenceProvider{ai.ProviderOllama, ai.ProviderGroq}
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Reasoner returns the completion service.
func (p *Provider) Reasoner() ai.Reasoner {
	return p.reasoner
}

// Backend reports which reasoning backend was selected.
func (p *Provider) Backend() ai.InferenceProvider {
	return p.backend
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing AI provider")
	return nil
}
