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

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Provider selects the reasoning backend: "ollama", "groq" or "auto".
	// Auto uses Groq when GroqAPIKey is set and Ollama otherwise.
	// Default: "auto"
	Provider InferenceProvider

	// EmbeddingAPI selects the wire protocol of the embedding service.
	// "ollama" speaks the native Ollama API; "openai" speaks the
	// OpenAI-compatible API (LocalAI, vLLM, Ollama's /v1 endpoint).
	// Default: "ollama"
	EmbeddingAPI EmbeddingAPI

	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434"
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// EmbeddingAPIKey authenticates OpenAI-compatible embedding services.
	// Local services accept any value.
	EmbeddingAPIKey string

	// OllamaHost is the base URL of the Ollama server used for reasoning.
	// Example: "http://localhost:11434"
	OllamaHost string

	// OllamaModel is the chat model used when reasoning runs on Ollama.
	// Example: "llama3.2:3b"
	OllamaModel string

	// GroqHost is the OpenAI-compatible base URL of the Groq API.
	GroqHost string

	// GroqAPIKey authenticates against Groq. Required when Provider is "groq".
	GroqAPIKey string

	// GroqModel is the chat model used when reasoning runs on Groq.
	// Example: "llama-3.1-8b-instant"
	GroqModel string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the reasoning backend.
func WithProvider(p InferenceProvider) ConfigOption {
	return func(c *Config) {
		c.Provider = p
	}
}

// WithEmbeddingAPI sets the embedding wire protocol.
func WithEmbeddingAPI(api EmbeddingAPI) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPI = api
	}
}

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithEmbeddingAPIKey sets the key for OpenAI-compatible embedding services.
func WithEmbeddingAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingAPIKey = key
	}
}

// WithOllamaHost sets the Ollama host used for reasoning.
func WithOllamaHost(host string) ConfigOption {
	return func(c *Config) {
		c.OllamaHost = host
	}
}

// WithHost points both the embedding service and Ollama reasoning at the same server.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.OllamaHost = host
	}
}

// WithOllamaModel sets the Ollama chat model.
func WithOllamaModel(model string) ConfigOption {
	return func(c *Config) {
		c.OllamaModel = model
	}
}

// WithGroqAPIKey sets the Groq API key.
func WithGroqAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.GroqAPIKey = key
	}
}

// WithGroqModel sets the Groq chat model.
func WithGroqModel(model string) ConfigOption {
	return func(c *Config) {
		c.GroqModel = model
	}
}

// WithGroqHost overrides the Groq API base URL.
func WithGroqHost(host string) ConfigOption {
	return func(c *Config) {
		c.GroqHost = host
	}
}

// DefaultConfig returns a Config with sensible defaults for a local Ollama
// server, switching reasoning to Groq automatically when a key is supplied.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434"
	return &Config{
		Provider:       ProviderAuto,
		EmbeddingAPI:   EmbeddingAPIOllama,
		EmbeddingHost:  defaultHost,
		EmbeddingModel: "nomic-embed-text",
		OllamaHost:     defaultHost,
		OllamaModel:    "llama3.2:3b",
		GroqHost:       "https://api.groq.com/openai/v1",
		GroqModel:      "llama-3.1-8b-instant",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://gpu-box:11434"),
//	    WithGroqAPIKey(os.Getenv("GROQ_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Native Ollama hosts lose any trailing slash or /v1 suffix; OpenAI-compatible
// hosts gain the /v1 suffix most of those APIs require.
func (c *Config) Normalize() {
	c.Provider = InferenceProvider(strings.ToLower(strings.TrimSpace(string(c.Provider))))
	if c.Provider == "" {
		c.Provider = ProviderAuto
	}
	c.EmbeddingAPI = EmbeddingAPI(strings.ToLower(strings.TrimSpace(string(c.EmbeddingAPI))))
	if c.EmbeddingAPI == "" {
		c.EmbeddingAPI = EmbeddingAPIOllama
	}

	c.OllamaHost = nativeHost(c.OllamaHost)
	if c.EmbeddingAPI == EmbeddingAPIOpenAI {
		c.EmbeddingHost = openAIHost(c.EmbeddingHost)
	} else {
		c.EmbeddingHost = nativeHost(c.EmbeddingHost)
	}
	c.GroqHost = openAIHost(c.GroqHost)
}

func nativeHost(host string) string {
	host = strings.TrimSuffix(host, "/")
	return strings.TrimSuffix(host, "/v1")
}

func openAIHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderAuto, ProviderOllama, ProviderGroq:
	default:
		return fmt.Errorf("ai config: unknown provider %q: must be one of ollama, groq, auto", c.Provider)
	}
	switch c.EmbeddingAPI {
	case EmbeddingAPIOllama, EmbeddingAPIOpenAI:
	default:
		return fmt.Errorf("ai config: unknown embedding API %q: must be ollama or openai", c.EmbeddingAPI)
	}

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}

	switch c.ResolveProvider() {
	case ProviderGroq:
		if c.GroqAPIKey == "" {
			return errors.New("ai config: GroqAPIKey is required for the groq provider")
		}
		if c.GroqHost == "" {
			return errors.New("ai config: GroqHost is required")
		}
		if c.GroqModel == "" {
			return errors.New("ai config: GroqModel is required")
		}
	default:
		if c.OllamaHost == "" {
			return errors.New("ai config: OllamaHost is required")
		}
		if c.OllamaModel == "" {
			return errors.New("ai config: OllamaModel is required")
		}
	}
	return nil
}

// ResolveProvider returns the concrete reasoning backend, resolving "auto".
func (c *Config) ResolveProvider() InferenceProvider {
	if c.Provider == ProviderAuto || c.Provider == "" {
		if c.GroqAPIKey != "" {
			return ProviderGroq
		}
		return ProviderOllama
	}
	return c.Provider
}
