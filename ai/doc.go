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

// Package ai provides abstractions for the AI services logsage depends on.
//
// Two services are modeled:
//
//   - Embedder: turns chunk text and questions into vectors
//   - Reasoner: completes a system instruction plus prompt into raw text
//
// AIProvider aggregates both for convenient initialization.
//
// # Implementation Packages
//
//   - ai/ollama: native Ollama embeddings and chat
//   - ai/openai: OpenAI-compatible embeddings, and chat against Groq
//   - ai/factory: selects implementations from Config
//   - ai/mock: test doubles with injectable behavior and latency
//
// # Provider Selection
//
// Config.Provider picks the reasoning backend. "auto" resolves to Groq when
// a Groq API key is configured and to Ollama otherwise. Embeddings always
// come from the configured embedding service so stored vectors remain
// comparable.
//
//	provider, err := factory.New(ai.NewConfig(ai.WithGroqAPIKey(key)))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "connection refused")
//	reply, err := provider.Reasoner().Complete(ctx, system, prompt)
//
// Production constructors return interfaces. Mock constructors return
// concrete types so tests can inject behavior and inspect call counts.
package ai
