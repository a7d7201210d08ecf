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

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// The embedder talks to any OpenAI-compatible embedding endpoint (LocalAI,
// vLLM, Ollama's /v1 endpoint). The reasoner is used for Groq, whose chat
// API is OpenAI-compatible.
//
// # Usage
//
//	config := ai.NewConfig(ai.WithGroqAPIKey(key))
//	reasoner, err := openai.NewReasoner(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	reply, err := reasoner.Complete(ctx, system, prompt)
package openai
