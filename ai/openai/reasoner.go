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

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/logsage/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Reasoner implements ai.Reasoner using an OpenAI-compatible chat API.
// It is configured from the Groq settings of ai.Config.
type Reasoner struct {
	client llms.Model
	model  string
	logger *slog.Logger
}

// newReasoner is an internal constructor that returns the concrete type.
func newReasoner(config *ai.Config) (*Reasoner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.GroqHost),
		openai.WithToken(config.GroqAPIKey),
		openai.WithModel(config.GroqModel),
	)
	if err != nil {
		return nil, err
	}

	return &Reasoner{
		client: client,
		model:  config.GroqModel,
		logger: slog.Default().With("component", "openai-reasoner"),
	}, nil
}

// NewReasoner creates a chat completion client for Groq.
//
// Returns ai.Reasoner interface to enforce abstraction.
func NewReasoner(config *ai.Config) (ai.Reasoner, error) {
	return newReasoner(config)
}

// Complete sends the system instruction and prompt with temperature 0 and
// JSON mode enabled and returns the first choice's content.
func (r *Reasoner) Complete(ctx context.Context, system, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	r.logger.Debug("requesting completion", "model", r.model, "prompt_length", len(prompt))
	response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyCompletion
	}
	return response.Choices[0].Content, nil
}
