package ollama

import (
	"context"
	"log/slog"

	"github.com/poiesic/logsage/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Reasoner implements ai.Reasoner with an Ollama chat model.
type Reasoner struct {
	client *ollama.LLM
	logger *slog.Logger
}

// NewReasoner creates a reasoner for config.OllamaHost and config.OllamaModel.
func NewReasoner(config *ai.Config) (ai.Reasoner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := ollama.New(
		ollama.WithServerURL(config.OllamaHost),
		ollama.WithModel(config.OllamaModel),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, err
	}

	return &Reasoner{
		client: client,
		logger: slog.Default().With("component", "ollama-reasoner", "model", config.OllamaModel),
	}, nil
}

// Complete returns the raw reply to the system instruction and prompt.
func (r *Reasoner) Complete(ctx context.Context, system, prompt string) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	r.logger.Debug("requesting completion", "prompt_length", len(prompt))
	response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0))
	if err != nil {
		return "", err
	}
	if len(response.Choices) < 1 {
		return "", ai.ErrEmptyCompletion
	}
	return response.Choices[0].Content, nil
}
