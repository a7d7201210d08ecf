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

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/logsage/ai"
	"github.com/poiesic/logsage/conversation"
	"github.com/poiesic/logsage/core"
)

const maxAttempts = 2

const (
	noEvidenceSummary  = "No relevant log evidence was found for this question."
	fallbackSummary    = "The model response could not be interpreted; the retrieved evidence is listed for manual review."
	insufficientReason = "Insufficient evidence to determine a root cause."
)

var (
	noEvidenceSteps = []string{
		"Ingest the log files that cover the incident window.",
		"Rephrase the question using terms that appear in the logs.",
	}
	defaultSteps = []string{
		"Check logs around the cited timestamps.",
		"Validate recent deploy/config changes.",
		"Reproduce with higher verbosity logging.",
	}
)

// Retriever returns the chunks most relevant to a question.
// retrieval.Retriever satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]*core.SearchResult, error)
}

// Synthesizer answers questions from retrieved log evidence.
type Synthesizer struct {
	retriever     Retriever
	reasoner      ai.Reasoner
	conversations *conversation.Store
	config        *Config
	logger        *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer) error

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Synthesizer) error {
		if config == nil {
			return nil
		}
		if err := config.Validate(); err != nil {
			return err
		}
		s.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "analysis")
		return nil
	}
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(retriever Retriever, reasoner ai.Reasoner, conversations *conversation.Store, opts ...Option) (*Synthesizer, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if reasoner == nil {
		return nil, ErrReasonerRequired
	}
	if conversations == nil {
		return nil, ErrConversationsRequired
	}

	s := &Synthesizer{
		retriever:     retriever,
		reasoner:      reasoner,
		conversations: conversations,
		config:        DefaultConfig(),
		logger:        slog.Default().With("component", "analysis"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Analyze answers question using up to topK evidence chunks. A non-positive
// topK uses the configured default. An empty conversationID starts a new
// conversation; the id used is returned in the result.
//
// Malformed model replies never produce an error: they are retried once
// and then degraded to a low-confidence fallback. Errors are returned for
// a blank question and for failures of the embedding, vector store or
// reasoning services.
func (s *Synthesizer) Analyze(ctx context.Context, question string, topK int, conversationID string) (*core.AnalysisResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = s.config.TopK
	}

	// Retrieve before touching the conversation store so a failed lookup
	// leaves no empty conversation behind.
	results, err := s.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve evidence: %w", err)
	}

	conversationID, err = s.conversations.Ensure(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	history := s.conversations.History(conversationID, s.config.HistoryWindow)

	logger := s.logger.With("conversation_id", conversationID)
	logger.Debug("analyzing question", "top_k", topK, "hits", len(results), "history_turns", len(history))

	var result *core.AnalysisResult
	if len(results) == 0 {
		result = &core.AnalysisResult{
			Summary:    noEvidenceSummary,
			RootCause:  insufficientReason,
			Evidence:   []core.Evidence{},
			NextSteps:  append([]string(nil), noEvidenceSteps...),
			Confidence: core.ConfidenceLow,
		}
	} else {
		result, err = s.synthesize(ctx, logger, question, history, results)
		if err != nil {
			return nil, err
		}
	}
	result.ConversationID = conversationID

	if err := s.conversations.Append(ctx, conversationID, question, historyAnswer(result)); err != nil {
		logger.Warn("failed to record conversation turn", "err", err)
	}
	return result, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, logger *slog.Logger, question string, history []core.Turn, results []*core.SearchResult) (*core.AnalysisResult, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := buildPrompt(question, history, results, attempt > 1)

		raw, err := s.complete(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReasoningFailed, err)
		}

		final := attempt == maxAttempts
		o := classify(raw, final)
		if sc, ok := o.(success); ok {
			o = checkRefs(sc.answer, results, final)
		}
		switch o := o.(type) {
		case success:
			return s.buildResult(logger, o.answer, results), nil
		case retryable:
			logger.Warn("model response malformed, retrying with stricter instruction", "attempt", attempt, "err", o.err)
		case fallback:
			logger.Warn("model response malformed, using fallback answer", "attempt", attempt, "err", o.reason)
			return s.fallbackResult(results), nil
		}
	}
	return s.fallbackResult(results), nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()
	return s.reasoner.Complete(callCtx, SystemPrompt, prompt)
}

// buildResult keeps only citations that name retrieved chunks. When the
// model cites nothing usable, every retrieved chunk is returned as evidence.
func (s *Synthesizer) buildResult(logger *slog.Logger, answer *modelAnswer, results []*core.SearchResult) *core.AnalysisResult {
	byID := make(map[string]*core.SearchResult, len(results))
	for _, r := range results {
		byID[r.Record.ChunkID] = r
	}

	cited := make([]*core.SearchResult, 0, len(answer.Citations))
	seen := make(map[string]bool, len(answer.Citations))
	for _, id := range answer.Citations {
		r, ok := byID[id]
		if !ok {
			logger.Debug("dropping citation of unknown chunk", "chunk_id", id)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		cited = append(cited, r)
	}
	// Chunks named in the prose count as citations too.
	mentioned, _ := chunkRefs(answerProse(answer), results)
	for _, id := range mentioned {
		if !seen[id] {
			seen[id] = true
			cited = append(cited, byID[id])
		}
	}
	if len(cited) == 0 {
		cited = results
	}

	evidence := s.evidence(cited)
	steps := answer.NextSteps
	if len(steps) == 0 {
		steps = append([]string(nil), defaultSteps...)
	}
	rootCause := answer.RootCause
	if rootCause == "" {
		rootCause = insufficientReason
	}

	return &core.AnalysisResult{
		Summary:    answer.Summary,
		RootCause:  rootCause,
		Evidence:   evidence,
		NextSteps:  steps,
		Confidence: scoreConfidence(scores(evidence), s.config.MinScore, answer.Confidence, answer.HasConfidence),
	}
}

func (s *Synthesizer) fallbackResult(results []*core.SearchResult) *core.AnalysisResult {
	return &core.AnalysisResult{
		Summary:    fallbackSummary,
		RootCause:  insufficientReason,
		Evidence:   s.evidence(results),
		NextSteps:  append([]string(nil), defaultSteps...),
		Confidence: core.ConfidenceLow,
	}
}

func (s *Synthesizer) evidence(results []*core.SearchResult) []core.Evidence {
	out := make([]core.Evidence, 0, len(results))
	for _, r := range results {
		out = append(out, core.Evidence{
			ChunkID:   r.Record.ChunkID,
			Filename:  r.Record.Filename,
			Quote:     truncateQuote(r.Record.Text, s.config.QuoteLimit),
			Timestamp: r.Record.Start,
			Level:     r.Record.Levels.Dominant().String(),
			Score:     r.Score,
		})
	}
	return out
}

func scores(evidence []core.Evidence) []float32 {
	out := make([]float32, len(evidence))
	for i, e := range evidence {
		out[i] = e.Score
	}
	return out
}
