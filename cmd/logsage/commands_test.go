package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/logsage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	asked  []string
	convs  []string
	resets []string
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, question string, _ int, conversationID string) (*core.AnalysisResult, error) {
	f.asked = append(f.asked, question)
	f.convs = append(f.convs, conversationID)
	if f.err != nil {
		return nil, f.err
	}
	return &core.AnalysisResult{
		Summary:        "answer to " + question,
		Confidence:     core.ConfidenceMedium,
		ConversationID: "conv-1",
	}, nil
}

func (f *fakeAnalyzer) ResetConversation(_ context.Context, conversationID string) bool {
	f.resets = append(f.resets, conversationID)
	return true
}

func TestChatSession(t *testing.T) {
	t.Run("follow-ups reuse the conversation until reset", func(t *testing.T) {
		fake := &fakeAnalyzer{}
		var out bytes.Buffer
		s := &chatSession{analyzer: fake, out: &out}

		in := strings.NewReader("first\n\n  second  \n/reset\nthird\n")
		require.NoError(t, s.run(context.Background(), in))

		assert.Equal(t, []string{"first", "second", "third"}, fake.asked)
		assert.Equal(t, []string{"", "conv-1", ""}, fake.convs)
		assert.Equal(t, []string{"conv-1"}, fake.resets)
		assert.Contains(t, out.String(), "answer to second")
		assert.Contains(t, out.String(), "Conversation reset.")
		assert.Contains(t, out.String(), "Confidence: medium")
	})

	t.Run("quit stops reading", func(t *testing.T) {
		fake := &fakeAnalyzer{}
		s := &chatSession{analyzer: fake, out: &bytes.Buffer{}}
		require.NoError(t, s.run(context.Background(), strings.NewReader("/quit\nnever asked\n")))
		assert.Empty(t, fake.asked)
	})

	t.Run("analysis errors are shown and the session continues", func(t *testing.T) {
		fake := &fakeAnalyzer{err: errors.New("reasoner unavailable")}
		var out bytes.Buffer
		s := &chatSession{analyzer: fake, out: &out, conversationID: "existing"}
		require.NoError(t, s.run(context.Background(), strings.NewReader("one\ntwo\n")))
		assert.Len(t, fake.asked, 2)
		assert.Equal(t, []string{"existing", "existing"}, fake.convs)
		assert.Equal(t, 2, strings.Count(out.String(), "error: reasoner unavailable"))
	})

	t.Run("a cancelled context ends the session", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fake := &fakeAnalyzer{err: context.Canceled}
		s := &chatSession{analyzer: fake, out: &bytes.Buffer{}}
		err := s.run(ctx, strings.NewReader("one\ntwo\n"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, fake.asked, 1)
	})
}

func TestPrintAnswer(t *testing.T) {
	var out bytes.Buffer
	printAnswer(&out, &core.AnalysisResult{
		Summary:   "Payments failed.",
		RootCause: "Gateway timeout",
		Evidence: []core.Evidence{
			{ChunkID: "app.log#2", Filename: "app.log", Quote: "line one\nline two", Level: "ERROR", Score: 0.8123},
		},
		NextSteps:  []string{"Check the gateway", "Retry the batch"},
		Confidence: core.ConfidenceHigh,
	})

	text := out.String()
	assert.Contains(t, text, "Summary\n  Payments failed.")
	assert.Contains(t, text, "Probable root cause\n  Gateway timeout")
	assert.Contains(t, text, "[1] app.log#2 (ERROR, score 0.81)")
	assert.Contains(t, text, "      line one\n      line two\n")
	assert.Contains(t, text, "  2. Retry the batch")
	assert.Contains(t, text, "Confidence: high")
}

func TestPrintAnswer_NoEvidence(t *testing.T) {
	var out bytes.Buffer
	printAnswer(&out, &core.AnalysisResult{Summary: "Nothing relevant was found."})
	assert.Contains(t, out.String(), "no matching log excerpts")
	assert.NotContains(t, out.String(), "Next steps")
	assert.Contains(t, out.String(), "Confidence: low")
}

func TestProgressInterval(t *testing.T) {
	assert.Equal(t, 1, progressInterval(0))
	assert.Equal(t, 1, progressInterval(19))
	assert.Equal(t, 5, progressInterval(100))
}
