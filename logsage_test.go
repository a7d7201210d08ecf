package logsage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/logsage/ai/mock"
	"github.com/poiesic/logsage/config"
	"github.com/poiesic/logsage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incidentLog() []byte {
	var b bytes.Buffer
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 97; i++ {
		fmt.Fprintf(&b, "%s INFO [http-1] com.example.Api: handled request %d in 12ms\n",
			ts.Format("2006-01-02 15:04:05,000"), i)
		ts = ts.Add(time.Second)
	}
	ts = ts.Add(5 * time.Minute)
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "%s ERROR [pool-1] com.example.Db: connection refused to db:5432\n",
			ts.Format("2006-01-02 15:04:05,000"))
		ts = ts.Add(100 * time.Millisecond)
	}
	return b.Bytes()
}

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.VectorStore = config.StoreMemory
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, responses ...string) (*Service, *mock.MockEmbedder, *mock.MockReasoner) {
	t.Helper()
	embedder := mock.NewMockEmbedder()
	reasoner := mock.NewMockReasoner(responses...)
	provider := mock.NewMockProviderWithServices(embedder, reasoner)

	svc, err := New(context.Background(), cfg, WithProvider(provider))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, embedder, reasoner
}

func TestIngestThenAnalyze(t *testing.T) {
	svc, embedder, reasoner := newTestService(t, memoryConfig(),
		`{"summary":"Database connections were refused.","root_cause":"db:5432 unreachable","confidence":"high","next_steps":["Check the database"]}`)
	ctx := context.Background()

	ingested, err := svc.Ingest(ctx, incidentLog(), "app.log")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ingested.ChunksCreated, 2)
	assert.Equal(t, 3, ingested.Stats.ErrorCount)
	assert.Equal(t, ingested.ChunksCreated, embedder.CallCount())

	count, err := svc.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingested.ChunksCreated, count)

	result, err := svc.Analyze(ctx, "connection refused to db:5432", 3, "")
	require.NoError(t, err)
	assert.Equal(t, "Database connections were refused.", result.Summary)
	require.NotEmpty(t, result.Evidence)
	assert.LessOrEqual(t, len(result.Evidence), 3)
	for _, e := range result.Evidence {
		assert.True(t, strings.HasPrefix(e.ChunkID, "app.log#"), e.ChunkID)
		assert.LessOrEqual(t, len([]rune(e.Quote)), 353)
	}
	assert.Equal(t, 1, reasoner.CallCount())
	assert.NotEmpty(t, result.ConversationID)

	conv, err := svc.Conversation(result.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 1)
	assert.True(t, svc.ResetConversation(ctx, result.ConversationID))
}

func TestAnalyzeWithoutData(t *testing.T) {
	svc, _, reasoner := newTestService(t, memoryConfig())

	result, err := svc.Analyze(context.Background(), "what happened at midnight?", 0, "")
	require.NoError(t, err)
	assert.Empty(t, result.Evidence)
	assert.Equal(t, core.ConfidenceLow, result.Confidence)
	assert.Zero(t, reasoner.CallCount())
}

func TestOversizeFileNeverEmbedded(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ingest.MaxFileSizeMB = 1
	cfg.Ingest.WarnFileSizeMB = 1
	svc, embedder, _ := newTestService(t, cfg)

	data := bytes.Repeat([]byte("2025-03-01 12:00:00,000 INFO [main] com.example.App: filler\n"), 40000)
	_, err := svc.Ingest(context.Background(), data, "huge.log")
	assert.ErrorIs(t, err, core.ErrFileTooLarge)
	assert.ErrorIs(t, err, core.ErrInput)
	assert.Zero(t, embedder.CallCount())
}

func TestBadgerServicePersists(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	ctx := context.Background()

	first, err := New(ctx, cfg, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	ingested, err := first.Ingest(ctx, incidentLog(), "app.log")
	require.NoError(t, err)
	answer, err := first.Analyze(ctx, "why?", 0, "")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	defer second.Close()

	count, err := second.ChunkCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, ingested.ChunksCreated, count)

	conv, err := second.Conversation(answer.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Turns, 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ingest.MaxFileSizeMB = 0
	provider := mock.NewMockProvider()

	_, err := New(context.Background(), cfg, WithProvider(provider))
	assert.Error(t, err)
}
