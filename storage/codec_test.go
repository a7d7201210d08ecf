package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/poiesic/logsage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestChunkRecordEncoding(t *testing.T) {
	c := newCodec(t)
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &core.ChunkRecord{
		ChunkID:  "api.log#0003",
		Filename: "api.log",
		Text:     strings.Repeat("2025-03-01 10:00:00 ERROR pool exhausted\n", 20),
		Vector:   []float32{0.5, -0.25, 0.125, 1},
		Start:    start,
		End:      start.Add(time.Minute),
		Levels:   core.LevelHistogram{core.LevelError: 20},
	}

	data, err := c.MarshalChunkRecord(in)
	require.NoError(t, err)
	assert.Less(t, len(data), len(in.Text), "text should compress")

	out, err := c.UnmarshalChunkRecord(data)
	require.NoError(t, err)
	assert.Equal(t, in.ChunkID, out.ChunkID)
	assert.Equal(t, in.Text, out.Text)
	assert.Equal(t, in.Vector, out.Vector)
	assert.True(t, in.Start.Equal(out.Start))
	assert.True(t, in.End.Equal(out.End))
	assert.Equal(t, 20, out.Levels[core.LevelError])
}

func TestChunkRecordWithoutTimestamps(t *testing.T) {
	c := newCodec(t)
	data, err := c.MarshalChunkRecord(&core.ChunkRecord{ChunkID: "x#0000", Vector: []float32{1}})
	require.NoError(t, err)

	out, err := c.UnmarshalChunkRecord(data)
	require.NoError(t, err)
	assert.True(t, out.Start.IsZero())
	assert.Empty(t, out.Levels)
}

func TestUnmarshalChunkRecordRejectsGarbage(t *testing.T) {
	c := newCodec(t)

	_, err := c.UnmarshalChunkRecord([]byte("nope"))
	assert.ErrorIs(t, err, ErrSerializationFailed)

	_, err = c.UnmarshalChunkRecord([]byte("LSR1\x10\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrTruncatedData)
}

func TestConversationEncoding(t *testing.T) {
	c := newCodec(t)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	in := &core.Conversation{
		ID:        "c-1",
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
		Turns: []core.Turn{
			{Question: "what failed?", Answer: "db pool", AskedAt: now},
			{Question: "since when?", Answer: "10:00", AskedAt: now.Add(time.Minute)},
		},
	}

	data, err := c.MarshalConversation(in)
	require.NoError(t, err)
	out, err := c.UnmarshalConversation(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	require.Len(t, out.Turns, 2)
	assert.Equal(t, "since when?", out.Turns[1].Question)
	assert.True(t, in.UpdatedAt.Equal(out.UpdatedAt))

	_, err = c.UnmarshalConversation(data[1:])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-6)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 2}))
}
