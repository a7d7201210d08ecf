package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/logsage/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(i int, level core.Level, ts time.Time, msg string) core.LogEntry {
	return core.LogEntry{
		Raw:       fmt.Sprintf("%s %s %s", ts.Format(time.DateTime), level, msg),
		Timestamp: ts,
		Level:     level,
		Line:      i + 1,
		Message:   msg,
	}
}

// incidentFile builds 97 INFO lines one second apart, then a five minute
// silence, then three ERROR lines.
func incidentFile() []core.LogEntry {
	var entries []core.LogEntry
	ts := base
	for i := 0; i < 97; i++ {
		entries = append(entries, entry(i, core.LevelInfo, ts, fmt.Sprintf("handled request %d in 12ms", i)))
		ts = ts.Add(time.Second)
	}
	ts = ts.Add(5 * time.Minute)
	for i := 97; i < 100; i++ {
		entries = append(entries, entry(i, core.LevelError, ts, "upstream connection refused"))
		ts = ts.Add(100 * time.Millisecond)
	}
	return entries
}

func mustChunker(t *testing.T, opts ...ConfigOption) *Chunker {
	t.Helper()
	c, err := New(NewConfig(opts...))
	require.NoError(t, err)
	return c
}

func TestChunk_ErrorClusterIsolatedAfterGap(t *testing.T) {
	c := mustChunker(t)
	res := c.Chunk("app.log", incidentFile())

	require.GreaterOrEqual(t, len(res.Chunks), 2)
	last := res.Chunks[len(res.Chunks)-1]
	assert.Equal(t, core.EntryRange{Start: 97, End: 100}, last.Core)
	assert.Equal(t, 3, last.Levels.Errors())
	assert.Equal(t, 3, last.Levels.Total())
	for _, ch := range res.Chunks[:len(res.Chunks)-1] {
		assert.Zero(t, ch.Levels.Errors(), "error entries leaked into %s", ch.ID)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c := mustChunker(t, WithMaxChunks(3))
	entries := incidentFile()

	first := c.Chunk("app.log", entries)
	for i := 0; i < 5; i++ {
		again := c.Chunk("app.log", entries)
		assert.Equal(t, first, again)
	}
}

func TestChunk_CoverageInvariant(t *testing.T) {
	for _, overlap := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("overlap=%d", overlap), func(t *testing.T) {
			c := mustChunker(t, WithOverlapEntries(overlap), WithMaxChunks(0), WithTargetChars(300))
			entries := incidentFile()
			res := c.Chunk("app.log", entries)

			seen := make([]int, len(entries))
			for _, ch := range res.Chunks {
				for i := ch.Core.Start; i < ch.Core.End; i++ {
					seen[i]++
				}
				assert.LessOrEqual(t, ch.Range.Start, ch.Core.Start)
				assert.Equal(t, ch.Core.End, ch.Range.End)
				assert.LessOrEqual(t, ch.Core.Start-ch.Range.Start, overlap)
			}
			for i, n := range seen {
				assert.Equal(t, 1, n, "entry %d covered %d times", i, n)
			}
		})
	}
}

func TestChunk_OverlapInvariant(t *testing.T) {
	const overlap = 2
	c := mustChunker(t, WithOverlapEntries(overlap), WithMaxChunks(0), WithTargetChars(250))
	entries := incidentFile()
	res := c.Chunk("app.log", entries)
	require.Greater(t, len(res.Chunks), 3)

	for k := 1; k < len(res.Chunks); k++ {
		boundary := res.Chunks[k].Core.Start
		// Pairs of adjacent entries inside the window around the boundary.
		for i := max(boundary-overlap, 0); i < boundary; i++ {
			j := i + 1
			together := false
			for _, ch := range res.Chunks {
				if ch.Range.Contains(i) && ch.Range.Contains(j) {
					together = true
					break
				}
			}
			assert.True(t, together, "entries %d and %d share no chunk", i, j)
		}
	}
}

func TestChunk_TextMatchesRange(t *testing.T) {
	c := mustChunker(t, WithTargetChars(200))
	entries := incidentFile()
	res := c.Chunk("app.log", entries)

	for _, ch := range res.Chunks {
		var parts []string
		for i := ch.Range.Start; i < ch.Range.End; i++ {
			parts = append(parts, entries[i].Raw)
		}
		assert.Equal(t, strings.Join(parts, "\n"), ch.Text)
		assert.Equal(t, entries[ch.Range.Start].Timestamp, ch.Start)
		assert.Equal(t, entries[ch.Range.End-1].Timestamp, ch.End)
		assert.Equal(t, core.ChunkID("app.log", ch.Sequence), ch.ID)
		assert.Equal(t, "app.log", ch.Filename)
	}
}

func TestChunk_SoftBudgetAndEntryLimit(t *testing.T) {
	c := mustChunker(t, WithTargetChars(100), WithMaxChars(400), WithMaxEntries(4), WithOverlapEntries(0), WithMaxChunks(0))

	var entries []core.LogEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, core.LogEntry{Raw: "short", Level: core.LevelInfo, Line: i + 1})
	}
	res := c.Chunk("a.log", entries)
	require.Len(t, res.Chunks, 5)
	for _, ch := range res.Chunks {
		assert.Equal(t, 4, ch.Core.Len())
	}

	long := strings.Repeat("x", 60)
	entries = entries[:0]
	for i := 0; i < 6; i++ {
		entries = append(entries, core.LogEntry{Raw: long, Level: core.LevelInfo, Line: i + 1})
	}
	res = c.Chunk("a.log", entries)
	for _, ch := range res.Chunks {
		assert.LessOrEqual(t, len(ch.Text), 100)
	}
}

func TestChunk_ErrorClusterExceedsSoftBudgetUpToCeiling(t *testing.T) {
	c := mustChunker(t, WithTargetChars(100), WithMaxChars(250), WithOverlapEntries(0), WithMaxChunks(0))

	msg := strings.Repeat("e", 49) // 50 chars with the newline
	var entries []core.LogEntry
	for i := 0; i < 8; i++ {
		entries = append(entries, core.LogEntry{Raw: msg, Level: core.LevelError, Line: i + 1})
	}
	res := c.Chunk("a.log", entries)

	require.Len(t, res.Chunks, 2)
	assert.Equal(t, 5, res.Chunks[0].Core.Len(), "cluster should grow to the hard ceiling")
	assert.Greater(t, len(res.Chunks[0].Text), 100)
	assert.LessOrEqual(t, len(res.Chunks[0].Text), 250)
	assert.Equal(t, 3, res.Chunks[1].Core.Len())
}

func TestChunk_TimeGapWithoutTimestamps(t *testing.T) {
	c := mustChunker(t, WithMaxChunks(0))
	entries := []core.LogEntry{
		{Raw: "a", Line: 1},
		{Raw: "b", Line: 2},
		entry(2, core.LevelInfo, base, "c"),
		{Raw: "d", Line: 4},
		entry(4, core.LevelInfo, base.Add(time.Hour), "e"),
	}
	res := c.Chunk("a.log", entries)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, core.EntryRange{Start: 0, End: 4}, res.Chunks[0].Core)
	assert.Equal(t, core.EntryRange{Start: 4, End: 5}, res.Chunks[1].Core)
}

func TestChunk_CapKeepsErrorDenseChunks(t *testing.T) {
	c := mustChunker(t, WithMaxEntries(2), WithOverlapEntries(0), WithMaxChunks(2))

	levels := []core.Level{
		core.LevelInfo, core.LevelInfo, // 0: score 0
		core.LevelWarn, core.LevelInfo, // 1: score 0.5
		core.LevelInfo, core.LevelInfo, // 2: score 0
		core.LevelError, core.LevelInfo, // 3: score 1
		core.LevelWarn, core.LevelInfo, // 4: score 0.5
	}
	var entries []core.LogEntry
	for i, l := range levels {
		entries = append(entries, core.LogEntry{Raw: fmt.Sprintf("line %d", i), Level: l, Line: i + 1})
	}

	res := c.Chunk("a.log", entries)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Chunks, 2)
	assert.Equal(t, "a.log#0001", res.Chunks[0].ID)
	assert.Equal(t, "a.log#0003", res.Chunks[1].ID)
	assert.Equal(t, []string{"a.log#0000", "a.log#0002", "a.log#0004"}, res.Dropped)
	assert.InDelta(t, 1.0, res.Chunks[1].Score, 1e-9)
}

func TestChunk_Empty(t *testing.T) {
	res := mustChunker(t).Chunk("a.log", nil)
	assert.Empty(t, res.Chunks)
	assert.Zero(t, res.Total)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, NewConfig(WithTargetChars(0)).Validate())
	assert.Error(t, NewConfig(WithMaxChars(10)).Validate())
	assert.Error(t, NewConfig(WithMaxEntries(0)).Validate())
	assert.Error(t, NewConfig(WithOverlapEntries(-1)).Validate())
	assert.Error(t, NewConfig(WithMaxChunks(-1)).Validate())
	assert.Error(t, NewConfig(WithTimeGap(-time.Second)).Validate())

	_, err := New(NewConfig(WithTargetChars(0)))
	assert.Error(t, err)
}
