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

// Package chunker groups parsed log entries into bounded, overlapping chunks
// and keeps the most error-dense ones when a file produces too many.
package chunker

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/logsage/core"
)

// Priority weights for ranking. Errors count double relative to warnings.
const (
	errorWeight = 2.0
	warnWeight  = 1.0
)

// Chunker splits entries into chunks. It holds no per-file state and is
// safe for concurrent use.
type Chunker struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Chunker. A nil config uses DefaultConfig.
func New(cfg *Config, opts ...Option) (*Chunker, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Chunker{cfg: *cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "chunker")
	return c, nil
}

// Result is the outcome of chunking one file.
type Result struct {
	// Chunks holds the retained chunks in sequence order.
	Chunks []core.Chunk
	// Total is how many chunks the file produced before capping.
	Total int
	// Dropped lists the ids of chunks removed by the cap.
	Dropped []string
}

// Chunk splits the entries of one file. Output depends only on the input
// and the configuration.
func (c *Chunker) Chunk(filename string, entries []core.LogEntry) Result {
	if len(entries) == 0 {
		return Result{}
	}

	cores := c.boundaries(entries)
	chunks := make([]core.Chunk, len(cores))
	for seq, r := range cores {
		chunks[seq] = c.build(filename, seq, entries, cores, r)
	}

	res := Result{Total: len(chunks)}
	res.Chunks, res.Dropped = c.rank(chunks)
	if len(res.Dropped) > 0 {
		c.logger.Info("chunk cap reached",
			"filename", filename,
			"total", res.Total,
			"kept", len(res.Chunks))
	}
	return res
}

// boundaries computes the non-overlapping core range of every chunk.
func (c *Chunker) boundaries(entries []core.LogEntry) []core.EntryRange {
	var (
		ranges []core.EntryRange
		start  int
		chars  int
		lastTS time.Time
	)

	for i, e := range entries {
		size := len(e.Raw) + 1
		if i > start {
			prev := entries[i-1]
			cluster := prev.Level.IsError() && e.Level.IsError()

			split := false
			switch {
			case c.gapExceeded(lastTS, e):
				split = true
			case cluster:
				split = chars+size > c.cfg.MaxChars
			case chars+size > c.cfg.TargetChars:
				split = true
			case i-start >= c.cfg.MaxEntries:
				split = true
			}

			if split {
				ranges = append(ranges, core.EntryRange{Start: start, End: i})
				start, chars = i, 0
				lastTS = time.Time{}
			}
		}
		chars += size
		if e.HasTimestamp() {
			lastTS = e.Timestamp
		}
	}
	return append(ranges, core.EntryRange{Start: start, End: len(entries)})
}

func (c *Chunker) gapExceeded(last time.Time, e core.LogEntry) bool {
	if c.cfg.TimeGap <= 0 || last.IsZero() || !e.HasTimestamp() {
		return false
	}
	return e.Timestamp.Sub(last) >= c.cfg.TimeGap
}

// build materializes chunk seq. The chunk borrows up to OverlapEntries entries
// from the end of its predecessor's core.
func (c *Chunker) build(filename string, seq int, entries []core.LogEntry, cores []core.EntryRange, coreRange core.EntryRange) core.Chunk {
	full := coreRange
	if seq > 0 && c.cfg.OverlapEntries > 0 {
		full.Start = max(cores[seq-1].Start, coreRange.Start-c.cfg.OverlapEntries)
	}

	var text strings.Builder
	var start, end time.Time
	for i := full.Start; i < full.End; i++ {
		if i > full.Start {
			text.WriteByte('\n')
		}
		text.WriteString(entries[i].Raw)
		if entries[i].HasTimestamp() {
			if start.IsZero() {
				start = entries[i].Timestamp
			}
			end = entries[i].Timestamp
		}
	}

	levels := core.LevelHistogram{}
	for i := coreRange.Start; i < coreRange.End; i++ {
		levels.Add(entries[i].Level)
	}

	return core.Chunk{
		ID:       core.ChunkID(filename, seq),
		Filename: filename,
		Sequence: seq,
		Text:     text.String(),
		Range:    full,
		Core:     coreRange,
		Levels:   levels,
		Start:    start,
		End:      end,
		Score:    priority(levels, coreRange.Len()),
	}
}

// priority is the weighted error/warn density of a chunk's own entries.
func priority(levels core.LevelHistogram, n int) float64 {
	if n == 0 {
		return 0
	}
	return (errorWeight*float64(levels.Errors()) + warnWeight*float64(levels.Warnings())) / float64(n)
}

// rank keeps the MaxChunks highest-priority chunks. Ties favour earlier
// chunks. Kept chunks are returned in sequence order.
func (c *Chunker) rank(chunks []core.Chunk) ([]core.Chunk, []string) {
	if c.cfg.MaxChunks == 0 || len(chunks) <= c.cfg.MaxChunks {
		return chunks, nil
	}

	order := make([]int, len(chunks))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		if chunks[a].Score > chunks[b].Score {
			return -1
		}
		if chunks[a].Score < chunks[b].Score {
			return 1
		}
		return a - b
	})

	keep := order[:c.cfg.MaxChunks]
	slices.Sort(keep)

	kept := make([]core.Chunk, 0, len(keep))
	for _, i := range keep {
		kept = append(kept, chunks[i])
	}

	var dropped []string
	for _, i := range order[c.cfg.MaxChunks:] {
		dropped = append(dropped, chunks[i].ID)
	}
	slices.Sort(dropped)
	return kept, dropped
}
