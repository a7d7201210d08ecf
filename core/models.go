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

package core

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a numeric identifier derived from content.
// Vector stores that require integer point ids key records by it.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// LogEntry is a single logical log record. Multi-line constructs such as
// stack traces are folded into the entry of the line that started them.
type LogEntry struct {
	Raw       string
	Timestamp time.Time // zero when absent or unparsable
	Level     Level
	Line      int // 1-based line number of the first physical line

	// Optional fields extracted by structured variants.
	Logger  string
	Message string
}

// HasTimestamp reports whether a timestamp was parsed for the entry.
func (e LogEntry) HasTimestamp() bool {
	return !e.Timestamp.IsZero()
}

// EntryRange is a half-open range [Start, End) of entry indices.
type EntryRange struct {
	Start int
	End   int
}

// Len returns the number of entries in the range.
func (r EntryRange) Len() int {
	return r.End - r.Start
}

// Contains reports whether index i falls inside the range.
func (r EntryRange) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// ChunkID builds the stable chunk identifier for a file and sequence number.
func ChunkID(filename string, seq int) string {
	return fmt.Sprintf("%s#%04d", filename, seq)
}

// Chunk is a bounded, citable unit of log text.
// Chunks are immutable after the chunker emits them.
type Chunk struct {
	ID       string
	Filename string
	Sequence int
	Text     string

	// Range covers every entry whose text is in the chunk, overlap included.
	Range EntryRange
	// Core is the part of Range owned by this chunk alone.
	Core EntryRange

	Levels LevelHistogram
	Start  time.Time
	End    time.Time
	Score  float64 // priority used when capping chunks per file
}

// ChunkRecord is what the vector store persists for one chunk.
type ChunkRecord struct {
	ChunkID  string
	Filename string
	Text     string
	Vector   []float32
	Start    time.Time
	End      time.Time
	Levels   LevelHistogram
}

// RecordFromChunk pairs a chunk with its embedding.
func RecordFromChunk(c Chunk, vector []float32) *ChunkRecord {
	return &ChunkRecord{
		ChunkID:  c.ID,
		Filename: c.Filename,
		Text:     c.Text,
		Vector:   vector,
		Start:    c.Start,
		End:      c.End,
		Levels:   c.Levels.Clone(),
	}
}

// SearchResult represents a search result with the full record and relevance score.
type SearchResult struct {
	Record *ChunkRecord
	Score  float32
}

// Confidence is a coarse indicator of how well an answer is supported.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Evidence is a chunk excerpt cited by an answer.
type Evidence struct {
	ChunkID   string    `json:"chunk_id"`
	Filename  string    `json:"filename"`
	Quote     string    `json:"quote"`
	Timestamp time.Time `json:"timestamp,omitzero"`
	Level     string    `json:"level"`
	Score     float32   `json:"score"`
}

// AnalysisResult is the structured answer to one question.
type AnalysisResult struct {
	Summary        string     `json:"summary"`
	RootCause      string     `json:"root_cause"`
	Evidence       []Evidence `json:"evidence"`
	NextSteps      []string   `json:"next_steps"`
	Confidence     Confidence `json:"confidence"`
	ConversationID string     `json:"conversation_id"`
}

// Turn is one answered question in a conversation.
type Turn struct {
	Question string
	Answer   string
	AskedAt  time.Time
}

// Conversation is the history of one conversation.
type Conversation struct {
	ID        string
	Turns     []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}
