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

package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/poiesic/logsage/core"
)

var (
	recordMagic       = []byte("LSR1")
	conversationMagic = []byte("LSC1")
)

// Codec serializes records for byte-oriented stores.
// A Codec is safe for concurrent use.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewCodec creates a codec with its own zstd encoder and decoder.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Codec{encoder: enc, decoder: dec}, nil
}

// Close releases the encoder and decoder.
func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}

type recordMeta struct {
	ChunkID  string         `json:"chunk_id"`
	Filename string         `json:"filename"`
	Text     string         `json:"text"`
	Start    time.Time      `json:"start,omitzero"`
	End      time.Time      `json:"end,omitzero"`
	Levels   map[string]int `json:"levels,omitempty"`
}

// MarshalChunkRecord encodes a record as
// magic | uint32 dim | dim float32 values | zstd(JSON metadata).
func (c *Codec) MarshalChunkRecord(r *core.ChunkRecord) ([]byte, error) {
	meta, err := json.Marshal(recordMeta{
		ChunkID:  r.ChunkID,
		Filename: r.Filename,
		Text:     r.Text,
		Start:    r.Start,
		End:      r.End,
		Levels:   r.Levels.ToNames(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(recordMagic)+4+4*len(r.Vector)+len(meta)/2))
	buf.Write(recordMagic)
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], uint32(len(r.Vector)))
	buf.Write(scratch[:])
	for _, v := range r.Vector {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		buf.Write(scratch[:])
	}
	buf.Write(c.encoder.EncodeAll(meta, nil))
	return buf.Bytes(), nil
}

// UnmarshalChunkRecord decodes bytes produced by MarshalChunkRecord.
func (c *Codec) UnmarshalChunkRecord(data []byte) (*core.ChunkRecord, error) {
	if !bytes.HasPrefix(data, recordMagic) {
		return nil, fmt.Errorf("%w: bad record header", ErrSerializationFailed)
	}
	data = data[len(recordMagic):]
	if len(data) < 4 {
		return nil, ErrTruncatedData
	}
	dim := int(binary.LittleEndian.Uint32(data))
	data = data[4:]
	if len(data) < 4*dim {
		return nil, ErrTruncatedData
	}

	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}

	raw, err := c.decoder.DecodeAll(data[4*dim:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	var meta recordMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	return &core.ChunkRecord{
		ChunkID:  meta.ChunkID,
		Filename: meta.Filename,
		Text:     meta.Text,
		Vector:   vector,
		Start:    meta.Start,
		End:      meta.End,
		Levels:   core.HistogramFromNames(meta.Levels),
	}, nil
}

type conversationDoc struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []turnDoc `json:"turns"`
}

type turnDoc struct {
	Question string    `json:"q"`
	Answer   string    `json:"a"`
	AskedAt  time.Time `json:"at"`
}

// MarshalConversation encodes a conversation snapshot.
func (c *Codec) MarshalConversation(conv *core.Conversation) ([]byte, error) {
	doc := conversationDoc{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Turns:     make([]turnDoc, len(conv.Turns)),
	}
	for i, t := range conv.Turns {
		doc.Turns[i] = turnDoc{Question: t.Question, Answer: t.Answer, AskedAt: t.AskedAt}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return c.encoder.EncodeAll(raw, append([]byte(nil), conversationMagic...)), nil
}

// UnmarshalConversation decodes bytes produced by MarshalConversation.
func (c *Codec) UnmarshalConversation(data []byte) (*core.Conversation, error) {
	if !bytes.HasPrefix(data, conversationMagic) {
		return nil, fmt.Errorf("%w: bad conversation header", ErrSerializationFailed)
	}
	raw, err := c.decoder.DecodeAll(data[len(conversationMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	var doc conversationDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}

	conv := &core.Conversation{
		ID:        doc.ID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Turns:     make([]core.Turn, len(doc.Turns)),
	}
	for i, t := range doc.Turns {
		conv.Turns[i] = core.Turn{Question: t.Question, Answer: t.Answer, AskedAt: t.AskedAt}
	}
	return conv, nil
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude score 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
