// Package qdrant implements storage.VectorStore over the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/logsage/core"
	"github.com/poiesic/logsage/storage"
	"github.com/tidwall/gjson"
)

// Config locates a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	// Timeout bounds each HTTP request. Default: 15s
	Timeout time.Duration
}

// Store is a REST client for one Qdrant collection using cosine distance.
// The collection is created on first upsert when missing.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	ready bool
}

var _ storage.VectorStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With("component", "qdrant")
	}
}

// New creates a store for cfg.Collection at cfg.URL.
func New(cfg Config, opts ...Option) (*Store, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant config: URL is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant config: Collection is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	s := &Store{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type point struct {
	ID      uint64       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload pointPayload `json:"payload"`
}

type pointPayload struct {
	ChunkID  string         `json:"chunk_id"`
	Filename string         `json:"filename"`
	Text     string         `json:"text"`
	Start    string         `json:"start,omitempty"`
	End      string         `json:"end,omitempty"`
	Levels   map[string]int `json:"levels,omitempty"`
}

// Upsert writes records as points keyed by a hash of the chunk id.
func (s *Store) Upsert(ctx context.Context, records ...*core.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]point, len(records))
	for i, r := range records {
		if r.ChunkID == "" || len(r.Vector) == 0 {
			return fmt.Errorf("%w: record %q has no id or vector", storage.ErrInvalidQuery, r.ChunkID)
		}
		if len(r.Vector) != len(records[0].Vector) {
			return fmt.Errorf("%w: %s", storage.ErrDimensionMismatch, r.ChunkID)
		}
		points[i] = point{
			ID:     uint64(core.IDFromContent(r.ChunkID)),
			Vector: r.Vector,
			Payload: pointPayload{
				ChunkID:  r.ChunkID,
				Filename: r.Filename,
				Text:     r.Text,
				Start:    formatTime(r.Start),
				End:      formatTime(r.End),
				Levels:   r.Levels.ToNames(),
			},
		}
	}

	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	_, err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points})
	return err
}

// Search queries the collection. A missing collection yields no results.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]*core.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", storage.ErrInvalidQuery)
	}

	body, err := s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
	})
	if errors.Is(err, errCollectionMissing) {
		return []*core.SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	hits := gjson.GetBytes(body, "result").Array()
	results := make([]*core.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, &core.SearchResult{
			Record: recordFromPayload(hit),
			Score:  float32(hit.Get("score").Float()),
		})
	}
	return results, nil
}

// DeleteFile removes every point whose payload filename matches.
func (s *Store) DeleteFile(ctx context.Context, filename string) (int, error) {
	filter := map[string]any{
		"must": []any{
			map[string]any{"key": "filename", "match": map[string]any{"value": filename}},
		},
	}

	n, err := s.count(ctx, filter)
	if err != nil || n == 0 {
		return 0, err
	}
	_, err = s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"filter": filter})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.count(ctx, nil)
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) count(ctx context.Context, filter map[string]any) (int, error) {
	req := map[string]any{"exact": true}
	if filter != nil {
		req["filter"] = filter
	}
	body, err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), req)
	if errors.Is(err, errCollectionMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(gjson.GetBytes(body, "result.count").Int()), nil
}

func (s *Store) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}

	body, err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil)
	switch {
	case err == nil:
		size := gjson.GetBytes(body, "result.config.params.vectors.size")
		if size.Exists() && int(size.Int()) != dim {
			return fmt.Errorf("%w: collection %s has %d dimensions, vectors have %d",
				storage.ErrDimensionMismatch, s.collection, size.Int(), dim)
		}
	case errors.Is(err, errCollectionMissing):
		s.logger.Info("creating collection", "collection", s.collection, "dimension", dim)
		_, err = s.do(ctx, http.MethodPut, s.collectionPath(""), map[string]any{
			"vectors": map[string]any{"size": dim, "distance": "Cosine"},
		})
		if err != nil {
			return err
		}
	default:
		return err
	}

	s.ready = true
	return nil
}

var errCollectionMissing = errors.New("collection not found")

func (s *Store) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// do sends a JSON request and returns the response body. Transport failures
// wrap storage.ErrUnavailable; 404 maps to errCollectionMissing.
func (s *Store) do(ctx context.Context, method, url string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errCollectionMissing
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(data, "status.error").String()
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("qdrant %s %s failed: %s", method, url, msg)
	}
	return data, nil
}

func recordFromPayload(hit gjson.Result) *core.ChunkRecord {
	payload := hit.Get("payload")
	levels := make(map[string]int)
	payload.Get("levels").ForEach(func(key, value gjson.Result) bool {
		levels[key.String()] = int(value.Int())
		return true
	})

	var vector []float32
	for _, v := range hit.Get("vector").Array() {
		vector = append(vector, float32(v.Float()))
	}

	return &core.ChunkRecord{
		ChunkID:  payload.Get("chunk_id").String(),
		Filename: payload.Get("filename").String(),
		Text:     payload.Get("text").String(),
		Vector:   vector,
		Start:    parseTime(payload.Get("start").String()),
		End:      parseTime(payload.Get("end").String()),
		Levels:   core.HistogramFromNames(levels),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
