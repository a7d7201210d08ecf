package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultDimension is the vector size produced by the default behavior.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	mu sync.RWMutex

	// embedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	embedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// latencyFunc returns an artificial delay applied before each call.
	latencyFunc func(text string) time.Duration

	callCount atomic.Int64
	inFlight  atomic.Int64
	maxFlight atomic.Int64
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// WithEmbedTextFunc replaces the default behavior.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedTextFunc = fn
	return m
}

// WithLatency delays every call by the duration fn returns for its text.
// The delay honors context cancellation.
func (m *MockEmbedder) WithLatency(fn func(text string) time.Duration) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencyFunc = fn
	return m
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.callCount.Add(1)
	current := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		peak := m.maxFlight.Load()
		if current <= peak || m.maxFlight.CompareAndSwap(peak, current) {
			break
		}
	}

	m.mu.RLock()
	fn, latency := m.embedTextFunc, m.latencyFunc
	m.mu.RUnlock()

	if latency != nil {
		if d := latency(text); d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	if fn != nil {
		return fn(ctx, text)
	}
	return GenerateDeterministicVector(text, DefaultDimension), nil
}

// EmbedTexts generates embeddings for multiple texts by calling EmbedText for each.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// CallCount returns the number of single-text embedding calls made.
func (m *MockEmbedder) CallCount() int {
	return int(m.callCount.Load())
}

// MaxConcurrent returns the highest number of calls observed in flight at once.
func (m *MockEmbedder) MaxConcurrent() int {
	return int(m.maxFlight.Load())
}

// Reset clears counters and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount.Store(0)
	m.maxFlight.Store(0)
	m.embedTextFunc = nil
	m.latencyFunc = nil
}

// GenerateDeterministicVector creates a deterministic unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func GenerateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 - 0.5
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1.0 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
