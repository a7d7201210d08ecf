package retrieval

import (
	"log/slog"

	"github.com/poiesic/logsage/core"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(question string, topK int)
	AfterEmbedding(dimension int)
	Hit(rank int, result *core.SearchResult)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int) {}
func (n *noopMonitor) AfterEmbedding(_ int) {}
func (n *noopMonitor) Hit(_ int, _ *core.SearchResult) {}
func (n *noopMonitor) Finish(_ []*core.SearchResult) {}

// LogMonitor reports every stage at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

func (m *LogMonitor) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

func (m *LogMonitor) Start(question string, topK int) {
	m.logger().Debug("retrieval started", "question_length", len(question), "top_k", topK)
}

func (m *LogMonitor) AfterEmbedding(dimension int) {
	m.logger().Debug("question embedded", "dimension", dimension)
}

func (m *LogMonitor) Hit(rank int, result *core.SearchResult) {
	m.logger().Debug("retrieved chunk",
		"rank", rank,
		"chunk_id", result.Record.ChunkID,
		"score", result.Score,
		"level", result.Record.Levels.Dominant().String())
}

func (m *LogMonitor) Finish(results []*core.SearchResult) {
	m.logger().Debug("retrieval finished", "hits", len(results))
}
