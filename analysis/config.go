package analysis

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultTopK          = 6
	DefaultHistoryWindow = 3
	DefaultMinScore      = 0.35
	DefaultQuoteLimit    = 350
	DefaultCallTimeout   = 120 * time.Second
)

// Config controls answer synthesis.
type Config struct {
	// TopK is used when a caller passes a non-positive topK.
	TopK int
	// HistoryWindow is how many prior turns go into the prompt.
	HistoryWindow int
	// MinScore is the similarity below which evidence counts as weak.
	MinScore float32
	// QuoteLimit truncates evidence quotes in the result.
	QuoteLimit int
	// CallTimeout bounds each reasoning call.
	CallTimeout time.Duration
}

// ConfigOption is a functional option for Config.
type ConfigOption func(*Config)

// WithTopK sets how many chunks are retrieved when the caller passes no top_k.
func WithTopK(k int) ConfigOption {
	return func(c *Config) { c.TopK = k }
}

// WithHistoryWindow sets how many earlier turns are included in the prompt.
func WithHistoryWindow(n int) ConfigOption {
	return func(c *Config) { c.HistoryWindow = n }
}

// WithMinScore sets the similarity a chunk needs before it counts as supporting
// evidence for confidence scoring. Retrieval itself has no cutoff.
func WithMinScore(score float32) ConfigOption {
	return func(c *Config) { c.MinScore = score }
}

// WithQuoteLimit sets the maximum length, in characters, of evidence quotes.
func WithQuoteLimit(n int) ConfigOption {
	return func(c *Config) { c.QuoteLimit = n }
}

// WithCallTimeout bounds each call to the reasoning service.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(c *Config) { c.CallTimeout = d }
}

// DefaultConfig returns the default synthesis settings.
func DefaultConfig() *Config {
	return &Config{
		TopK:          DefaultTopK,
		HistoryWindow: DefaultHistoryWindow,
		MinScore:      DefaultMinScore,
		QuoteLimit:    DefaultQuoteLimit,
		CallTimeout:   DefaultCallTimeout,
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...ConfigOption) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("analysis config: top_k must be positive, got %d", c.TopK)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("analysis config: history window cannot be negative, got %d", c.HistoryWindow)
	}
	if c.MinScore < 0 || c.MinScore >= 1 {
		return fmt.Errorf("analysis config: min score must be in [0, 1), got %v", c.MinScore)
	}
	if c.QuoteLimit <= 0 {
		return fmt.Errorf("analysis config: quote limit must be positive, got %d", c.QuoteLimit)
	}
	if c.CallTimeout <= 0 {
		return errors.New("analysis config: call timeout must be positive")
	}
	return nil
}
