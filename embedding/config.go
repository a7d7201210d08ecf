package embedding

import (
	"errors"
	"time"
)

// Config controls the embedding pipeline.
type Config struct {
	// Concurrency is the worker pool size. Default: 5
	Concurrency int

	// MaxAttempts bounds the calls made for one text. Default: 3
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff. Default: 500ms
	RetryDelay time.Duration

	// CallTimeout bounds a single embedding call. Default: 30s
	CallTimeout time.Duration

	// Normalize scales every vector to unit length so dot product equals
	// cosine similarity in the stores. Default: true
	Normalize bool
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithConcurrency sets the worker pool size.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithMaxAttempts sets the per-text attempt bound.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = n
	}
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithCallTimeout sets the per-call timeout.
func WithCallTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.CallTimeout = d
	}
}

// WithNormalize toggles unit-length normalization.
func WithNormalize(enabled bool) ConfigOption {
	return func(c *Config) {
		c.Normalize = enabled
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 5,
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
		CallTimeout: 30 * time.Second,
		Normalize:   true,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("embedding config: Concurrency must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("embedding config: MaxAttempts must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("embedding config: RetryDelay cannot be negative")
	}
	if c.CallTimeout < 0 {
		return errors.New("embedding config: CallTimeout cannot be negative")
	}
	return nil
}
