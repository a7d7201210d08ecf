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

package chunker

import (
	"errors"
	"time"
)

// Config holds chunking parameters.
type Config struct {
	// TargetChars is the soft character budget per chunk.
	// Default: 1000
	TargetChars int

	// MaxChars is the hard ceiling an error cluster may grow to past the soft budget.
	// Default: 3000
	MaxChars int

	// MaxEntries forces a boundary once a chunk holds this many entries.
	// Default: 50
	MaxEntries int

	// TimeGap forces a boundary when consecutive timestamped entries are at least this far apart.
	// Zero disables gap splitting.
	// Default: 5m
	TimeGap time.Duration

	// OverlapEntries is how many entries each chunk borrows from the end of its predecessor.
	// Default: 2
	OverlapEntries int

	// MaxChunks caps how many chunks are kept per file, highest priority first.
	// Zero keeps every chunk.
	// Default: 50
	MaxChunks int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithTargetChars sets the soft character budget.
func WithTargetChars(n int) ConfigOption {
	return func(c *Config) {
		c.TargetChars = n
	}
}

// WithMaxChars sets the hard character ceiling for error clusters.
func WithMaxChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxChars = n
	}
}

// WithMaxEntries sets the entry count limit.
func WithMaxEntries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxEntries = n
	}
}

// WithTimeGap sets the incident gap threshold.
func WithTimeGap(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.TimeGap = d
	}
}

// WithOverlapEntries sets the overlap window size.
func WithOverlapEntries(n int) ConfigOption {
	return func(c *Config) {
		c.OverlapEntries = n
	}
}

// WithMaxChunks sets the per-file chunk cap.
func WithMaxChunks(n int) ConfigOption {
	return func(c *Config) {
		c.MaxChunks = n
	}
}

// DefaultConfig returns a Config with the default chunking parameters.
func DefaultConfig() *Config {
	return &Config{
		TargetChars:    1000,
		MaxChars:       3000,
		MaxEntries:     50,
		TimeGap:        5 * time.Minute,
		OverlapEntries: 2,
		MaxChunks:      50,
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
	if c.TargetChars < 1 {
		return errors.New("chunker config: TargetChars must be positive")
	}
	if c.MaxChars < c.TargetChars {
		return errors.New("chunker config: MaxChars must be at least TargetChars")
	}
	if c.MaxEntries < 1 {
		return errors.New("chunker config: MaxEntries must be positive")
	}
	if c.TimeGap < 0 {
		return errors.New("chunker config: TimeGap cannot be negative")
	}
	if c.OverlapEntries < 0 {
		return errors.New("chunker config: OverlapEntries cannot be negative")
	}
	if c.MaxChunks < 0 {
		return errors.New("chunker config: MaxChunks cannot be negative")
	}
	return nil
}
