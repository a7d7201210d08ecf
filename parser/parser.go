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

package parser

import (
	"bytes"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/logsage/core"
)

const (
	// DefaultSampleSize is how many non-blank lines detection inspects.
	DefaultSampleSize = 20
	// DefaultMinSuccessRatio is the fraction of sampled lines a variant must accept.
	DefaultMinSuccessRatio = 0.5
	// DefaultMaxContinuationLines bounds how many lines fold into one entry.
	DefaultMaxContinuationLines = 100
)

// Parser detects the format of log files and splits them into entries.
// A Parser is immutable after construction and safe for concurrent use.
type Parser struct {
	sampleSize      int
	minRatio        float64
	maxContinuation int
	syslogYear      int
	variants        []Variant
	logger          *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithSampleSize sets how many non-blank lines are inspected during detection.
func WithSampleSize(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.sampleSize = n
		}
	}
}

// WithMinSuccessRatio sets the fraction of sampled lines a variant must parse
// to be selected. Files where no variant reaches it are parsed as plain text.
func WithMinSuccessRatio(r float64) Option {
	return func(p *Parser) {
		if r > 0 && r <= 1 {
			p.minRatio = r
		}
	}
}

// WithMaxContinuationLines bounds the number of continuation lines folded into
// a single entry. Further continuation lines become UNKNOWN entries.
func WithMaxContinuationLines(n int) Option {
	return func(p *Parser) {
		if n >= 0 {
			p.maxContinuation = n
		}
	}
}

// WithSyslogYear sets the year assumed for syslog timestamps. Defaults to the current year.
func WithSyslogYear(year int) Option {
	return func(p *Parser) {
		p.syslogYear = year
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Parser with the default variants.
func New(opts ...Option) *Parser {
	p := &Parser{
		sampleSize:      DefaultSampleSize,
		minRatio:        DefaultMinSuccessRatio,
		maxContinuation: DefaultMaxContinuationLines,
		syslogYear:      time.Now().Year(),
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.variants = defaultVariants(p.syslogYear)
	p.logger = p.logger.With("component", "parser")
	return p
}

// Detection is the outcome of format detection.
type Detection struct {
	Format  Format
	Ratio   float64 // fraction of scored sample lines the variant accepted
	Sampled int     // lines scored, continuation lines excluded
}

// Detect picks the variant that parses the highest fraction of the sample.
// Ties go to the earlier variant. Lines that look like stack-trace
// continuations are not scored.
func (p *Parser) Detect(sample []string) Detection {
	_, d := p.detect(sample)
	return d
}

func (p *Parser) detect(sample []string) (Variant, Detection) {
	scored := make([]string, 0, len(sample))
	for _, line := range sample {
		if strings.TrimSpace(line) == "" || isContinuation(line) {
			continue
		}
		scored = append(scored, line)
	}
	if len(scored) == 0 {
		return plainVariant{}, Detection{Format: FormatPlain}
	}

	var best Variant = plainVariant{}
	bestRatio := 0.0
	for _, v := range p.variants {
		ok := 0
		for _, line := range scored {
			if _, parsed := v.TryParse(line); parsed {
				ok++
			}
		}
		ratio := float64(ok) / float64(len(scored))
		if ratio > bestRatio {
			best, bestRatio = v, ratio
		}
	}
	if bestRatio < p.minRatio {
		return plainVariant{}, Detection{Format: FormatPlain, Ratio: bestRatio, Sampled: len(scored)}
	}
	return best, Detection{Format: best.Format(), Ratio: bestRatio, Sampled: len(scored)}
}

// Parse validates data and detects its format. The returned Document
// produces entries lazily. Only empty or binary input is an error; invalid
// UTF-8 sequences are replaced with U+FFFD.
func (p *Parser) Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, core.ErrEmptyInput)
	}
	if !core.IsText(data) {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, core.ErrNotText)
	}
	data = core.ToValidText(data)

	sample := make([]string, 0, p.sampleSize)
	for _, line := range physicalLines(data) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) >= p.sampleSize {
			break
		}
	}

	variant, detection := p.detect(sample)
	p.logger.Debug("detected log format",
		"format", detection.Format,
		"ratio", detection.Ratio,
		"sampled", detection.Sampled)

	return &Document{
		Detection:       detection,
		data:            data,
		variant:         variant,
		maxContinuation: p.maxContinuation,
	}, nil
}

// ParseAs skips detection and parses data with the named format.
func (p *Parser) ParseAs(data []byte, format Format) (*Document, error) {
	doc, err := p.Parse(data)
	if err != nil {
		return nil, err
	}
	if format == FormatPlain {
		doc.variant = plainVariant{}
		doc.Detection = Detection{Format: FormatPlain}
		return doc, nil
	}
	for _, v := range p.variants {
		if v.Format() == format {
			doc.variant = v
			doc.Detection = Detection{Format: format, Ratio: 1}
			return doc, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Document is a parsed view over one log file.
type Document struct {
	Detection

	data            []byte
	variant         Variant
	maxContinuation int
}

// Entries yields the file's entries in file order. Each call rescans the data.
func (d *Document) Entries() iter.Seq[core.LogEntry] {
	return func(yield func(core.LogEntry) bool) {
		var (
			pending      core.LogEntry
			hasPending   bool
			continuation int
			raw          strings.Builder
		)

		flush := func() bool {
			if !hasPending {
				return true
			}
			if continuation > 0 {
				pending.Raw = raw.String()
			}
			hasPending = false
			return yield(pending)
		}

		for n, line := range physicalLines(d.data) {
			if strings.TrimSpace(line) == "" {
				continue
			}

			entry, ok := d.variant.TryParse(line)
			if !ok && hasPending && continuation < d.maxContinuation && isContinuation(line) {
				if continuation == 0 {
					raw.Reset()
					raw.WriteString(pending.Raw)
				}
				raw.WriteByte('\n')
				raw.WriteString(line)
				continuation++
				continue
			}

			if !flush() {
				return
			}
			if !ok {
				entry = core.LogEntry{Raw: line, Level: core.LevelUnknown, Message: strings.TrimSpace(line)}
			}
			entry.Line = n
			pending, hasPending, continuation = entry, true, 0
		}
		flush()
	}
}

// Collect returns all entries as a slice.
func (d *Document) Collect() []core.LogEntry {
	return slices.Collect(d.Entries())
}

// physicalLines yields 1-based line numbers and lines with trailing "\r" removed.
func physicalLines(data []byte) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		n := 0
		for len(data) > 0 {
			n++
			var line []byte
			if i := bytes.IndexByte(data, '\n'); i >= 0 {
				line, data = data[:i], data[i+1:]
			} else {
				line, data = data, nil
			}
			line = bytes.TrimSuffix(line, []byte{'\r'})
			if !yield(n, string(line)) {
				return
			}
		}
	}
}
