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
	"regexp"
	"strings"

	"github.com/poiesic/logsage/core"
)

// Format names a log file layout.
type Format string

const (
	FormatJSON   Format = "json"
	FormatLogfmt Format = "logfmt"
	FormatJava   Format = "java"
	FormatSyslog Format = "syslog"
	FormatPlain  Format = "plain"
)

// Variant parses single lines of one log format.
// Implementations must be stateless and safe for concurrent use.
type Variant interface {
	// Format returns the format this variant recognizes.
	Format() Format

	// TryParse parses one physical line. It returns false when the line
	// does not belong to this format; the returned entry is then ignored.
	// Line numbers are assigned by the caller.
	TryParse(line string) (core.LogEntry, bool)
}

// Patterns shared by all multi-line aware variants.
var (
	continuationPattern = regexp.MustCompile(`^(?:[ \t]+\S|Caused by:|Suppressed:|Traceback \(most recent call last\)|\.\.\. \d+ more)`)
	exceptionPattern    = regexp.MustCompile(`^(?:[a-zA-Z_$][\w$]*\.)+[A-Z][\w$]*(?:Exception|Error|Throwable)\b`)
	levelWordPattern    = regexp.MustCompile(`(?i)\b(TRACE|DEBUG|INFO|NOTICE|WARN|WARNING|ERROR|ERR|SEVERE|FATAL|CRITICAL|PANIC)\b`)
)

// isContinuation reports whether line continues the previous entry,
// as stack-trace frames and "Caused by" lines do.
func isContinuation(line string) bool {
	return continuationPattern.MatchString(line) || exceptionPattern.MatchString(line)
}

// levelFromText finds the first level keyword in free text.
func levelFromText(s string) core.Level {
	m := levelWordPattern.FindStringSubmatch(s)
	if m == nil {
		return core.LevelUnknown
	}
	l, _ := core.ParseLevel(m[1])
	return l
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// defaultVariants returns the structured variants in tie-break order.
func defaultVariants(syslogYear int) []Variant {
	return []Variant{
		jsonVariant{},
		logfmtVariant{},
		javaVariant{},
		syslogVariant{year: syslogYear},
	}
}

// plainVariant accepts every line verbatim with no level or timestamp.
type plainVariant struct{}

func (plainVariant) Format() Format { return FormatPlain }

func (plainVariant) TryParse(line string) (core.LogEntry, bool) {
	return core.LogEntry{Raw: line, Level: core.LevelUnknown, Message: strings.TrimSpace(line)}, true
}
