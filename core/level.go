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
	"strconv"
	"strings"
)

// Level is the severity of a log entry.
type Level int

const (
	// LevelUnknown is assigned when no severity could be extracted.
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// Levels lists every level in ascending severity, starting with LevelUnknown.
var Levels = []Level{LevelUnknown, LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal}

var levelNames = [...]string{
	LevelUnknown: "UNKNOWN",
	LevelTrace:   "TRACE",
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarn:    "WARN",
	LevelError:   "ERROR",
	LevelFatal:   "FATAL",
}

// String returns the canonical upper-case name of the level.
func (l Level) String() string {
	if l < LevelUnknown || l > LevelFatal {
		return levelNames[LevelUnknown]
	}
	return levelNames[l]
}

// IsError reports whether the level is ERROR or FATAL.
func (l Level) IsError() bool {
	return l == LevelError || l == LevelFatal
}

// IsProblem reports whether the level is WARN or worse.
func (l Level) IsProblem() bool {
	return l >= LevelWarn
}

// ParseLevel maps a level token to a Level. It understands the usual
// spellings across logging frameworks (WARNING, CRITICAL, ERR, SEVERE...)
// as well as numeric bunyan/pino levels. Unrecognized input yields
// LevelUnknown and false.
func ParseLevel(s string) (Level, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return LevelUnknown, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return levelFromNumber(n)
	}

	switch strings.ToUpper(s) {
	case "TRACE", "TRC", "FINEST", "FINER":
		return LevelTrace, true
	case "DEBUG", "DBG", "FINE", "VERBOSE":
		return LevelDebug, true
	case "INFO", "INF", "INFORMATION", "NOTICE":
		return LevelInfo, true
	case "WARN", "WARNING", "WRN":
		return LevelWarn, true
	case "ERROR", "ERR", "SEVERE", "EROR":
		return LevelError, true
	case "FATAL", "CRITICAL", "CRIT", "PANIC", "EMERG", "ALERT", "FTL":
		return LevelFatal, true
	}
	return LevelUnknown, false
}

// levelFromNumber maps bunyan/pino numeric levels.
func levelFromNumber(n int) (Level, bool) {
	switch {
	case n >= 60:
		return LevelFatal, true
	case n >= 50:
		return LevelError, true
	case n >= 40:
		return LevelWarn, true
	case n >= 30:
		return LevelInfo, true
	case n >= 20:
		return LevelDebug, true
	case n >= 10:
		return LevelTrace, true
	}
	return LevelUnknown, false
}

// LevelHistogram counts entries per level.
type LevelHistogram map[Level]int

// Add increments the count for a level.
func (h LevelHistogram) Add(l Level) {
	h[l]++
}

// Merge adds all counts from other into h.
func (h LevelHistogram) Merge(other LevelHistogram) {
	for l, n := range other {
		h[l] += n
	}
}

// Total returns the sum of all counts.
func (h LevelHistogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// Errors returns the number of ERROR and FATAL entries.
func (h LevelHistogram) Errors() int {
	return h[LevelError] + h[LevelFatal]
}

// Warnings returns the number of WARN entries.
func (h LevelHistogram) Warnings() int {
	return h[LevelWarn]
}

// Dominant returns the most severe level present, or LevelUnknown.
func (h LevelHistogram) Dominant() Level {
	for i := len(Levels) - 1; i > 0; i-- {
		if h[Levels[i]] > 0 {
			return Levels[i]
		}
	}
	return LevelUnknown
}

// Clone returns an independent copy.
func (h LevelHistogram) Clone() LevelHistogram {
	out := make(LevelHistogram, len(h))
	for l, n := range h {
		out[l] = n
	}
	return out
}

// ToNames converts the histogram to a name-keyed map for serialization.
func (h LevelHistogram) ToNames() map[string]int {
	out := make(map[string]int, len(h))
	for l, n := range h {
		if n > 0 {
			out[l.String()] = n
		}
	}
	return out
}

// HistogramFromNames is the inverse of ToNames.
func HistogramFromNames(m map[string]int) LevelHistogram {
	h := make(LevelHistogram, len(m))
	for name, n := range m {
		l, ok := ParseLevel(name)
		if !ok && name != LevelUnknown.String() {
			continue
		}
		h[l] += n
	}
	return h
}
