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
	"slices"
	"time"

	"github.com/poiesic/logsage/core"
)

// maxStatsLoggers caps the distinct logger names reported in Stats.
const maxStatsLoggers = 20

// Stats summarizes a parsed log file.
type Stats struct {
	Format         Format         `json:"format" yaml:"format"`
	TotalEntries   int            `json:"total_entries" yaml:"total_entries"`
	Levels         map[string]int `json:"levels" yaml:"levels"`
	ErrorCount     int            `json:"error_count" yaml:"error_count"`
	WarnCount      int            `json:"warn_count" yaml:"warn_count"`
	FirstTimestamp time.Time      `json:"first_timestamp,omitzero" yaml:"first_timestamp,omitempty"`
	LastTimestamp  time.Time      `json:"last_timestamp,omitzero" yaml:"last_timestamp,omitempty"`
	Loggers        []string       `json:"loggers" yaml:"loggers"`
	TraceIDs       int            `json:"trace_ids" yaml:"trace_ids"`
}

// ComputeStats builds Stats from a document's entries.
func ComputeStats(format Format, entries []core.LogEntry) Stats {
	hist := core.LevelHistogram{}
	loggers := make(map[string]struct{})
	stats := Stats{Format: format, TotalEntries: len(entries)}

	for _, e := range entries {
		hist.Add(e.Level)
		if e.HasTimestamp() {
			if stats.FirstTimestamp.IsZero() {
				stats.FirstTimestamp = e.Timestamp
			}
			stats.LastTimestamp = e.Timestamp
		}
		if e.Logger != "" {
			loggers[e.Logger] = struct{}{}
		}
	}

	stats.Levels = hist.ToNames()
	stats.ErrorCount = hist.Errors()
	stats.WarnCount = hist.Warnings()
	stats.Loggers = make([]string, 0, len(loggers))
	for name := range loggers {
		stats.Loggers = append(stats.Loggers, name)
	}
	slices.Sort(stats.Loggers)
	if len(stats.Loggers) > maxStatsLoggers {
		stats.Loggers = stats.Loggers[:maxStatsLoggers]
	}
	stats.TraceIDs = len(ExtractTraceIDs(entries))
	return stats
}

var traceIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:request[_-]?id|req[_-]?id|trace[_-]?id|correlation[_-]?id|x-request-id)["']?[=:\s]+["']?([a-zA-Z0-9_-]+)`),
	regexp.MustCompile(`(?i)\b(?:transaction|txn|tx)[_-]?(?:id)?["']?[=:\s]+["']?([a-zA-Z0-9_-]+)`),
}

// ExtractTraceIDs maps request, trace and transaction ids to the indices of
// the entries that mention them. Only the first id found per entry counts.
func ExtractTraceIDs(entries []core.LogEntry) map[string][]int {
	ids := make(map[string][]int)
	for i, e := range entries {
		for _, re := range traceIDPatterns {
			if m := re.FindStringSubmatch(e.Raw); m != nil {
				ids[m[1]] = append(ids[m[1]], i)
				break
			}
		}
	}
	return ids
}
