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
	"strings"

	"github.com/poiesic/logsage/core"
	"github.com/tidwall/gjson"
)

// Field name fallbacks, in priority order, across structured logging libraries.
var (
	jsonTimestampKeys = []string{"timestamp", "time", "@timestamp", "ts", "date"}
	jsonLevelKeys     = []string{"level", "severity", "log_level", "lvl", "loglevel"}
	jsonMessageKeys   = []string{"message", "msg", "log", "event"}
	jsonLoggerKeys    = []string{"logger", "name", "source", "logger_name", "component"}
)

// jsonVariant parses one JSON object per line.
type jsonVariant struct{}

func (jsonVariant) Format() Format { return FormatJSON }

func (jsonVariant) TryParse(line string) (core.LogEntry, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") || !gjson.Valid(trimmed) {
		return core.LogEntry{}, false
	}

	// Index top-level keys case-insensitively; keys such as "@timestamp"
	// would otherwise be read as gjson path modifiers.
	fields := make(map[string]gjson.Result)
	gjson.Parse(trimmed).ForEach(func(key, value gjson.Result) bool {
		k := strings.ToLower(key.String())
		if _, seen := fields[k]; !seen {
			fields[k] = value
		}
		return true
	})

	entry := core.LogEntry{Raw: line, Level: core.LevelUnknown}

	if v, ok := lookup(fields, jsonTimestampKeys); ok {
		switch v.Type {
		case gjson.Number:
			entry.Timestamp, _ = epochToTime(v.Num)
		case gjson.String:
			entry.Timestamp, _ = parseTimestamp(v.Str)
		}
	}
	if v, ok := lookup(fields, jsonLevelKeys); ok {
		entry.Level, _ = core.ParseLevel(v.String())
	}
	if v, ok := lookup(fields, jsonMessageKeys); ok {
		entry.Message = v.String()
	}
	if v, ok := lookup(fields, jsonLoggerKeys); ok && v.Type == gjson.String {
		entry.Logger = v.Str
	}
	return entry, true
}

func lookup(fields map[string]gjson.Result, keys []string) (gjson.Result, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}
