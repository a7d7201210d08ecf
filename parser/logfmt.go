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

// minLogfmtPairs is how many key=value pairs a line needs to count as logfmt.
const minLogfmtPairs = 3

var logfmtPairPattern = regexp.MustCompile(`([\w.\-]+)=(?:"((?:[^"\\]|\\.)*)"|(\S*))`)

// logfmtVariant parses key=value lines as emitted by Go and Prometheus tooling.
type logfmtVariant struct{}

func (logfmtVariant) Format() Format { return FormatLogfmt }

func (logfmtVariant) TryParse(line string) (core.LogEntry, bool) {
	matches := logfmtPairPattern.FindAllStringSubmatch(line, -1)
	if len(matches) < minLogfmtPairs {
		return core.LogEntry{}, false
	}

	fields := make(map[string]string, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m[1])
		if _, seen := fields[key]; seen {
			continue
		}
		value := m[3]
		if m[2] != "" || strings.HasPrefix(m[0][len(m[1])+1:], `"`) {
			value = strings.ReplaceAll(m[2], `\"`, `"`)
		}
		fields[key] = value
	}

	entry := core.LogEntry{
		Raw:     line,
		Level:   core.LevelUnknown,
		Message: firstNonEmpty(fields["msg"], fields["message"]),
		Logger:  firstNonEmpty(fields["logger"], fields["component"], fields["caller"]),
	}
	if ts := firstNonEmpty(fields["time"], fields["timestamp"], fields["ts"]); ts != "" {
		entry.Timestamp, _ = parseTimestamp(ts)
	}
	if lvl := firstNonEmpty(fields["level"], fields["lvl"], fields["severity"]); lvl != "" {
		entry.Level, _ = core.ParseLevel(lvl)
	}
	return entry, true
}
