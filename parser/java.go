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

var (
	// 2025-01-01 12:00:00,123 ERROR [main] com.example.Service: message
	javaLinePattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[,.:]\d{1,9})?)\s+` +
			`(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|SEVERE)\s+` +
			`\[([^\]]+)\]\s+` +
			`([a-zA-Z][\w.$]*(?::\w+)?)` +
			`[:\s-]*(.*)$`)

	// 2025-01-01 12:00:00,123 - WARN  [main:QuorumPeer@101] - message
	zookeeperLinePattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[,.:]\d{1,9})?)\s*-\s*` +
			`(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|SEVERE)\s+` +
			`\[([^\]]+)\]\s*-\s*(.*)$`)

	// 2025-01-01 12:00:00.123 [thread] ERROR com.example.Service - message (logback default)
	logbackLinePattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[,.:]\d{1,9})?)\s+` +
			`\[([^\]]+)\]\s+` +
			`(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|SEVERE)\s+` +
			`([a-zA-Z][\w.$]*)\s*-\s*(.*)$`)

	// 2025-01-01 12:00:00 ERROR message (framework default without thread or logger)
	frameworkLinePattern = regexp.MustCompile(
		`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}(?:[,.:]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?)\s+` +
			`\[?(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|SEVERE|CRITICAL)\]?\s*[:\-]?\s*(.*)$`)
)

// javaVariant parses log4j, logback and Zookeeper style lines. Stack traces
// that follow a line are folded into it by the document scanner.
type javaVariant struct{}

func (javaVariant) Format() Format { return FormatJava }

func (javaVariant) TryParse(line string) (core.LogEntry, bool) {
	entry := core.LogEntry{Raw: line}

	if m := zookeeperLinePattern.FindStringSubmatch(line); m != nil {
		entry.Timestamp, _ = parseTimestamp(m[1])
		entry.Level, _ = core.ParseLevel(m[2])
		if _, logger, ok := strings.Cut(m[3], ":"); ok {
			entry.Logger = logger
		}
		entry.Message = m[4]
		return entry, true
	}
	if m := javaLinePattern.FindStringSubmatch(line); m != nil {
		entry.Timestamp, _ = parseTimestamp(m[1])
		entry.Level, _ = core.ParseLevel(m[2])
		entry.Logger = m[4]
		entry.Message = m[5]
		return entry, true
	}
	if m := logbackLinePattern.FindStringSubmatch(line); m != nil {
		entry.Timestamp, _ = parseTimestamp(m[1])
		entry.Level, _ = core.ParseLevel(m[3])
		entry.Logger = m[4]
		entry.Message = m[5]
		return entry, true
	}
	if m := frameworkLinePattern.FindStringSubmatch(line); m != nil {
		entry.Timestamp, _ = parseTimestamp(m[1])
		entry.Level, _ = core.ParseLevel(m[2])
		entry.Message = m[3]
		return entry, true
	}
	return core.LogEntry{}, false
}
