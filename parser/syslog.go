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

	"github.com/poiesic/logsage/core"
)

// Mar  1 12:00:00 host app[123]: message
var syslogLinePattern = regexp.MustCompile(
	`^(?:<\d{1,3}>)?([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+` +
		`(\S+)\s+` +
		`([^\[:\s]+)(?:\[(\d+)\])?:\s*(.*)$`)

// syslogVariant parses RFC 3164 lines. The format carries no year and no
// severity outside the optional PRI field, so the year comes from the parser
// configuration and the level is read from the message text.
type syslogVariant struct {
	year int
}

func (syslogVariant) Format() Format { return FormatSyslog }

func (v syslogVariant) TryParse(line string) (core.LogEntry, bool) {
	m := syslogLinePattern.FindStringSubmatch(line)
	if m == nil {
		return core.LogEntry{}, false
	}
	entry := core.LogEntry{
		Raw:     line,
		Logger:  m[3],
		Message: m[5],
		Level:   levelFromText(m[5]),
	}
	entry.Timestamp, _ = parseSyslogTimestamp(m[1], v.year)
	return entry, true
}
