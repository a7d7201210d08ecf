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
	"math"
	"strings"
	"time"
)

// timestampLayouts are tried in order. Fractional seconds are accepted after
// the seconds field by time.Parse even when the layout omits them.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	time.RFC1123Z,
	time.RFC1123,
}

// parseTimestamp parses the timestamp formats commonly found in logs.
// Java-style millisecond separators (",123" and ":123") are normalized first.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 8 {
		return time.Time{}, false
	}
	if len(s) > 19 && (s[19] == ',' || s[19] == ':') && s[4] == '-' {
		s = s[:19] + "." + s[20:]
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseSyslogTimestamp parses an RFC 3164 timestamp, which carries no year.
func parseSyslogTimestamp(s string, year int) (time.Time, bool) {
	t, err := time.Parse(time.Stamp, strings.Join(strings.Fields(s), " "))
	if err != nil {
		t, err = time.Parse("Jan 2 15:04:05", strings.Join(strings.Fields(s), " "))
		if err != nil {
			return time.Time{}, false
		}
	}
	return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
}

// epochToTime interprets a numeric timestamp as seconds, milliseconds,
// microseconds or nanoseconds depending on its magnitude.
func epochToTime(v float64) (time.Time, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return time.Time{}, false
	}
	switch {
	case v >= 1e17:
		return time.Unix(0, int64(v)).UTC(), true
	case v >= 1e14:
		return time.UnixMicro(int64(v)).UTC(), true
	case v >= 1e11:
		return time.UnixMilli(int64(v)).UTC(), true
	default:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	}
}
