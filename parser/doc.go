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

// Package parser turns raw log bytes into an ordered stream of core.LogEntry.
//
// A Parser samples a bounded prefix of the file, scores every known format
// variant by the fraction of sampled lines it accepts, and picks the best one.
// When no variant clears the minimum success ratio the file is treated as
// plain text: one UNKNOWN entry per physical line.
//
// Parsing never fails on malformed lines. A line the chosen variant rejects is
// either folded into the previous entry (stack-trace continuations, bounded by
// a maximum line count) or emitted on its own with level UNKNOWN.
//
// # Usage
//
//	p := parser.New()
//	doc, err := p.Parse(data)
//	if err != nil {
//	    return err // core.ErrEmptyInput or core.ErrNotText
//	}
//	for entry := range doc.Entries() {
//	    ...
//	}
//
// Document.Entries is restartable: each call rescans the underlying bytes.
package parser
