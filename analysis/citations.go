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


package analysis

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/logsage/core"
)

// chunkRefPattern matches anything shaped like a chunk id: a filename with
// an extension, '#', and a zero-padded sequence number.
var chunkRefPattern = regexp.MustCompile(`[\w\-/]+(?:\.[\w\-/]+)+#\d{4,}`)

// chunkRefs scans text for chunk ids. known lists the retrieved ids in
// order of first mention; unknown lists id-shaped tokens that name no
// retrieved chunk. Ids match as whole tokens, so "a.log#0001" is not found
// inside "data.log#0001".
func chunkRefs(text string, results []*core.SearchResult) (known, unknown []string) {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r.Record.ChunkID != "" {
			ids = append(ids, r.Record.ChunkID)
		}
	}
	// Longest first so an id that prefixes another cannot claim its text.
	slices.SortStableFunc(ids, func(a, b string) int { return cmp.Compare(len(b), len(a)) })

	type mention struct {
		pos int
		id  string
	}
	var mentions []mention
	masked := []byte(text)
	for _, id := range ids {
		for from := 0; from < len(masked); {
			i := strings.Index(string(masked[from:]), id)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(id)
			if !isWholeRef(masked, start, end) {
				from = start + 1
				continue
			}
			mentions = append(mentions, mention{pos: start, id: id})
			for j := start; j < end; j++ {
				masked[j] = ' '
			}
			from = end
		}
	}

	slices.SortFunc(mentions, func(a, b mention) int { return cmp.Compare(a.pos, b.pos) })
	for _, m := range mentions {
		if !slices.Contains(known, m.id) {
			known = append(known, m.id)
		}
	}
	for _, tok := range chunkRefPattern.FindAllString(string(masked), -1) {
		if !slices.Contains(unknown, tok) {
			unknown = append(unknown, tok)
		}
	}
	return known, unknown
}

// isWholeRef reports whether text[start:end] is not glued to a longer
// filename on the left or a longer sequence number on the right.
func isWholeRef(text []byte, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRune(text[:start])
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._-/", r) {
			return false
		}
	}
	if end < len(text) && text[end] >= '0' && text[end] <= '9' {
		return false
	}
	return true
}

// answerProse joins the free-text fields of an answer.
func answerProse(answer *modelAnswer) string {
	return strings.Join(append([]string{answer.Summary, answer.RootCause}, answer.NextSteps...), "\n")
}

// checkRefs rejects an answer whose prose names chunks that were never
// retrieved. The rejection is retryable unless this was the final attempt.
func checkRefs(answer *modelAnswer, results []*core.SearchResult, final bool) outcome {
	_, unknown := chunkRefs(answerProse(answer), results)
	if len(unknown) == 0 {
		return success{answer: answer}
	}
	err := fmt.Errorf("%w: %w: %s", ErrMalformedResponse, ErrUnknownChunk, strings.Join(unknown, ", "))
	if final {
		return fallback{reason: err}
	}
	return retryable{err: err}
}
