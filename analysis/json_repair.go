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
	"strings"
	"unicode"
)

// repairJSON fixes the defects small models most often leave in JSON output:
// keys with a missing opening quote (`{summary": ...`), bare keys
// (`{summary: ...`) and trailing commas. String literals are copied untouched.
func repairJSON(s string) string {
	src := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(src); i++ {
		ch := src[i]
		if inString {
			b.WriteRune(ch)
			switch ch {
			case '\\':
				if i+1 < len(src) {
					i++
					b.WriteRune(src[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			b.WriteRune(ch)
		case '{', ',':
			if ch == ',' && closesNext(src, i+1) {
				continue
			}
			b.WriteRune(ch)
			j := i + 1
			for j < len(src) && unicode.IsSpace(src[j]) {
				b.WriteRune(src[j])
				j++
			}
			if last := quoteKey(&b, src, j); last >= 0 {
				i = last
			} else {
				i = j - 1
			}
		default:
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// quoteKey writes a properly quoted key when src[start:] is a bare or
// half-quoted object key. It returns the index of the last rune consumed, or
// -1 when there is no such key.
func quoteKey(b *strings.Builder, src []rune, start int) int {
	end := start
	for end < len(src) && isKeyRune(src[end], end == start) {
		end++
	}
	if end == start {
		return -1
	}
	next := end
	if next < len(src) && src[next] == '"' {
		next++
	}
	k := next
	for k < len(src) && unicode.IsSpace(src[k]) {
		k++
	}
	if k >= len(src) || src[k] != ':' {
		return -1
	}
	b.WriteByte('"')
	b.WriteString(string(src[start:end]))
	b.WriteByte('"')
	return next - 1
}

func closesNext(src []rune, i int) bool {
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	return i < len(src) && (src[i] == '}' || src[i] == ']')
}

func isKeyRune(r rune, first bool) bool {
	if unicode.IsLetter(r) || r == '_' {
		return true
	}
	return !first && unicode.IsDigit(r)
}
