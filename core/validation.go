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
	"bytes"
	"fmt"
	"unicode/utf8"
)

// binarySniffLen bounds how much of the input is inspected for binary content.
const binarySniffLen = 8192

// CheckSize rejects inputs larger than maxBytes. A non-positive limit disables the check.
func CheckSize(size int64, maxBytes int64) error {
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("%w: %w: %d bytes, limit %d", ErrInput, ErrFileTooLarge, size, maxBytes)
	}
	return nil
}

// ValidateInput checks that data is a non-empty text file within maxBytes.
//
// Validation rules:
//   - size must not exceed maxBytes (checked first, before content is inspected)
//   - data must contain at least one non-whitespace byte
//   - the leading block must not contain NUL bytes
//   - filename must not be empty
func ValidateInput(data []byte, filename string, maxBytes int64) error {
	if err := CheckSize(int64(len(data)), maxBytes); err != nil {
		return err
	}
	if filename == "" {
		return fmt.Errorf("%w: %w", ErrInput, ErrEmptyFilename)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %w", ErrInput, ErrEmptyInput)
	}
	if !IsText(data) {
		return fmt.Errorf("%w: %w", ErrInput, ErrNotText)
	}
	return nil
}

// IsText reports whether the leading block of data looks like text. Only NUL
// bytes mark binary content; invalid UTF-8 such as Latin-1 accents is text.
func IsText(data []byte) bool {
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	return bytes.IndexByte(sniff, 0) < 0
}

// ToValidText replaces each run of invalid UTF-8 bytes with U+FFFD.
// Valid input is returned as is.
func ToValidText(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	return bytes.ToValidUTF8(data, []byte("\uFFFD"))
}
