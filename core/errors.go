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

import "errors"

// Input errors. Every member wraps ErrInput so callers can classify
// rejected uploads with a single errors.Is check.
var (
	// ErrInput indicates an upload was rejected before parsing.
	ErrInput = errors.New("input rejected")

	// ErrEmptyInput indicates a zero-byte or whitespace-only file.
	ErrEmptyInput = errors.New("input is empty")

	// ErrNotText indicates the file does not look like text.
	ErrNotText = errors.New("input is not text")

	// ErrFileTooLarge indicates the file exceeds the configured hard limit.
	ErrFileTooLarge = errors.New("input exceeds maximum file size")

	// ErrEmptyFilename indicates no filename was supplied.
	ErrEmptyFilename = errors.New("filename cannot be empty")
)
