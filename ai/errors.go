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

package ai

import "errors"

var (
	// ErrEmptyCompletion is returned when a model produced no choices.
	ErrEmptyCompletion = errors.New("model returned no completion")

	// ErrEmptyEmbedding is returned when an embedding service returned no vector.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")
)
