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

// Package analysis turns retrieved log evidence into a structured answer.
//
// A Synthesizer runs one question through the full query path:
//
//  1. The conversation is resolved (created if new) and its recent turns
//     are read.
//  2. The question is embedded and the top-K chunks are retrieved.
//  3. A prompt is built from the question, the recent turns, and evidence
//     blocks labelled with their chunk ids.
//  4. The reasoning service is asked for a JSON answer, which is parsed
//     defensively. A malformed answer is retried once with a stricter
//     instruction and then replaced with a low-confidence fallback.
//  5. Citations are checked against the retrieved chunk ids, confidence is
//     computed, and the turn is appended to the conversation.
//
// When nothing is retrieved the reasoning service is not called at all and
// the answer carries no evidence and low confidence.
package analysis
