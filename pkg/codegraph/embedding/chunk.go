// Copyright 2025 KrakLabs
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
//
// SPDX-License-Identifier: Apache-2.0

package embedding

import "strings"

// approxCharsPerToken is a rough characters-per-token ratio for source text
// with heavy punctuation. The chunker uses this ratio to turn a provider's
// MaxTokens into a character budget without needing the model's real
// tokenizer, which is an external-collaborator concern per spec §1.
const approxCharsPerToken = 3.5

// overlapFraction is the fraction of a window carried into the next chunk,
// so a declaration split mid-window still has surrounding context in both
// chunks.
const overlapFraction = 0.15

// Chunk is one token-windowed segment of a node's text, ready to embed
// independently before the caller averages chunk vectors into the node's
// embedding per the data model's chunked-node invariant.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// SplitForWindow splits text into overlapping windows sized to fit
// maxTokens, using the token-window/overlap construction spec §4.4
// prescribes. Text that already fits in one window returns a single chunk.
func SplitForWindow(text string, maxTokens int) []Chunk {
	maxChars := int(float64(maxTokens) * approxCharsPerToken)
	if maxChars <= 0 || len(text) <= maxChars {
		return []Chunk{{Index: 0, Content: text, TokenCount: estimateTokens(text)}}
	}

	overlapChars := int(float64(maxChars) * overlapFraction)
	stride := maxChars - overlapChars
	if stride <= 0 {
		stride = maxChars
	}

	var chunks []Chunk
	for start := 0; start < len(text); start += stride {
		end := start + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Content:    text[start:end],
			TokenCount: estimateTokens(text[start:end]),
		})
		if end == len(text) {
			break
		}
	}
	return chunks
}

func estimateTokens(s string) int {
	if s == "" {
		return 0
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return 1
	}
	return len(words)
}
