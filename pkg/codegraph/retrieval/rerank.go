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

package retrieval

import (
	"context"
	"strings"
)

// Reranker scores each document against query, higher meaning more relevant.
// A Service's rerank step calls this once per search with the full
// candidate batch rather than once per document, so a remote implementation
// can batch the request.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]float32, error)
}

// MockReranker scores documents by normalized token overlap with the query.
// It exists for tests and offline use where no cross-encoder provider is
// configured; it has no notion of semantic similarity beyond shared tokens.
type MockReranker struct{}

// NewMockReranker returns a ready-to-use MockReranker.
func NewMockReranker() *MockReranker { return &MockReranker{} }

// Rerank implements Reranker.
func (m *MockReranker) Rerank(_ context.Context, query string, documents []string) ([]float32, error) {
	queryTokens := tokenSet(query)
	scores := make([]float32, len(documents))
	for i, doc := range documents {
		docTokens := tokenSet(doc)
		scores[i] = jaccard(queryTokens, docTokens)
	}
	return scores, nil
}

// keywordBoostWeight is the keyword side of the hybrid score blend; the
// semantic side gets the remaining 1-keywordBoostWeight. 0.3 mirrors a
// common vector/keyword hybrid split (0.7 semantic, 0.3 lexical).
const keywordBoostWeight = 0.3

// applyKeywordBoost re-scores hits by blending their existing semantic score
// with a token-overlap keyword score against query, so a query containing
// an exact identifier or literal ranks results containing that term higher
// than pure embedding similarity alone would. semanticDescending reports
// whether hits[i].Score is already "higher is better" (true after a
// cross-encoder rerank) or "lower is better" (false: raw ANN distance).
// Scores are min-max normalized within the batch before blending so the two
// arbitrary scales combine meaningfully.
func applyKeywordBoost(hits []SearchHit, query string, semanticDescending bool) {
	if len(hits) == 0 {
		return
	}

	queryTokens := tokenSet(query)
	semantic := make([]float32, len(hits))
	keyword := make([]float32, len(hits))
	for i, h := range hits {
		s := h.Score
		if !semanticDescending {
			s = -s
		}
		semantic[i] = s
		keyword[i] = jaccard(queryTokens, tokenSet(h.Node.EmbeddingText()))
	}

	semanticNorm := minMaxNormalize(semantic)
	keywordNorm := minMaxNormalize(keyword)
	for i := range hits {
		hits[i].Score = (1-keywordBoostWeight)*semanticNorm[i] + keywordBoostWeight*keywordNorm[i]
	}
}

// minMaxNormalize rescales values into [0, 1]; a constant input collapses to
// all zeros rather than dividing by zero.
func minMaxNormalize(values []float32) []float32 {
	out := make([]float32, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	for i, v := range values {
		if span == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - min) / span
	}
	return out
}

func tokenSet(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float32(intersection) / float32(union)
}
