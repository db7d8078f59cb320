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

import "context"

// MockProvider produces deterministic hash-derived embeddings. It never
// touches the network, so test suites can exercise the full indexing and
// retrieval pipeline without a live embedding backend.
type MockProvider struct {
	dimension int
}

// NewMockProvider returns a MockProvider of the given dimension.
func NewMockProvider(dimension int) *MockProvider {
	return &MockProvider{dimension: dimension}
}

func (m *MockProvider) Name() string    { return "mock" }
func (m *MockProvider) Dimension() int  { return m.dimension }
func (m *MockProvider) MaxBatch() int   { return 256 }
func (m *MockProvider) MaxTokens() int  { return 8192 }

// EmbedBatch returns one deterministic unit vector per input text. Two
// identical texts always embed to the same vector, which keeps the
// retrieval determinism property (spec §4.8, §8 property 7) trivially true
// under this provider.
func (m *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Normalize(deterministicVector(t, m.dimension))
	}
	return out, nil
}

func deterministicVector(text string, dim int) []float32 {
	var hash uint64 = 5381
	for _, c := range text {
		hash = ((hash << 5) + hash) + uint64(c)
	}
	v := make([]float32, dim)
	for i := 0; i < dim; i++ {
		val := float32((hash+uint64(i)*7919)%10000) / 10000.0
		v[i] = val*2.0 - 1.0
	}
	return v
}
