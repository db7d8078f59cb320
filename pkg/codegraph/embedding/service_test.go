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

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(64)
	v1, err := p.EmbedBatch(context.Background(), []string{"func foo() {}"})
	require.NoError(t, err)
	v2, err := p.EmbedBatch(context.Background(), []string{"func foo() {}"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1[0], 64)
}

func TestEmbedNodesSingleWindow(t *testing.T) {
	svc := NewService(NewMockProvider(32), 4, 0, nil)
	node := &model.CodeNode{ID: model.NodeID("node:1"), Name: "foo", QualifiedName: "pkg#foo", Content: "func foo() {}"}

	results, err := svc.EmbedNodes(context.Background(), []*model.CodeNode{node})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Len(t, results[0].Embedding, 32)
	assert.Empty(t, results[0].Chunks)
}

func TestEmbedNodesChunksLargeBody(t *testing.T) {
	svc := NewService(NewMockProvider(16), 4, 0, nil)
	big := strings.Repeat("x y z w ", 5000)
	node := &model.CodeNode{ID: model.NodeID("node:2"), Name: "big", Content: big}

	results, err := svc.EmbedNodes(context.Background(), []*model.CodeNode{node})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NotEmpty(t, results[0].Chunks)

	expected := Mean(func() [][]float32 {
		var vs [][]float32
		for _, c := range results[0].Chunks {
			vs = append(vs, c.Embedding)
		}
		return vs
	}())
	assert.Equal(t, expected, results[0].Embedding)
}

func TestSplitForWindowSingleChunk(t *testing.T) {
	chunks := SplitForWindow("short text", 100)
	assert.Len(t, chunks, 1)
}

func TestSplitForWindowOverlaps(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := SplitForWindow(text, 10)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, c.Content)
	}
}
