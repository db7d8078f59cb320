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

package ann

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func TestFlatIndexSearchFindsNearest(t *testing.T) {
	vectors := []Vector{
		{NodeID: "a", FilePath: "x/a.go", Values: unitVector(4, 0)},
		{NodeID: "b", FilePath: "x/b.go", Values: unitVector(4, 1)},
		{NodeID: "c", FilePath: "y/c.go", Values: unitVector(4, 2)},
	}
	idx := NewFlatIndex(vectors)
	matches, err := idx.Search(unitVector(4, 0), 2, 0, Filters{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, model.NodeID("a"), matches[0].NodeID)
	assert.InDelta(t, 0, matches[0].Distance, 1e-5)
}

func TestFlatIndexFiltersByPathPrefix(t *testing.T) {
	vectors := []Vector{
		{NodeID: "a", FilePath: "x/a.go", Values: unitVector(4, 0)},
		{NodeID: "b", FilePath: "y/b.go", Values: unitVector(4, 0)},
	}
	idx := NewFlatIndex(vectors)
	matches, err := idx.Search(unitVector(4, 0), 5, 0, Filters{FilePathPrefix: "y/"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, model.NodeID("b"), matches[0].NodeID)
}

func TestBuildChoosesFlatBelowThreshold(t *testing.T) {
	vectors := []Vector{{NodeID: "a", Values: unitVector(4, 0)}}
	idx := Build(vectors)
	_, isFlat := idx.(*FlatIndex)
	assert.True(t, isFlat)
}

func TestIVFIndexSearchReturnsK(t *testing.T) {
	var vectors []Vector
	for i := 0; i < 500; i++ {
		vectors = append(vectors, Vector{NodeID: model.NodeID(string(rune('a'+i%26))), Values: unitVector(8, i%8)})
	}
	idx := NewIVFIndex(vectors, 16)
	matches, err := idx.Search(unitVector(8, 0), 10, DefaultEfSearch, Filters{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(matches), 10)
	assert.NotEmpty(t, matches)
}

func TestCacheReusesIndexUntilDigestChanges(t *testing.T) {
	cache := NewCache()
	key := ShardKey{ProjectID: "p1", Prefix: "x"}
	vectors := []Vector{{NodeID: "a", Values: unitVector(4, 0)}}

	idx1 := cache.GetOrBuild(key, vectors)
	idx2 := cache.GetOrBuild(key, vectors)
	assert.Same(t, idx1, idx2)

	vectors = append(vectors, Vector{NodeID: "b", Values: unitVector(4, 1)})
	idx3 := cache.GetOrBuild(key, vectors)
	assert.NotSame(t, idx1, idx3)
}

func TestCacheInvalidate(t *testing.T) {
	cache := NewCache()
	key := ShardKey{ProjectID: "p1", Prefix: "x"}
	cache.GetOrBuild(key, []Vector{{NodeID: "a", Values: unitVector(4, 0)}})
	require.Equal(t, 1, cache.Len())

	cache.Invalidate("p1")
	assert.Equal(t, 0, cache.Len())
}

func TestSearcherMergesAcrossShards(t *testing.T) {
	cache := NewCache()
	searcher := NewSearcher(cache, 4)

	vectors := []Vector{
		{NodeID: "a", FilePath: "x/a.go", Values: unitVector(4, 0)},
		{NodeID: "b", FilePath: "y/b.go", Values: unitVector(4, 0)},
	}
	shards := ShardVectors("p1", vectors)
	require.Len(t, shards, 2)

	matches, err := searcher.Search("p1", shards, unitVector(4, 0), 5, 0, Filters{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.InDelta(t, 0, matches[0].Distance, 1e-5)
}
