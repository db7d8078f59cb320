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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "codegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	provider := embedding.NewMockProvider(8)
	cache := ann.NewCache()
	searcher := ann.NewSearcher(cache, 4)
	return New(s, provider, searcher, NewMockReranker(), NewQueryCache(10, time.Minute), nil), s
}

func seedNode(t *testing.T, ctx context.Context, s store.Store, projectID, name, filePath string, provider embedding.Provider) *model.CodeNode {
	t.Helper()
	vecs, err := provider.EmbedBatch(ctx, []string{name})
	require.NoError(t, err)
	n := &model.CodeNode{
		ID:            model.NodeID("node-" + name),
		ProjectID:     projectID,
		Name:          name,
		QualifiedName: name,
		NodeType:      model.NodeFunction,
		Language:      model.LanguageGo,
		FilePath:      filePath,
		Embedding:     vecs[0],
	}
	require.NoError(t, s.UpsertNodes(ctx, []*model.CodeNode{n}))
	return n
}

func TestSearchReturnsNearestByCosine(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	provider := embedding.NewMockProvider(8)

	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1", EmbeddingDimension: 8}))
	seedNode(t, ctx, s, "p1", "parseConfig", "config.go", provider)
	seedNode(t, ctx, s, "p1", "renderWidget", "ui.go", provider)
	require.NoError(t, s.Flush(ctx))

	result, err := svc.Search(ctx, "p1", "parseConfig", 1, Options{})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, model.NodeID("node-parseConfig"), result.Hits[0].Node.ID)
	assert.False(t, result.FromCache)
}

func TestSearchCachesSecondIdenticalQuery(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	provider := embedding.NewMockProvider(8)

	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1", EmbeddingDimension: 8}))
	seedNode(t, ctx, s, "p1", "parseConfig", "config.go", provider)
	require.NoError(t, s.Flush(ctx))

	first, err := svc.Search(ctx, "p1", "parseConfig", 1, Options{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Search(ctx, "p1", "parseConfig", 1, Options{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Hits[0].Node.ID, second.Hits[0].Node.ID)
}

func TestSearchWithRerankReordersHits(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	provider := embedding.NewMockProvider(8)

	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1", EmbeddingDimension: 8}))
	seedNode(t, ctx, s, "p1", "parseConfig", "config.go", provider)
	seedNode(t, ctx, s, "p1", "renderWidget", "ui.go", provider)
	require.NoError(t, s.Flush(ctx))

	result, err := svc.Search(ctx, "p1", "parseConfig", 2, Options{UseRerank: true})
	require.NoError(t, err)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, model.NodeID("node-parseConfig"), result.Hits[0].Node.ID)
	assert.Greater(t, result.Timing.RerankMS, float64(-1))
}

func TestSearchEnrichesEdges(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()
	provider := embedding.NewMockProvider(8)

	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1", EmbeddingDimension: 8}))
	a := seedNode(t, ctx, s, "p1", "handler", "app.go", provider)
	b := seedNode(t, ctx, s, "p1", "helper", "app.go", provider)
	require.NoError(t, s.UpsertEdges(ctx, []*model.Edge{
		{ID: "e1", ProjectID: "p1", From: a.ID, To: b.ID, EdgeType: model.EdgeCalls},
	}))
	require.NoError(t, s.Flush(ctx))

	result, err := svc.Search(ctx, "p1", "handler", 1, Options{EnrichEdges: true})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	require.Len(t, result.Hits[0].Outgoing, 1)
	assert.Equal(t, "helper", result.Hits[0].Outgoing[0].ResolvedName)
}

func TestCacheKeyDiffersOnFiltersOrK(t *testing.T) {
	base := CacheKey("foo", ann.Filters{}, 5, false, false)
	withFilter := CacheKey("foo", ann.Filters{Language: model.LanguageGo}, 5, false, false)
	withK := CacheKey("foo", ann.Filters{}, 10, false, false)
	withRerank := CacheKey("foo", ann.Filters{}, 5, true, false)
	withKeywordBoost := CacheKey("foo", ann.Filters{}, 5, false, true)

	assert.NotEqual(t, base, withFilter)
	assert.NotEqual(t, base, withK)
	assert.NotEqual(t, base, withRerank)
	assert.NotEqual(t, base, withKeywordBoost)
}

func TestCacheKeyNormalizesQueryCaseAndWhitespace(t *testing.T) {
	a := CacheKey("  Parse Config ", ann.Filters{}, 5, false, false)
	b := CacheKey("parse config", ann.Filters{}, 5, false, false)
	assert.Equal(t, a, b)
}

func TestQueryCacheExpiresAfterTTL(t *testing.T) {
	cache := NewQueryCache(10, 10*time.Millisecond)
	cache.Put("k", Result{Timing: TimingBreakdown{TotalMS: 1}})
	_, ok := cache.Get("k")
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestMockRerankerScoresExactMatchHighest(t *testing.T) {
	r := NewMockReranker()
	scores, err := r.Rerank(context.Background(), "parse config file", []string{
		"parse config file",
		"render widget tree",
	})
	require.NoError(t, err)
	assert.Greater(t, scores[0], scores[1])
}

func TestApplyKeywordBoostPromotesExactTokenMatch(t *testing.T) {
	hits := []SearchHit{
		{Node: &model.CodeNode{ID: "a", Name: "parseConfig", Signature: "func parseConfig()"}, Score: 0.5},
		{Node: &model.CodeNode{ID: "b", Name: "renderWidget", Signature: "func renderWidget()"}, Score: 0.45},
		{Node: &model.CodeNode{ID: "c", Name: "drawChart", Signature: "func drawChart()"}, Score: 0.9},
	}
	applyKeywordBoost(hits, "parseConfig", false)
	assert.Greater(t, hits[0].Score, hits[1].Score)
}

func TestApplyKeywordBoostHandlesEmptyAndSingleHit(t *testing.T) {
	var empty []SearchHit
	assert.NotPanics(t, func() { applyKeywordBoost(empty, "query", true) })

	single := []SearchHit{{Node: &model.CodeNode{ID: "a", Name: "foo"}, Score: 0.3}}
	applyKeywordBoost(single, "query", true)
	assert.Equal(t, float32(0), single[0].Score)
}

func TestMinMaxNormalizeCollapsesConstantInput(t *testing.T) {
	out := minMaxNormalize([]float32{2, 2, 2})
	assert.Equal(t, []float32{0, 0, 0}, out)
}

func TestMinMaxNormalizeScalesToUnitRange(t *testing.T) {
	out := minMaxNormalize([]float32{0, 5, 10})
	assert.Equal(t, []float32{0, 0.5, 1}, out)
}
