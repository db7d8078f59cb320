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

// Package retrieval implements the query-time search path: embed a query,
// fan it out across the ANN shards, load the winning nodes, optionally
// rerank and enrich with graph context, and cache the whole result behind a
// short-TTL LRU so a repeated query never re-embeds or re-searches.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// overRetrieveFactor is how many extra candidates ANN returns when a rerank
// pass will whittle them back down to k, per spec §4.8 step 3.
const overRetrieveFactor = 3

// EdgeRef is one enriched edge on a SearchHit: the relationship plus the
// resolved name of the node on the other end.
type EdgeRef struct {
	EdgeType     model.EdgeType
	NodeID       model.NodeID
	ResolvedName string
}

// SearchHit is one ranked result: the node, its distance or rerank score,
// and, when requested, its incident edges.
type SearchHit struct {
	Node     *model.CodeNode
	Score    float32
	Outgoing []EdgeRef
	Incoming []EdgeRef
}

// TimingBreakdown records the wall time of each stage of one Search call,
// per spec §4.8 step 7.
type TimingBreakdown struct {
	EmbeddingMS float64
	ANNMS       float64
	LoadMS      float64
	RerankMS    float64
	FormatMS    float64
	TotalMS     float64
}

// Result is the full output of one Search call.
type Result struct {
	Hits    []SearchHit
	Timing  TimingBreakdown
	FromCache bool
}

// Options configures one Search call.
type Options struct {
	Filters         ann.Filters
	UseRerank       bool
	UseKeywordBoost bool
	EnrichEdges     bool
}

// Service is the process-wide retrieval engine: one instance wired to the
// store, the embedding provider, and the ANN shard cache/searcher, shared by
// every caller per spec §4.8's tiering policy.
type Service struct {
	store     store.Store
	embedder  embedding.Provider
	searcher  *ann.Searcher
	reranker  Reranker
	cache     *QueryCache
	logger    *slog.Logger
}

// New builds a Service. reranker may be nil; rerank requests then fall back
// to ANN ranking with a logged warning, matching the teacher's reranking
// retriever's degrade-on-failure behavior.
func New(s store.Store, embedder embedding.Provider, searcher *ann.Searcher, reranker Reranker, cache *QueryCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewQueryCache(DefaultCacheSize, DefaultCacheTTL)
	}
	return &Service{store: s, embedder: embedder, searcher: searcher, reranker: reranker, cache: cache, logger: logger}
}

// Search implements the full retrieval algorithm of spec §4.8.
func (s *Service) Search(ctx context.Context, projectID, queryText string, k int, opts Options) (*Result, error) {
	total := time.Now()

	key := CacheKey(queryText, opts.Filters, k, opts.UseRerank, opts.UseKeywordBoost)
	if cached, ok := s.cache.Get(key); ok {
		res := cached
		res.FromCache = true
		return &res, nil
	}

	var timing TimingBreakdown

	embedStart := time.Now()
	vectors, err := s.embedder.EmbedBatch(ctx, []string{normalizeQuery(queryText)})
	timing.EmbeddingMS = msSince(embedStart)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed query: %w", err)
	}
	query := embedding.Normalize(vectors[0])

	retrieveK := k
	if opts.UseRerank {
		retrieveK = k * overRetrieveFactor
	}

	annStart := time.Now()
	nodes, err := s.store.ListNodesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list nodes: %w", err)
	}
	shardVectors := projectVectors(nodes)
	shards := ann.ShardVectors(projectID, shardVectors)
	matches, err := s.searcher.Search(projectID, shards, query, retrieveK, ann.DefaultEfSearch, opts.Filters)
	timing.ANNMS = msSince(annStart)
	if err != nil {
		return nil, fmt.Errorf("retrieval: ann search: %w", err)
	}

	loadStart := time.Now()
	ids := make([]model.NodeID, len(matches))
	distanceByID := make(map[model.NodeID]float32, len(matches))
	for i, m := range matches {
		ids[i] = m.NodeID
		distanceByID[m.NodeID] = m.Distance
	}
	loaded, err := s.store.GetNodes(ctx, ids)
	timing.LoadMS = msSince(loadStart)
	if err != nil {
		return nil, fmt.Errorf("retrieval: load nodes: %w", err)
	}

	hits := make([]SearchHit, len(loaded))
	for i, n := range loaded {
		hits[i] = SearchHit{Node: n, Score: distanceByID[n.ID]}
	}

	reranked := false
	if opts.UseRerank && s.reranker != nil {
		rerankStart := time.Now()
		rescored, err := s.rerank(ctx, queryText, hits)
		timing.RerankMS = msSince(rerankStart)
		if err != nil {
			s.logger.Warn("retrieval.rerank.failed", "error", err, "query", queryText)
		} else {
			hits = rescored
			reranked = true
		}
	} else if opts.UseRerank {
		s.logger.Warn("retrieval.rerank.unavailable", "query", queryText)
	}

	boosted := false
	if opts.UseKeywordBoost {
		applyKeywordBoost(hits, queryText, reranked)
		boosted = true
	}

	sortHits(hits, reranked || boosted)
	if len(hits) > k {
		hits = hits[:k]
	}

	formatStart := time.Now()
	if opts.EnrichEdges {
		if err := s.enrich(ctx, hits); err != nil {
			return nil, fmt.Errorf("retrieval: enrich edges: %w", err)
		}
	}
	timing.FormatMS = msSince(formatStart)
	timing.TotalMS = msSince(total)

	result := Result{Hits: hits, Timing: timing}
	s.cache.Put(key, result)
	return &result, nil
}

// rerank calls the reranker with (query, document) pairs and replaces each
// hit's Score with the reranker's score, per spec §4.8 step 5.
func (s *Service) rerank(ctx context.Context, queryText string, hits []SearchHit) ([]SearchHit, error) {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.Node.EmbeddingText()
	}
	scores, err := s.reranker.Rerank(ctx, queryText, docs)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(hits) {
		return nil, fmt.Errorf("retrieval: reranker returned %d scores for %d documents", len(scores), len(hits))
	}
	for i := range hits {
		hits[i].Score = scores[i]
	}
	return hits, nil
}

// enrich loads incoming and outgoing edges for each hit and resolves the
// far-end node's name, per spec §4.8 step 6.
func (s *Service) enrich(ctx context.Context, hits []SearchHit) error {
	for i := range hits {
		nodeID := hits[i].Node.ID

		out, err := s.store.EdgesFrom(ctx, nodeID)
		if err != nil {
			return err
		}
		hits[i].Outgoing = make([]EdgeRef, 0, len(out))
		for _, e := range out {
			ref := EdgeRef{EdgeType: e.EdgeType, NodeID: e.To}
			if target, err := s.store.GetNode(ctx, e.To); err == nil {
				ref.ResolvedName = target.QualifiedName
			}
			hits[i].Outgoing = append(hits[i].Outgoing, ref)
		}

		in, err := s.store.EdgesTo(ctx, nodeID)
		if err != nil {
			return err
		}
		hits[i].Incoming = make([]EdgeRef, 0, len(in))
		for _, e := range in {
			ref := EdgeRef{EdgeType: e.EdgeType, NodeID: e.From}
			if source, err := s.store.GetNode(ctx, e.From); err == nil {
				ref.ResolvedName = source.QualifiedName
			}
			hits[i].Incoming = append(hits[i].Incoming, ref)
		}
	}
	return nil
}

// InvalidateProject clears every cached query result. The query cache key
// has no project dimension, so a reindex of any project empties the whole
// cache.
func (s *Service) InvalidateProject() {
	s.cache.Clear()
}

func projectVectors(nodes []*model.CodeNode) []ann.Vector {
	vectors := make([]ann.Vector, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, ann.Vector{
			NodeID:   n.ID,
			FilePath: n.FilePath,
			Language: n.Language,
			NodeType: n.NodeType,
			Values:   n.Embedding,
		})
	}
	return vectors
}

// sortHits ranks ANN distance ascending (closer is better) but a rerank
// score descending (the reranker's convention: higher means more relevant),
// with node_id as the deterministic tie-break required by spec §4.8's
// determinism rule.
func sortHits(hits []SearchHit, byRerankScore bool) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			if byRerankScore {
				return hits[i].Score > hits[j].Score
			}
			return hits[i].Score < hits[j].Score
		}
		return hits[i].Node.ID < hits[j].Node.ID
	})
}

func normalizeQuery(q string) string {
	return strings.TrimSpace(strings.ToLower(q))
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// CacheKey derives the SHA-256 cache key of spec §4.8 step 1:
// (normalized_query, filters, k, use_rerank, use_keyword_boost).
func CacheKey(queryText string, filters ann.Filters, k int, useRerank, useKeywordBoost bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%t|%t", normalizeQuery(queryText), filters.FilePathPrefix, filters.Language, filters.NodeType, k, useRerank, useKeywordBoost)
	return hex.EncodeToString(h.Sum(nil))
}
