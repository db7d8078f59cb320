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
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// NodeEmbeddingResult is the outcome of embedding one node's text, possibly
// split into chunks per the data model's chunking invariant.
type NodeEmbeddingResult struct {
	NodeID    model.NodeID
	Embedding []float32
	Chunks    []*model.Chunk
}

// Service batches node text through a Provider under a bounded concurrency
// cap and a token-bucket rate limiter, honoring spec §9's backpressure rule:
// overflow requests queue, never drop.
type Service struct {
	provider    Provider
	concurrency int
	limiter     *rate.Limiter
	retry       RetryConfig
	logger      *slog.Logger
}

// NewService builds a Service over provider with the given concurrency cap
// (spec §5 default 8) and requests-per-second limit (0 disables limiting).
func NewService(provider Provider, concurrency int, requestsPerSecond float64, logger *slog.Logger) *Service {
	if concurrency <= 0 {
		concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), concurrency)
	}
	return &Service{
		provider:    provider,
		concurrency: concurrency,
		limiter:     limiter,
		retry:       DefaultRetryConfig(),
		logger:      logger,
	}
}

// EmbedNodes assembles each node's embedding text (model.CodeNode.EmbeddingText,
// per indexer step 7), chunks it if it exceeds the provider's token window,
// embeds every chunk, and aggregates by mean into the node-level vector.
// Nodes are processed concurrently up to the configured cap; a node whose
// embedding fails after retries is returned with a nil Embedding so the
// caller can persist an empty vector and retry it on the next incremental
// run, per spec §7's recovery policy.
func (s *Service) EmbedNodes(ctx context.Context, nodes []*model.CodeNode) ([]NodeEmbeddingResult, error) {
	results := make([]NodeEmbeddingResult, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			res, err := s.embedOne(gctx, n)
			if err != nil {
				s.logger.Error("embedding.node.failed", "node_id", string(n.ID), "name", n.Name, "error", err)
				results[i] = NodeEmbeddingResult{NodeID: n.ID}
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) embedOne(ctx context.Context, n *model.CodeNode) (NodeEmbeddingResult, error) {
	text := n.EmbeddingText()
	windows := SplitForWindow(text, s.provider.MaxTokens())

	if len(windows) == 1 {
		vectors, err := EmbedWithRetry(ctx, s.provider, []string{windows[0].Content}, s.retry)
		if err != nil {
			return NodeEmbeddingResult{}, err
		}
		return NodeEmbeddingResult{NodeID: n.ID, Embedding: vectors[0]}, nil
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Content
	}

	var allVectors [][]float32
	maxBatch := s.provider.MaxBatch()
	if maxBatch <= 0 {
		maxBatch = len(texts)
	}
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := EmbedWithRetry(ctx, s.provider, texts[start:end], s.retry)
		if err != nil {
			return NodeEmbeddingResult{}, err
		}
		allVectors = append(allVectors, vectors...)
	}

	chunks := make([]*model.Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = &model.Chunk{
			ID:         model.NewChunkID(n.ID, i),
			NodeID:     n.ID,
			ChunkIndex: i,
			TokenCount: w.TokenCount,
			Content:    w.Content,
			Embedding:  allVectors[i],
		}
	}

	return NodeEmbeddingResult{
		NodeID:    n.ID,
		Embedding: Mean(allVectors),
		Chunks:    chunks,
	}, nil
}
