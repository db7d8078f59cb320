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

package analytics

import (
	"context"
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// ChunkHit is one deduplicated node result of SemanticSearchViaChunks: the
// node and the distance of its best (lowest-distance) matching chunk.
type ChunkHit struct {
	Node     *model.CodeNode
	Distance float32
}

// SemanticSearchViaChunks searches project's chunks (not node-level
// embeddings) for queryVec's k nearest neighbors, then dedupes by parent
// node and loads each node once, per spec §4.9: "dedupe by parent node,
// load once; use HNSW KNN operator." Chunks exist precisely for content
// too long to embed as a single node vector, so this is the only procedure
// that can find a match buried deep in a long function's body.
func SemanticSearchViaChunks(ctx context.Context, s store.Store, projectID string, queryVec []float32, k int) ([]ChunkHit, error) {
	chunks, err := s.ListChunksByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analytics: list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors := make([]ann.Vector, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, ann.Vector{NodeID: c.NodeID, Values: c.Embedding})
	}
	index := ann.Build(vectors)

	// Over-retrieve since several chunks from the same node may rank among
	// the top matches; we need k distinct parent nodes after dedup.
	const dedupOverretrieve = 4
	matches, err := index.Search(queryVec, k*dedupOverretrieve, ann.DefaultEfSearch, ann.Filters{})
	if err != nil {
		return nil, fmt.Errorf("analytics: chunk search: %w", err)
	}

	seen := make(map[model.NodeID]bool, k)
	hits := make([]ChunkHit, 0, k)
	for _, m := range matches {
		if seen[m.NodeID] {
			continue
		}
		seen[m.NodeID] = true
		n, err := s.GetNode(ctx, m.NodeID)
		if err != nil {
			continue
		}
		hits = append(hits, ChunkHit{Node: n, Distance: m.Distance})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}
