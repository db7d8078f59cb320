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

package store

import (
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// ValidateNodeDimension checks a node's embedding length against the
// project's declared dimension. The indexer calls this before persisting a
// freshly embedded node; a mismatch means the embedding provider or model
// changed out from under an existing project and the project needs a
// force-reindex, per the data model's fatal invariant.
func ValidateNodeDimension(project *model.Project, n *model.CodeNode) error {
	if len(n.Embedding) == 0 {
		return nil
	}
	if project.EmbeddingDimension == 0 {
		return nil
	}
	if len(n.Embedding) != project.EmbeddingDimension {
		return &ErrDimensionMismatch{Project: project.EmbeddingDimension, Observed: len(n.Embedding)}
	}
	return nil
}

// ValidateChunkDimension is ValidateNodeDimension's counterpart for chunk
// records, used when the embedding service has split a node into windows.
func ValidateChunkDimension(project *model.Project, c *model.Chunk) error {
	if len(c.Embedding) == 0 {
		return nil
	}
	if project.EmbeddingDimension == 0 {
		return nil
	}
	if len(c.Embedding) != project.EmbeddingDimension {
		return &ErrDimensionMismatch{Project: project.EmbeddingDimension, Observed: len(c.Embedding)}
	}
	return nil
}

// ValidateEdge rejects edges whose endpoints are not both known node IDs in
// nodeIndex, enforcing the referential-integrity invariant that an edge
// never dangles.
func ValidateEdge(e *model.Edge, nodeIndex map[model.NodeID]bool) error {
	if !nodeIndex[e.From] {
		return fmt.Errorf("store: edge %s references unknown from-node %s", e.ID, e.From)
	}
	if !nodeIndex[e.To] {
		return fmt.Errorf("store: edge %s references unknown to-node %s", e.ID, e.To)
	}
	return nil
}
