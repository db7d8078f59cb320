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

// Package analytics implements the graph-analytics stored procedures:
// dependency traversal, cycle detection, coupling metrics, and hotspot
// ranking over a project's node/edge graph. Every procedure builds its
// adjacency once from the store and then walks it in O(V+E); none re-query
// the store per edge, the pattern spec §4.9's performance contract forbids.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// dependencyEdgeTypes is the edge-type set BFS/DFS traversal walks, per
// spec §4.9's "calls∪uses∪imports" definition.
var dependencyEdgeTypes = map[model.EdgeType]bool{
	model.EdgeCalls:   true,
	model.EdgeUses:    true,
	model.EdgeImports: true,
}

// Graph is an in-memory adjacency view of one project's nodes and edges,
// built fresh for each Service call. All analytics procedures operate over
// this rather than issuing one store call per node/edge.
type Graph struct {
	Nodes    map[model.NodeID]*model.CodeNode
	Out      map[model.NodeID][]*model.Edge // dependency-edge-typed outgoing
	In       map[model.NodeID][]*model.Edge // dependency-edge-typed incoming
	AllOut   map[model.NodeID][]*model.Edge // every outgoing edge, any type
	AllIn    map[model.NodeID][]*model.Edge // every incoming edge, any type
}

// BuildGraph loads every node and edge for projectID and indexes them for
// O(1) neighbor lookups.
func BuildGraph(ctx context.Context, s store.Store, projectID string) (*Graph, error) {
	nodes, err := s.ListNodesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analytics: list nodes: %w", err)
	}
	edges, err := s.ListEdgesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("analytics: list edges: %w", err)
	}

	g := &Graph{
		Nodes:  make(map[model.NodeID]*model.CodeNode, len(nodes)),
		Out:    make(map[model.NodeID][]*model.Edge, len(nodes)),
		In:     make(map[model.NodeID][]*model.Edge, len(nodes)),
		AllOut: make(map[model.NodeID][]*model.Edge, len(nodes)),
		AllIn:  make(map[model.NodeID][]*model.Edge, len(nodes)),
	}
	for _, n := range nodes {
		g.Nodes[n.ID] = n
	}
	for _, e := range edges {
		g.AllOut[e.From] = append(g.AllOut[e.From], e)
		g.AllIn[e.To] = append(g.AllIn[e.To], e)
		if dependencyEdgeTypes[e.EdgeType] {
			g.Out[e.From] = append(g.Out[e.From], e)
			g.In[e.To] = append(g.In[e.To], e)
		}
	}
	return g, nil
}

// sortedNodeIDs returns every node ID in lexicographic order, the
// deterministic iteration order every procedure uses so results are stable
// across runs.
func (g *Graph) sortedNodeIDs() []model.NodeID {
	ids := make([]model.NodeID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
