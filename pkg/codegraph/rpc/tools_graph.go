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

package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// neighborView is one entry in graph_neighbors' result, per spec §6.
type neighborView struct {
	ID               model.NodeID   `json:"id"`
	Name             string         `json:"name"`
	NodeType         model.NodeType `json:"node_type"`
	Path             string         `json:"path"`
	RelationshipType model.EdgeType `json:"relationship_type"`
}

// GraphNeighborsTool implements `graph_neighbors`: every node directly
// connected to node_id by any relationship type, in either direction.
type GraphNeighborsTool struct {
	analytics *analytics.Service
}

// NewGraphNeighborsTool builds a GraphNeighborsTool over svc.
func NewGraphNeighborsTool(svc *analytics.Service) *GraphNeighborsTool {
	return &GraphNeighborsTool{analytics: svc}
}

func (t *GraphNeighborsTool) Name() string { return "graph_neighbors" }

type graphNeighborsParams struct {
	ProjectID string `json:"project_id"`
	NodeID    string `json:"node_id"`
	Limit     int    `json:"limit"`
}

func (t *GraphNeighborsTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p graphNeighborsParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: graph_neighbors: invalid params: %w", err)
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}

	g, err := t.analytics.Graph(ctx, p.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("rpc: graph_neighbors: %w", err)
	}

	nodeID := model.NodeID(p.NodeID)
	var neighbors []neighborView
	for _, e := range g.AllOut[nodeID] {
		if n, ok := g.Nodes[e.To]; ok {
			neighbors = append(neighbors, neighborView{ID: n.ID, Name: n.Name, NodeType: n.NodeType, Path: n.FilePath, RelationshipType: e.EdgeType})
		}
	}
	for _, e := range g.AllIn[nodeID] {
		if n, ok := g.Nodes[e.From]; ok {
			neighbors = append(neighbors, neighborView{ID: n.ID, Name: n.Name, NodeType: n.NodeType, Path: n.FilePath, RelationshipType: e.EdgeType})
		}
	}
	if len(neighbors) > p.Limit {
		neighbors = neighbors[:p.Limit]
	}
	return map[string]any{"neighbors": neighbors}, nil
}

// traverseNodeView is one entry in graph_traverse's result, per spec §6.
type traverseNodeView struct {
	Depth int          `json:"depth"`
	ID    model.NodeID `json:"id"`
	Name  string       `json:"name"`
	Path  string       `json:"path"`
}

// GraphTraverseTool implements `graph_traverse`: a bounded-depth,
// cycle-safe walk of dependency edges from start_node_id, per spec §4.9.
type GraphTraverseTool struct {
	analytics *analytics.Service
}

// NewGraphTraverseTool builds a GraphTraverseTool over svc.
func NewGraphTraverseTool(svc *analytics.Service) *GraphTraverseTool {
	return &GraphTraverseTool{analytics: svc}
}

func (t *GraphTraverseTool) Name() string { return "graph_traverse" }

type graphTraverseParams struct {
	ProjectID   string `json:"project_id"`
	StartNodeID string `json:"start_node_id"`
	Depth       int    `json:"depth"`
	Limit       int    `json:"limit"`
}

func (t *GraphTraverseTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p graphTraverseParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: graph_traverse: invalid params: %w", err)
	}
	if p.Depth <= 0 {
		p.Depth = 3
	}
	if p.Limit <= 0 {
		p.Limit = 20
	}

	g, err := t.analytics.Graph(ctx, p.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("rpc: graph_traverse: %w", err)
	}

	depthNodes := g.TransitiveDependencies(model.NodeID(p.StartNodeID), p.Depth)
	if len(depthNodes) > p.Limit {
		depthNodes = depthNodes[:p.Limit]
	}

	nodes := make([]traverseNodeView, 0, len(depthNodes))
	for _, dn := range depthNodes {
		nodes = append(nodes, traverseNodeView{Depth: dn.Depth, ID: dn.Node.ID, Name: dn.Node.Name, Path: dn.Node.FilePath})
	}
	return map[string]any{"nodes": nodes}, nil
}
