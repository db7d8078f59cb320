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

package agent

import (
	"context"
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/retrieval"
	"github.com/kraklabs/codegraph/pkg/llm"
)

// chunkHitView wraps an analytics.ChunkHit with a stub-placeholder verdict,
// so an agent loop surfacing semantic_search_via_chunks results can tell a
// real implementation from an unfinished one without re-reading the body.
type chunkHitView struct {
	Node     *model.CodeNode     `json:"node"`
	Distance float32             `json:"distance"`
	Stub     *retrieval.StubInfo `json:"stub,omitempty"`
}

// ToolSchemas returns the strict input schemas for the eight graph
// analytics procedures the LLM may call: seven traversals and metrics plus
// semantic_search_via_chunks.
func ToolSchemas() []llm.ToolSchema {
	return []llm.ToolSchema{
		{
			Name:        "transitive_dependencies",
			Description: "List everything a node depends on, transitively, up to max_depth.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"node_id", "max_depth"},
				"properties": map[string]any{
					"node_id":   map[string]any{"type": "string"},
					"max_depth": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "reverse_dependencies",
			Description: "List everything that depends on a node, transitively, up to max_depth.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"node_id", "max_depth"},
				"properties": map[string]any{
					"node_id":   map[string]any{"type": "string"},
					"max_depth": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "call_chain",
			Description: "Find all simple call paths from one node to another, up to max_depth edges.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"from", "to", "max_depth"},
				"properties": map[string]any{
					"from":      map[string]any{"type": "string"},
					"to":        map[string]any{"type": "string"},
					"max_depth": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "detect_cycles",
			Description: "Find cyclic dependencies (strongly connected components of size > 1).",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "coupling_metrics",
			Description: "Compute afferent/efferent coupling and instability for a node.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"node_id"},
				"properties": map[string]any{
					"node_id": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "hub_nodes",
			Description: "List the most-connected nodes with at least min_degree total edges.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"min_degree", "limit"},
				"properties": map[string]any{
					"min_degree": map[string]any{"type": "integer"},
					"limit":      map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "complexity_hotspots",
			Description: "Rank nodes by risk_score = complexity * (afferent_coupling + 1).",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"min_complexity", "limit"},
				"properties": map[string]any{
					"min_complexity": map[string]any{"type": "integer"},
					"limit":          map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        "semantic_search_via_chunks",
			Description: "Search chunk-level embeddings for a natural-language query, deduped by parent node.",
			Parameters: map[string]any{
				"type":     "object",
				"required": []string{"query", "k"},
				"properties": map[string]any{
					"query": map[string]any{"type": "string"},
					"k":     map[string]any{"type": "integer"},
				},
			},
		},
	}
}

// ToolExecutor dispatches tool calls by name against a project's analytics
// graph. It owns the embedding provider used for semantic_search_via_chunks
// query embedding.
type ToolExecutor struct {
	analytics *analytics.Service
	embedder  embedding.Provider
}

// NewToolExecutor builds a ToolExecutor.
func NewToolExecutor(svc *analytics.Service, embedder embedding.Provider) *ToolExecutor {
	return &ToolExecutor{analytics: svc, embedder: embedder}
}

// Execute runs the named tool against projectID with args and returns a
// JSON-serializable result. It returns an error for an unknown tool name or
// invalid arguments; the controller's loop treats that as a fatal tool
// error and ends the run.
func (e *ToolExecutor) Execute(ctx context.Context, projectID, name string, args map[string]any) (any, error) {
	graph, err := e.analytics.Graph(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("agent: load graph: %w", err)
	}

	switch name {
	case "transitive_dependencies":
		nodeID, depth, err := nodeIDAndDepth(args)
		if err != nil {
			return nil, err
		}
		return graph.TransitiveDependencies(nodeID, depth), nil

	case "reverse_dependencies":
		nodeID, depth, err := nodeIDAndDepth(args)
		if err != nil {
			return nil, err
		}
		return graph.ReverseDependencies(nodeID, depth), nil

	case "call_chain":
		from, ok := stringArg(args, "from")
		if !ok {
			return nil, fmt.Errorf("agent: call_chain requires 'from'")
		}
		to, ok := stringArg(args, "to")
		if !ok {
			return nil, fmt.Errorf("agent: call_chain requires 'to'")
		}
		depth := intArgOrDefault(args, "max_depth", 5)
		return graph.CallChain(model.NodeID(from), model.NodeID(to), depth), nil

	case "detect_cycles":
		return graph.DetectCycles(), nil

	case "coupling_metrics":
		nodeID, ok := stringArg(args, "node_id")
		if !ok {
			return nil, fmt.Errorf("agent: coupling_metrics requires 'node_id'")
		}
		metrics, found := graph.CouplingMetrics(model.NodeID(nodeID))
		if !found {
			return nil, fmt.Errorf("agent: unknown node_id %q", nodeID)
		}
		return metrics, nil

	case "hub_nodes":
		minDegree := intArgOrDefault(args, "min_degree", 1)
		limit := intArgOrDefault(args, "limit", 20)
		return graph.HubNodes(minDegree, limit), nil

	case "complexity_hotspots":
		minComplexity := intArgOrDefault(args, "min_complexity", 1)
		limit := intArgOrDefault(args, "limit", 20)
		return graph.ComplexityHotspots(minComplexity, limit), nil

	case "semantic_search_via_chunks":
		query, ok := stringArg(args, "query")
		if !ok {
			return nil, fmt.Errorf("agent: semantic_search_via_chunks requires 'query'")
		}
		k := intArgOrDefault(args, "k", 10)
		return e.semanticSearch(ctx, projectID, query, k)

	default:
		return nil, fmt.Errorf("agent: unknown tool %q", name)
	}
}

func (e *ToolExecutor) semanticSearch(ctx context.Context, projectID, query string, k int) (any, error) {
	vectors, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("agent: embed query: %w", err)
	}
	hits, err := e.analytics.SemanticSearchViaChunks(ctx, projectID, vectors[0], k)
	if err != nil {
		return nil, err
	}
	views := make([]chunkHitView, 0, len(hits))
	for _, h := range hits {
		views = append(views, chunkHitView{Node: h.Node, Distance: h.Distance, Stub: retrieval.DetectStub(h.Node)})
	}
	return views, nil
}

func nodeIDAndDepth(args map[string]any) (model.NodeID, int, error) {
	nodeID, ok := stringArg(args, "node_id")
	if !ok {
		return "", 0, fmt.Errorf("agent: tool requires 'node_id'")
	}
	depth := intArgOrDefault(args, "max_depth", 3)
	return model.NodeID(nodeID), depth, nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok && v != ""
}

func intArgOrDefault(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}
