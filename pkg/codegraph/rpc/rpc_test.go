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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/agent"
	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/retrieval"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
	"github.com/kraklabs/codegraph/pkg/llm"
)

func newTestServer(t *testing.T) (*Server, store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "codegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	embedProvider := embedding.NewMockProvider(8)
	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1", EmbeddingDimension: 8}))

	vecs, err := embedProvider.EmbedBatch(ctx, []string{"parseConfig", "loadConfig"})
	require.NoError(t, err)
	nodes := []*model.CodeNode{
		{ID: "a", ProjectID: "p1", Name: "parseConfig", QualifiedName: "parseConfig", NodeType: model.NodeFunction, Language: model.LanguageGo, FilePath: "config.go", StartLine: 10, Embedding: vecs[0]},
		{ID: "b", ProjectID: "p1", Name: "loadConfig", QualifiedName: "loadConfig", NodeType: model.NodeFunction, Language: model.LanguageGo, FilePath: "config.go", StartLine: 40, Embedding: vecs[1]},
	}
	require.NoError(t, s.UpsertNodes(ctx, nodes))
	require.NoError(t, s.UpsertEdges(ctx, []*model.Edge{
		{ID: "e1", ProjectID: "p1", From: "a", To: "b", EdgeType: model.EdgeCalls},
	}))
	require.NoError(t, s.Flush(ctx))

	retrievalSvc := retrieval.New(s, embedProvider, ann.NewSearcher(ann.NewCache(), 4), retrieval.NewMockReranker(), retrieval.NewQueryCache(10, time.Minute), nil)
	analyticsSvc := analytics.New(s)

	provider := llm.NewMockProvider(100_000)
	executor := agent.NewToolExecutor(analyticsSvc, embedProvider)
	controller := agent.New(provider, executor, nil, nil)

	server := NewServer(nil)
	server.Register(NewSearchTool(retrievalSvc))
	server.Register(NewVectorSearchTool(retrievalSvc))
	server.Register(NewGraphNeighborsTool(analyticsSvc))
	server.Register(NewGraphTraverseTool(analyticsSvc))
	server.Register(NewAgenticContextTool(controller))
	server.Register(NewAgenticImpactTool(controller))
	server.Register(NewAgenticArchitectureTool(controller))
	server.Register(NewAgenticQualityTool(controller))
	return server, s
}

func TestHandleUnknownMethodReturnsMethodNotFound(t *testing.T) {
	server, _ := newTestServer(t)
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "does_not_exist"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestHandleBytesParseErrorOnMalformedJSON(t *testing.T) {
	server, _ := newTestServer(t)
	out := server.HandleBytes(context.Background(), []byte("{not json"))
	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestHandleInvalidRequestMissingMethod(t *testing.T) {
	server, _ := newTestServer(t)
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

func TestSearchToolReturnsRankedHits(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "query": "parseConfig", "limit": 5})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "search", Params: params})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	hits, ok := result["results"].([]searchHitView)
	require.True(t, ok)
	assert.NotEmpty(t, hits)
}

func TestVectorSearchToolReturnsHitsWithoutEnrichment(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "query": "loadConfig", "limit": 5})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "vector_search", Params: params})
	require.Nil(t, resp.Error)
	hits, ok := resp.Result.([]searchHitView)
	require.True(t, ok)
	assert.NotEmpty(t, hits)
}

func TestGraphNeighborsToolFindsBothDirections(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "node_id": "a"})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "graph_neighbors", Params: params})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	neighbors, ok := result["neighbors"].([]neighborView)
	require.True(t, ok)
	require.Len(t, neighbors, 1)
	assert.Equal(t, model.NodeID("b"), neighbors[0].ID)
	assert.Equal(t, model.EdgeCalls, neighbors[0].RelationshipType)
}

func TestGraphTraverseToolWalksDependencyEdges(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "start_node_id": "a", "depth": 3})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "graph_traverse", Params: params})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]any)
	require.True(t, ok)
	nodes, ok := result["nodes"].([]traverseNodeView)
	require.True(t, ok)
	assert.NotEmpty(t, nodes)
}

func TestAgenticContextToolReturnsAgentResultShape(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "query": "how does config loading work?", "focus": "question"})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "agentic_context", Params: params})
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(agentResultView)
	require.True(t, ok)
	assert.Equal(t, agent.TerminationSuccess, result.TerminationReason)
	assert.GreaterOrEqual(t, result.StepsTaken, 0)
}

func TestAgenticImpactToolRunsWithoutError(t *testing.T) {
	server, _ := newTestServer(t)
	params, _ := json.Marshal(map[string]any{"project_id": "p1", "target": "parseConfig"})
	resp := server.Handle(context.Background(), &Request{JSONRPC: "2.0", ID: 1, Method: "agentic_impact", Params: params})
	require.Nil(t, resp.Error)
	_, ok := resp.Result.(agentResultView)
	require.True(t, ok)
}
