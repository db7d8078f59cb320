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

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/retrieval"
)

// searchHitView is the wire shape of one retrieval.SearchHit, per spec
// §6's search/vector_search result contract.
type searchHitView struct {
	ID            model.NodeID        `json:"id"`
	Name          string              `json:"name"`
	QualifiedName string              `json:"qualified_name"`
	NodeType      model.NodeType      `json:"node_type"`
	FilePath      string              `json:"file_path"`
	StartLine     int                 `json:"start_line"`
	Score         float32             `json:"score"`
	Stub          *retrieval.StubInfo `json:"stub,omitempty"`
}

func toSearchHitView(h retrieval.SearchHit) searchHitView {
	return searchHitView{
		ID: h.Node.ID, Name: h.Node.Name, QualifiedName: h.Node.QualifiedName,
		NodeType: h.Node.NodeType, FilePath: h.Node.FilePath, StartLine: h.Node.StartLine,
		Score: h.Score,
		Stub:  retrieval.DetectStub(h.Node),
	}
}

// SearchTool implements the `search` RPC method: full search with graph
// enrichment and optional reranking.
type SearchTool struct {
	retrieval *retrieval.Service
}

// NewSearchTool builds a SearchTool over svc.
func NewSearchTool(svc *retrieval.Service) *SearchTool { return &SearchTool{retrieval: svc} }

func (t *SearchTool) Name() string { return "search" }

type searchParams struct {
	ProjectID    string   `json:"project_id"`
	Query        string   `json:"query"`
	Limit        int      `json:"limit"`
	Paths        []string `json:"paths"`
	Langs        []string `json:"langs"`
	Rerank       bool     `json:"rerank"`
	KeywordBoost bool     `json:"keyword_boost"`
}

func (t *SearchTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p searchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: search: invalid params: %w", err)
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}

	filters := ann.Filters{}
	if len(p.Paths) > 0 {
		filters.FilePathPrefix = p.Paths[0]
	}
	if len(p.Langs) > 0 {
		filters.Language = model.Language(p.Langs[0])
	}

	result, err := t.retrieval.Search(ctx, p.ProjectID, p.Query, p.Limit, retrieval.Options{
		Filters: filters, UseRerank: p.Rerank, UseKeywordBoost: p.KeywordBoost, EnrichEdges: true,
	})
	if err != nil {
		return nil, fmt.Errorf("rpc: search: %w", err)
	}

	views := make([]searchHitView, 0, len(result.Hits))
	for _, h := range result.Hits {
		views = append(views, toSearchHitView(h))
	}
	return map[string]any{"results": views, "timing": result.Timing}, nil
}

// VectorSearchTool implements `vector_search`: an alias of search without
// graph enrichment, per spec §6.
type VectorSearchTool struct {
	retrieval *retrieval.Service
}

// NewVectorSearchTool builds a VectorSearchTool over svc.
func NewVectorSearchTool(svc *retrieval.Service) *VectorSearchTool {
	return &VectorSearchTool{retrieval: svc}
}

func (t *VectorSearchTool) Name() string { return "vector_search" }

type vectorSearchParams struct {
	ProjectID string `json:"project_id"`
	Query     string `json:"query"`
	Limit     int    `json:"limit"`
}

func (t *VectorSearchTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p vectorSearchParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: vector_search: invalid params: %w", err)
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}

	result, err := t.retrieval.Search(ctx, p.ProjectID, p.Query, p.Limit, retrieval.Options{EnrichEdges: false})
	if err != nil {
		return nil, fmt.Errorf("rpc: vector_search: %w", err)
	}

	views := make([]searchHitView, 0, len(result.Hits))
	for _, h := range result.Hits {
		views = append(views, toSearchHitView(h))
	}
	return views, nil
}
