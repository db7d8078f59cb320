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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
	"github.com/kraklabs/codegraph/pkg/llm"
)

func TestDetectTierBoundaries(t *testing.T) {
	assert.Equal(t, TierSmall, DetectTier(10_000).Tier)
	assert.Equal(t, TierMedium, DetectTier(100_000).Tier)
	assert.Equal(t, TierLarge, DetectTier(200_000).Tier)
	assert.Equal(t, TierMassive, DetectTier(1_000_000).Tier)
}

func seedAnalyticsStore(t *testing.T) *analytics.Service {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "codegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.UpsertProject(ctx, &model.Project{ProjectID: "p1"}))
	require.NoError(t, s.UpsertNodes(ctx, []*model.CodeNode{
		{ID: "a", ProjectID: "p1", Name: "a", QualifiedName: "a", NodeType: model.NodeFunction, FilePath: "a.go", StartLine: 3},
		{ID: "b", ProjectID: "p1", Name: "b", QualifiedName: "b", NodeType: model.NodeFunction, FilePath: "b.go", StartLine: 7},
	}))
	require.NoError(t, s.UpsertEdges(ctx, []*model.Edge{
		{ID: "e1", ProjectID: "p1", From: "a", To: "b", EdgeType: model.EdgeCalls},
	}))
	require.NoError(t, s.Flush(ctx))
	return analytics.New(s)
}

func TestToolExecutorDispatchesTransitiveDependencies(t *testing.T) {
	svc := seedAnalyticsStore(t)
	executor := NewToolExecutor(svc, embedding.NewMockProvider(8))

	result, err := executor.Execute(context.Background(), "p1", "transitive_dependencies", map[string]any{"node_id": "a", "max_depth": 3})
	require.NoError(t, err)
	deps := result.([]analytics.DepthNode)
	require.Len(t, deps, 1)
	assert.Equal(t, model.NodeID("b"), deps[0].Node.ID)
}

func TestToolExecutorUnknownToolErrors(t *testing.T) {
	svc := seedAnalyticsStore(t)
	executor := NewToolExecutor(svc, embedding.NewMockProvider(8))

	_, err := executor.Execute(context.Background(), "p1", "nonexistent_tool", nil)
	assert.Error(t, err)
}

func TestControllerRunReturnsSuccessOnFinalAnswer(t *testing.T) {
	svc := seedAnalyticsStore(t)
	executor := NewToolExecutor(svc, embedding.NewMockProvider(8))

	provider := llm.NewScriptedProvider(128_000,
		&llm.ChatResponse{
			Message: llm.Message{
				Role: "assistant",
				ToolCalls: []llm.ToolCall{
					{ID: "1", Name: "transitive_dependencies", Arguments: map[string]any{"node_id": "a", "max_depth": 2}},
				},
			},
			FinishReason: llm.FinishToolCalls,
		},
		&llm.ChatResponse{
			Message:      llm.Message{Role: "assistant", Content: `{"components":[{"name":"b","file_path":"b.go","line_number":7}]}`},
			FinishReason: llm.FinishStop,
		},
	)

	ctrl := New(provider, executor, nil, nil)
	var events []ProgressEvent
	result, err := ctrl.Run(context.Background(), Request{ProjectID: "p1", Task: "what does a depend on?", Timeout: 5 * time.Second}, func(e ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)
	assert.Equal(t, TerminationSuccess, result.Termination)
	require.Len(t, result.ToolTrace, 1)
	assert.Equal(t, "transitive_dependencies", result.ToolTrace[0].Name)
	require.Len(t, result.Answer.Components, 1)
	assert.Equal(t, "b", result.Answer.Components[0].Name)
	require.Len(t, events, 3)
	assert.Equal(t, 0.0, events[0].Fraction)
	assert.Equal(t, 0.5, events[1].Fraction)
	assert.Equal(t, 1.0, events[2].Fraction)
}

func TestControllerRunTerminatesOnMaxStepsAndSynthesizes(t *testing.T) {
	svc := seedAnalyticsStore(t)
	executor := NewToolExecutor(svc, embedding.NewMockProvider(8))

	// Always returns a tool call, never a final answer, forcing max_steps.
	provider := llm.NewScriptedProvider(10_000, &llm.ChatResponse{
		Message: llm.Message{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{
				{ID: "1", Name: "transitive_dependencies", Arguments: map[string]any{"node_id": "a", "max_depth": 1}},
			},
		},
		FinishReason: llm.FinishToolCalls,
	})

	ctrl := New(provider, executor, nil, nil)
	result, err := ctrl.Run(context.Background(), Request{ProjectID: "p1", Task: "loop forever"}, nil)
	require.NoError(t, err)
	assert.Equal(t, TerminationMaxSteps, result.Termination)
	assert.Equal(t, DetectTier(10_000).MaxSteps, result.Steps)
	assert.True(t, result.Answer.Synthesized)
	require.NotEmpty(t, result.Answer.Components)
}

func TestControllerRunFatalToolErrorStopsLoop(t *testing.T) {
	svc := seedAnalyticsStore(t)
	executor := NewToolExecutor(svc, embedding.NewMockProvider(8))

	provider := llm.NewScriptedProvider(128_000, &llm.ChatResponse{
		Message: llm.Message{
			Role:      "assistant",
			ToolCalls: []llm.ToolCall{{ID: "1", Name: "does_not_exist"}},
		},
		FinishReason: llm.FinishToolCalls,
	})

	ctrl := New(provider, executor, nil, nil)
	result, err := ctrl.Run(context.Background(), Request{ProjectID: "p1", Task: "break it"}, nil)
	require.NoError(t, err)
	assert.Equal(t, TerminationToolErrorFatal, result.Termination)
}

func TestToolCacheRoundTrips(t *testing.T) {
	c := NewToolCache(10)
	c.Put("p1", "hub_nodes", map[string]any{"min_degree": 2}, "cached-result")
	v, ok := c.Get("p1", "hub_nodes", map[string]any{"min_degree": 2})
	require.True(t, ok)
	assert.Equal(t, "cached-result", v)

	_, ok = c.Get("p1", "hub_nodes", map[string]any{"min_degree": 3})
	assert.False(t, ok)
}
