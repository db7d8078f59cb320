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

	"github.com/kraklabs/codegraph/pkg/codegraph/agent"
)

// agentResultView is the wire shape of an agent.Result, per spec §6's
// AgentResult contract.
type agentResultView struct {
	Answer            string                    `json:"answer"`
	StructuredOutput  []agent.ComponentRef      `json:"structured_output"`
	ToolCalls         []agent.ToolCallRecord    `json:"tool_calls"`
	StepsTaken        int                       `json:"steps_taken"`
	TerminationReason agent.TerminationReason   `json:"termination_reason"`
	ElapsedMS         int64                     `json:"elapsed_ms"`
}

func toAgentResultView(r *agent.Result) agentResultView {
	v := agentResultView{
		ToolCalls:         r.ToolTrace,
		StepsTaken:        r.Steps,
		TerminationReason: r.Termination,
		ElapsedMS:         r.Elapsed.Milliseconds(),
	}
	if r.Answer != nil {
		v.StructuredOutput = r.Answer.Components
		if raw, ok := r.Answer.Raw["answer"].(string); ok {
			v.Answer = raw
		}
	}
	return v
}

// runAgentTool decodes {project_id, query/target/scope, focus}, runs one
// agent.Controller task, and shapes the result per spec §6.
func runAgentTool(ctx context.Context, ctrl *agent.Controller, projectID, task string) (any, error) {
	result, err := ctrl.Run(ctx, agent.Request{ProjectID: projectID, Task: task, Timeout: agent.DefaultTimeout}, nil)
	if err != nil {
		return nil, err
	}
	return toAgentResultView(result), nil
}

// AgenticContextTool implements `agentic_context`: free-form code
// understanding over search/builder/question focuses.
type AgenticContextTool struct {
	controller *agent.Controller
}

// NewAgenticContextTool builds an AgenticContextTool over ctrl.
func NewAgenticContextTool(ctrl *agent.Controller) *AgenticContextTool {
	return &AgenticContextTool{controller: ctrl}
}

func (t *AgenticContextTool) Name() string { return "agentic_context" }

type agenticContextParams struct {
	ProjectID string `json:"project_id"`
	Query     string `json:"query"`
	Focus     string `json:"focus"`
}

func (t *AgenticContextTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p agenticContextParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: agentic_context: invalid params: %w", err)
	}
	focus := p.Focus
	if focus == "" {
		focus = "search"
	}
	task := fmt.Sprintf("[focus=%s] %s", focus, p.Query)
	res, err := runAgentTool(ctx, t.controller, p.ProjectID, task)
	if err != nil {
		return nil, fmt.Errorf("rpc: agentic_context: %w", err)
	}
	return res, nil
}

// AgenticImpactTool implements `agentic_impact`: dependency/call-chain
// impact analysis for a named target.
type AgenticImpactTool struct {
	controller *agent.Controller
}

// NewAgenticImpactTool builds an AgenticImpactTool over ctrl.
func NewAgenticImpactTool(ctrl *agent.Controller) *AgenticImpactTool {
	return &AgenticImpactTool{controller: ctrl}
}

func (t *AgenticImpactTool) Name() string { return "agentic_impact" }

type agenticImpactParams struct {
	ProjectID string `json:"project_id"`
	Target    string `json:"target"`
	Focus     string `json:"focus"`
}

func (t *AgenticImpactTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p agenticImpactParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: agentic_impact: invalid params: %w", err)
	}
	focus := p.Focus
	if focus == "" {
		focus = "dependencies"
	}
	task := fmt.Sprintf("[focus=%s] what breaks if %s changes?", focus, p.Target)
	res, err := runAgentTool(ctx, t.controller, p.ProjectID, task)
	if err != nil {
		return nil, fmt.Errorf("rpc: agentic_impact: %w", err)
	}
	return res, nil
}

// AgenticArchitectureTool implements `agentic_architecture`: structural
// and API-surface summarization over a scope.
type AgenticArchitectureTool struct {
	controller *agent.Controller
}

// NewAgenticArchitectureTool builds an AgenticArchitectureTool over ctrl.
func NewAgenticArchitectureTool(ctrl *agent.Controller) *AgenticArchitectureTool {
	return &AgenticArchitectureTool{controller: ctrl}
}

func (t *AgenticArchitectureTool) Name() string { return "agentic_architecture" }

type agenticArchitectureParams struct {
	ProjectID string `json:"project_id"`
	Scope     string `json:"scope"`
	Focus     string `json:"focus"`
}

func (t *AgenticArchitectureTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p agenticArchitectureParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: agentic_architecture: invalid params: %w", err)
	}
	focus := p.Focus
	if focus == "" {
		focus = "structure"
	}
	task := fmt.Sprintf("[focus=%s] describe the architecture of %s", focus, p.Scope)
	res, err := runAgentTool(ctx, t.controller, p.ProjectID, task)
	if err != nil {
		return nil, fmt.Errorf("rpc: agentic_architecture: %w", err)
	}
	return res, nil
}

// AgenticQualityTool implements `agentic_quality`: complexity/coupling/
// hotspot quality analysis over a scope.
type AgenticQualityTool struct {
	controller *agent.Controller
}

// NewAgenticQualityTool builds an AgenticQualityTool over ctrl.
func NewAgenticQualityTool(ctrl *agent.Controller) *AgenticQualityTool {
	return &AgenticQualityTool{controller: ctrl}
}

func (t *AgenticQualityTool) Name() string { return "agentic_quality" }

type agenticQualityParams struct {
	ProjectID string `json:"project_id"`
	Scope     string `json:"scope"`
	Focus     string `json:"focus"`
}

func (t *AgenticQualityTool) Call(ctx context.Context, raw json.RawMessage) (any, error) {
	var p agenticQualityParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rpc: agentic_quality: invalid params: %w", err)
	}
	focus := p.Focus
	if focus == "" {
		focus = "complexity"
	}
	task := fmt.Sprintf("[focus=%s] assess code quality in %s", focus, p.Scope)
	res, err := runAgentTool(ctx, t.controller, p.ProjectID, task)
	if err != nil {
		return nil, fmt.Errorf("rpc: agentic_quality: %w", err)
	}
	return res, nil
}
