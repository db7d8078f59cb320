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
	"encoding/json"

	"github.com/kraklabs/codegraph/pkg/codegraph/analytics"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// ComponentRef is one located item in a StructuredAnswer's array fields,
// per spec §4.10's output contract: every item requires name, file_path,
// and line_number.
type ComponentRef struct {
	Name       string `json:"name"`
	FilePath   string `json:"file_path"`
	LineNumber int    `json:"line_number"`
}

// StructuredAnswer is the controller's final output: either the LLM's own
// JSON response (Raw, parsed), or — when the LLM returned free text or
// nothing usable — a best-effort answer synthesized from the tool trace.
type StructuredAnswer struct {
	Components  []ComponentRef `json:"components"`
	Raw         map[string]any `json:"raw,omitempty"`
	Synthesized bool           `json:"synthesized"`
}

// parseStructured attempts to parse content as the JSON output contract.
// A parse failure is not an error here: the caller falls back to
// synthesizeFromTrace per spec §4.10's "if the LLM returns free text"
// clause.
func parseStructured(content string) (*StructuredAnswer, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, false
	}
	return &StructuredAnswer{Raw: raw, Components: componentsFromRaw(raw)}, true
}

func componentsFromRaw(raw map[string]any) []ComponentRef {
	var out []ComponentRef
	for _, v := range raw {
		items, ok := v.([]any)
		if !ok {
			continue
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := obj["name"].(string)
			filePath, _ := obj["file_path"].(string)
			line, _ := obj["line_number"].(float64)
			if name == "" && filePath == "" {
				continue
			}
			out = append(out, ComponentRef{Name: name, FilePath: filePath, LineNumber: int(line)})
		}
	}
	return out
}

// synthesizeFromTrace builds a best-effort StructuredAnswer from the
// recorded tool calls, per spec §4.10's fallback:
// "synthesize_answer_from_tool_trace(state.tool_calls)". Any recorded
// result that carries a *model.CodeNode (directly or as a depth/hub/
// hotspot/chunk-hit wrapper) contributes one ComponentRef so downstream
// consumers always receive actionable locations even when the LLM never
// produced valid JSON.
func synthesizeFromTrace(trace []ToolCallRecord) *StructuredAnswer {
	var components []ComponentRef
	for _, rec := range trace {
		components = append(components, componentsFromToolResult(rec.Result)...)
	}
	return &StructuredAnswer{Components: components, Synthesized: true}
}

func componentsFromToolResult(result any) []ComponentRef {
	switch v := result.(type) {
	case nil:
		return nil
	case []analytics.DepthNode:
		out := make([]ComponentRef, 0, len(v))
		for _, d := range v {
			out = append(out, componentFromNode(d.Node))
		}
		return out
	case []analytics.HubNode:
		out := make([]ComponentRef, 0, len(v))
		for _, h := range v {
			out = append(out, componentFromNode(h.Node))
		}
		return out
	case []analytics.Hotspot:
		out := make([]ComponentRef, 0, len(v))
		for _, h := range v {
			out = append(out, componentFromNode(h.Node))
		}
		return out
	case []analytics.ChunkHit:
		out := make([]ComponentRef, 0, len(v))
		for _, c := range v {
			out = append(out, componentFromNode(c.Node))
		}
		return out
	default:
		return nil
	}
}

func componentFromNode(n *model.CodeNode) ComponentRef {
	if n == nil {
		return ComponentRef{}
	}
	name := n.QualifiedName
	if name == "" {
		name = n.Name
	}
	return ComponentRef{Name: name, FilePath: n.FilePath, LineNumber: n.StartLine}
}
