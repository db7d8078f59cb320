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

// Package llm defines the narrow contract the agent controller consumes an
// LLM through. The concrete HTTP clients for any given vendor (Ollama,
// OpenAI-compatible, Anthropic, ...) are an external-collaborator concern
// per spec §1's scope boundary; this package is the interface they must
// satisfy plus a deterministic in-process Provider for tests and offline use.
package llm

import "context"

// Provider is a chat-capable LLM session. Generate is a convenience
// single-turn wrapper; Chat is the primary surface the agent controller
// drives, since its ReAct loop always operates over a growing message list
// and may pass tool schemas and a response schema.
type Provider interface {
	// Name identifies the provider for logging.
	Name() string

	// ContextWindow returns the provider's declared context window in
	// tokens, the sole input to the agent controller's tier detection
	// (spec §4.10).
	ContextWindow() int

	// Generate produces a single completion for prompt.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// Chat handles a multi-turn, tool-calling conversation.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// GenerateRequest is a single-turn completion request.
type GenerateRequest struct {
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GenerateResponse is the result of a single-turn completion.
type GenerateResponse struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
}

// ToolSchema describes one tool the LLM may call, per spec §4.10's "strict
// input schema" requirement. Parameters is a JSON Schema object describing
// the call's arguments.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is one invocation the LLM requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one turn in a Chat conversation. Role is "system", "user",
// "assistant", or "tool"; ToolCallID is set only on role="tool" messages,
// linking a tool's result back to the ToolCall that produced it.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ChatRequest is a multi-turn, tool-aware chat request. ResponseSchema, when
// set, is a JSON Schema the provider is asked to constrain its final text
// response to — spec §4.10's "schema-enforced output."
type ChatRequest struct {
	Messages       []Message
	Model          string
	MaxTokens      int
	Temperature    float64
	Tools          []ToolSchema
	ResponseSchema map[string]any
}

// FinishReason classifies why a Chat call stopped generating.
type FinishReason string

const (
	FinishStop      FinishReason = "stop"
	FinishToolCalls FinishReason = "tool_calls"
	FinishLength    FinishReason = "length"
)

// ChatResponse is the result of one Chat call.
type ChatResponse struct {
	Message      Message
	Model        string
	PromptTokens int
	OutputTokens int
	FinishReason FinishReason
}
