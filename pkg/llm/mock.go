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

package llm

import (
	"context"
	"fmt"
)

// MockProvider is a deterministic, in-process Provider for tests and
// offline use. ChatFunc/GenerateFunc let a test script exact responses
// (e.g. a sequence of tool calls followed by a final answer) by wrapping
// a call counter, mirroring the teacher's injectable-hook pattern.
type MockProvider struct {
	model         string
	contextWindow int

	GenerateFunc func(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	ChatFunc     func(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// NewMockProvider returns a MockProvider declaring contextWindow tokens,
// the input spec §4.10's tier detection classifies on.
func NewMockProvider(contextWindow int) *MockProvider {
	return &MockProvider{model: "mock-model", contextWindow: contextWindow}
}

func (p *MockProvider) Name() string       { return "mock" }
func (p *MockProvider) ContextWindow() int { return p.contextWindow }

func (p *MockProvider) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if p.GenerateFunc != nil {
		return p.GenerateFunc(ctx, req)
	}
	return &GenerateResponse{
		Text:         fmt.Sprintf("[mock] generated response for: %.50s", req.Prompt),
		Model:        p.model,
		PromptTokens: len(req.Prompt) / 4,
		OutputTokens: 20,
	}, nil
}

func (p *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.ChatFunc != nil {
		return p.ChatFunc(ctx, req)
	}
	lastContent := ""
	if len(req.Messages) > 0 {
		lastContent = req.Messages[len(req.Messages)-1].Content
	}
	return &ChatResponse{
		Message: Message{
			Role:    "assistant",
			Content: fmt.Sprintf("[mock] response to: %.50s", lastContent),
		},
		Model:        p.model,
		PromptTokens: 50,
		OutputTokens: 20,
		FinishReason: FinishStop,
	}, nil
}

// ScriptedProvider is a MockProvider preloaded with a fixed sequence of
// ChatResponses, returned one per call in order — the shape an agent
// controller test needs to drive a multi-step ReAct loop (tool call, tool
// call, final answer) without hand-writing a closure and counter each time.
type ScriptedProvider struct {
	*MockProvider
	responses []*ChatResponse
	call      int
}

// NewScriptedProvider returns a ScriptedProvider that yields responses in
// order, repeating the last one if Chat is called more times than scripted.
func NewScriptedProvider(contextWindow int, responses ...*ChatResponse) *ScriptedProvider {
	sp := &ScriptedProvider{MockProvider: NewMockProvider(contextWindow), responses: responses}
	sp.ChatFunc = func(_ context.Context, _ ChatRequest) (*ChatResponse, error) {
		if len(sp.responses) == 0 {
			return &ChatResponse{Message: Message{Role: "assistant", Content: ""}, FinishReason: FinishStop}, nil
		}
		idx := sp.call
		if idx >= len(sp.responses) {
			idx = len(sp.responses) - 1
		}
		sp.call++
		return sp.responses[idx], nil
	}
	return sp
}
