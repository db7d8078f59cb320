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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProviderChatDefault(t *testing.T) {
	p := NewMockProvider(128_000)
	resp, err := p.Chat(context.Background(), ChatRequest{Messages: []Message{{Role: "user", Content: "hello"}}})
	require.NoError(t, err)
	assert.Equal(t, FinishStop, resp.FinishReason)
	assert.Equal(t, 128_000, p.ContextWindow())
}

func TestScriptedProviderYieldsInOrderThenRepeatsLast(t *testing.T) {
	p := NewScriptedProvider(50_000,
		&ChatResponse{Message: Message{Role: "assistant", ToolCalls: []ToolCall{{ID: "1", Name: "hub_nodes"}}}, FinishReason: FinishToolCalls},
		&ChatResponse{Message: Message{Role: "assistant", Content: "done"}, FinishReason: FinishStop},
	)
	ctx := context.Background()

	first, err := p.Chat(ctx, ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, FinishToolCalls, first.FinishReason)

	second, err := p.Chat(ctx, ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", second.Message.Content)

	third, err := p.Chat(ctx, ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "done", third.Message.Content)
}
