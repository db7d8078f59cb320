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
	"log/slog"
	"strings"
	"time"

	"github.com/kraklabs/codegraph/pkg/llm"
)

// TerminationReason is why a Run call stopped, per spec §4.10.
type TerminationReason string

const (
	TerminationSuccess        TerminationReason = "success"
	TerminationMaxSteps       TerminationReason = "max_steps"
	TerminationTimeout        TerminationReason = "timeout"
	TerminationContextOverflow TerminationReason = "context_overflow"
	TerminationToolErrorFatal TerminationReason = "tool_error_fatal"
)

// DefaultTimeout is spec §4.10's global per-request default. Request.Timeout
// of exactly 0 means unlimited, per the spec's explicit "0 = unlimited"
// knob — callers wanting the default must set Timeout: DefaultTimeout.
const DefaultTimeout = 300 * time.Second

// contextUsageDowngradeThreshold is the fraction of the provider's context
// window at which the loop downgrades to a shorter-prompt tier for its
// remaining steps, per spec §4.10's loop pseudocode.
const contextUsageDowngradeThreshold = 0.8

// ToolCallRecord is one tool invocation and its outcome, forming the
// "tool_calls" trace the fallback synthesizer reads.
type ToolCallRecord struct {
	Name   string
	Args   map[string]any
	Result any
	Error  string
}

// Request is one agent task.
type Request struct {
	ProjectID string
	Task      string
	// Timeout is the per-request deadline; 0 means unlimited, per spec
	// §4.10. Use DefaultTimeout for the spec's documented default.
	Timeout time.Duration
}

// Result is the outcome of one Run call.
type Result struct {
	Answer      *StructuredAnswer
	Termination TerminationReason
	Steps       int
	Elapsed     time.Duration
	ToolTrace   []ToolCallRecord
}

// ProgressEvent is one of the three progress notifications spec §4.10
// requires per request: started (0.0), first-tool-executed (0.5), and
// completed (1.0, with outcome).
type ProgressEvent struct {
	Fraction float64
	Outcome  string
}

// Controller runs the bounded ReAct loop of spec §4.10.
type Controller struct {
	provider llm.Provider
	executor *ToolExecutor
	cache    *ToolCache
	logger   *slog.Logger
}

// New builds a Controller. cache may be nil to use a fresh
// DefaultToolCacheSize cache.
func New(provider llm.Provider, executor *ToolExecutor, cache *ToolCache, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewToolCache(DefaultToolCacheSize)
	}
	return &Controller{provider: provider, executor: executor, cache: cache, logger: logger}
}

// Run drives the loop: generate, execute any requested tools, repeat until
// the LLM returns a non-tool-call response, the step budget is exhausted,
// the request times out, or a tool call fails fatally.
func (c *Controller) Run(ctx context.Context, req Request, onProgress func(ProgressEvent)) (*Result, error) {
	start := time.Now()
	if onProgress == nil {
		onProgress = func(ProgressEvent) {}
	}
	onProgress(ProgressEvent{Fraction: 0.0})

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	tier := DetectTier(c.provider.ContextWindow())
	messages := []llm.Message{
		{Role: "system", Content: systemPrompt(tier, req.Task)},
		{Role: "user", Content: req.Task},
	}

	var trace []ToolCallRecord
	firstToolReported := false
	steps := 0

	for steps < tier.MaxSteps {
		select {
		case <-ctx.Done():
			return c.finish(&Result{
				Termination: TerminationTimeout,
				Steps:       steps,
				Elapsed:     time.Since(start),
				ToolTrace:   trace,
				Answer:      synthesizeFromTrace(trace),
			}, onProgress), nil
		default:
		}

		resp, err := c.provider.Chat(ctx, llm.ChatRequest{
			Messages:    trimToWindow(messages, tier.MemoryWindow),
			MaxTokens:   tier.MaxOutputTokens,
			Tools:       ToolSchemas(),
			Temperature: 0.2,
		})
		if err != nil {
			if isContextOverflow(err) {
				return c.finish(&Result{
					Termination: TerminationContextOverflow,
					Steps:       steps,
					Elapsed:     time.Since(start),
					ToolTrace:   trace,
					Answer:      synthesizeFromTrace(trace),
				}, onProgress), fmt.Errorf("agent: context window reached")
			}
			return nil, fmt.Errorf("agent: llm chat: %w", err)
		}

		usage := contextUsage(resp, c.provider.ContextWindow())
		if usage > contextUsageDowngradeThreshold {
			tier = downgrade(tier)
			c.logger.Warn("agent.tier.downgraded", "new_tier", tier.Tier, "context_usage", usage)
		}

		if len(resp.Message.ToolCalls) == 0 {
			if answer, ok := parseStructured(resp.Message.Content); ok {
				return c.finish(&Result{
					Answer:      answer,
					Termination: TerminationSuccess,
					Steps:       steps,
					Elapsed:     time.Since(start),
					ToolTrace:   trace,
				}, onProgress), nil
			}
			return c.finish(&Result{
				Answer:      synthesizeFromTrace(trace),
				Termination: TerminationSuccess,
				Steps:       steps,
				Elapsed:     time.Since(start),
				ToolTrace:   trace,
			}, onProgress), nil
		}

		messages = append(messages, resp.Message)
		for _, tc := range resp.Message.ToolCalls {
			result, toolErr := c.executeCached(ctx, req.ProjectID, tc)
			record := ToolCallRecord{Name: tc.Name, Args: tc.Arguments, Result: result}
			if toolErr != nil {
				record.Error = toolErr.Error()
				trace = append(trace, record)
				return c.finish(&Result{
					Termination: TerminationToolErrorFatal,
					Steps:       steps + 1,
					Elapsed:     time.Since(start),
					ToolTrace:   trace,
					Answer:      synthesizeFromTrace(trace),
				}, onProgress), nil
			}
			trace = append(trace, record)
			messages = append(messages, llm.Message{Role: "tool", ToolCallID: tc.ID, Content: fmt.Sprintf("%v", result)})

			if !firstToolReported {
				onProgress(ProgressEvent{Fraction: 0.5})
				firstToolReported = true
			}
		}
		steps++
	}

	return c.finish(&Result{
		Termination: TerminationMaxSteps,
		Steps:       steps,
		Elapsed:     time.Since(start),
		ToolTrace:   trace,
		Answer:      synthesizeFromTrace(trace),
	}, onProgress), nil
}

func (c *Controller) finish(res *Result, onProgress func(ProgressEvent)) *Result {
	onProgress(ProgressEvent{Fraction: 1.0, Outcome: string(res.Termination)})
	return res
}

func (c *Controller) executeCached(ctx context.Context, projectID string, tc llm.ToolCall) (any, error) {
	if cached, ok := c.cache.Get(projectID, tc.Name, tc.Arguments); ok {
		return cached, nil
	}
	result, err := c.executor.Execute(ctx, projectID, tc.Name, tc.Arguments)
	if err != nil {
		return nil, err
	}
	c.cache.Put(projectID, tc.Name, tc.Arguments, result)
	return result, nil
}

func systemPrompt(tier TierProfile, task string) string {
	return fmt.Sprintf("You are a code intelligence agent operating in %s mode. Use the available graph tools to answer: %s", tier.PromptStyle, task)
}

// trimToWindow keeps system+user plus the most recent messages, at most
// window messages in all, per spec §4.10's 40-message memory window.
func trimToWindow(messages []llm.Message, window int) []llm.Message {
	if len(messages) <= window {
		return messages
	}
	head := messages[:2]
	tail := messages[len(messages)-(window-2):]
	out := make([]llm.Message, 0, window)
	out = append(out, head...)
	out = append(out, tail...)
	return out
}

func contextUsage(resp *llm.ChatResponse, contextWindow int) float64 {
	if contextWindow <= 0 {
		return 0
	}
	used := resp.PromptTokens + resp.OutputTokens
	return float64(used) / float64(contextWindow)
}

// isContextOverflow classifies a provider error as context-window
// exhaustion per spec §4.10's "detect provider error patterns" rule.
func isContextOverflow(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"context_length_exceeded", "maximum context length",
		"context window", "too many tokens", "prompt is too long",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
