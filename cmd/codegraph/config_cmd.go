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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
)

// runConfig executes the 'config' CLI command: show|agent-status.
func runConfig(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: codegraph config show|agent-status")
		os.Exit(1)
	}

	switch args[0] {
	case "show":
		runConfigShow(globals)
	case "agent-status":
		runConfigAgentStatus(globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand %q (supported: show, agent-status)\n", args[0])
		os.Exit(1)
	}
}

func runConfigShow(globals GlobalFlags) {
	cfg := loadConfig(globals)

	if globals.JSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			cgerrors.FatalError(cgerrors.NewInternalError("cannot encode config", err.Error(), "", err), globals.JSON)
		}
		fmt.Println(string(data))
		return
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot encode config", err.Error(), "", err), globals.JSON)
	}
	ui.Header("Effective Configuration")
	fmt.Print(string(data))
}

// agentStatusView is the 'config agent-status' report: a snapshot of the
// agent loop's configured tuning knobs, for operators debugging why an
// agentic_* tool behaved the way it did. It holds no record of past runs.
type agentStatusView struct {
	Provider         string `json:"provider" yaml:"provider"`
	Timeout          string `json:"timeout" yaml:"timeout"`
	MaxOutputTokens  int    `json:"max_output_tokens" yaml:"max_output_tokens"`
	MemoryWindow     int    `json:"memory_window" yaml:"memory_window"`
	ContextWindow    int    `json:"context_window" yaml:"context_window"`
}

func runConfigAgentStatus(globals GlobalFlags) {
	projectID, err := resolveProjectID(globals)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	cfg := loadConfig(globals)
	logger := newLogger(globals)

	inst, err := bootstrap.Open(projectID, cfg, logger)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewStoreError("failed to open project store", err.Error(), "run 'codegraph init' first", err), globals.JSON)
	}
	defer inst.Store.Close()

	view := agentStatusView{
		Provider:        cfg.Providers.LLM,
		Timeout:         cfg.Tuning.AgentTimeout.String(),
		MaxOutputTokens: cfg.Tuning.AgentMaxOutputTokens,
		MemoryWindow:    cfg.Tuning.AgentMemoryWindow,
		ContextWindow:   inst.LLM.ContextWindow(),
	}

	if globals.JSON {
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			cgerrors.FatalError(cgerrors.NewInternalError("cannot encode agent status", err.Error(), "", err), globals.JSON)
		}
		fmt.Println(string(data))
		return
	}

	ui.Header("Agent Status")
	fmt.Printf("  %s %s\n", ui.Label("Provider:"), view.Provider)
	fmt.Printf("  %s %s\n", ui.Label("Timeout:"), view.Timeout)
	fmt.Printf("  %s %d\n", ui.Label("Max output tokens:"), view.MaxOutputTokens)
	fmt.Printf("  %s %d\n", ui.Label("Memory window:"), view.MemoryWindow)
	fmt.Printf("  %s %d\n", ui.Label("Context window:"), view.ContextWindow)
}
