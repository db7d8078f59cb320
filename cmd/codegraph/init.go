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
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	"github.com/kraklabs/codegraph/internal/config"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
)

// runInit executes the 'init' CLI command: it creates ~/.codegraph,
// writes a default config.yaml if none exists, opens (creating on first
// run) the project's store, and registers the project row.
//
// Flags:
//   - --embedding-provider: embedding provider (mock, http)
//   - --llm-provider: LLM provider (mock)
//   - --force: overwrite an existing config.yaml
func runInit(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	embeddingProvider := fs.String("embedding-provider", "", "Embedding provider (mock, http)")
	llmProvider := fs.String("llm-provider", "", "LLM provider (mock)")
	force := fs.Bool("force", false, "Overwrite an existing config.yaml")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph init [options]

Initializes a codegraph project: writes a config.yaml and creates the
local store. Safe to re-run; use --force to rewrite the config.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	projectID, err := resolveProjectID(globals)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}

	configPath := globals.Config
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !*force {
		ui.Warningf("%s already exists; use --force to overwrite", configPath)
	} else {
		cfg := config.Defaults()
		if *embeddingProvider != "" {
			cfg.Providers.Embedding = *embeddingProvider
		}
		if *llmProvider != "" {
			cfg.Providers.LLM = *llmProvider
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			cgerrors.FatalError(cgerrors.NewPermissionError(
				"cannot create config directory",
				err.Error(),
				fmt.Sprintf("check write permissions on %s", filepath.Dir(configPath)),
				err,
			), globals.JSON)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			cgerrors.FatalError(cgerrors.NewInternalError("cannot encode config", err.Error(), "", err), globals.JSON)
		}
		if err := os.WriteFile(configPath, data, 0o644); err != nil {
			cgerrors.FatalError(cgerrors.NewPermissionError(
				"cannot write config.yaml",
				err.Error(),
				fmt.Sprintf("check write permissions on %s", configPath),
				err,
			), globals.JSON)
		}
		ui.Successf("Wrote %s", configPath)
	}

	cfg := loadConfig(globals)
	logger := newLogger(globals)

	inst, err := bootstrap.Open(projectID, cfg, logger)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewStoreError(
			"failed to initialize project store",
			err.Error(),
			"check CODEGRAPH_STORE_PATH permissions and disk space",
			err,
		), globals.JSON)
	}
	defer inst.Store.Close()

	ui.Successf("Project %q initialized at %s", projectID, cfg.Store.Path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  codegraph index        Index the current repository")
	fmt.Println("  codegraph start stdio  Serve JSON-RPC tools over stdio")
}
