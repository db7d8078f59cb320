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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/codegraph/internal/config"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
)

// resolveProjectID returns globals.Project if set, else the current
// working directory's base name, matching the teacher's "project-id
// defaults to directory name" convention.
func resolveProjectID(globals GlobalFlags) (string, error) {
	if globals.Project != "" {
		return globals.Project, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", cgerrors.NewInternalError("cannot resolve project id", err.Error(), "pass --project explicitly", err)
	}
	return filepath.Base(cwd), nil
}

// loadConfig loads config.Config honoring globals.Config, exiting the
// process on failure via cgerrors.FatalError.
func loadConfig(globals GlobalFlags) config.Config {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewConfigError(
			"failed to load configuration",
			err.Error(),
			"check the YAML syntax of your config file or unset CODEGRAPH_* overrides",
			err,
		), globals.JSON)
	}
	return cfg
}

// newLogger builds the process-wide slog.Logger, text by default and
// JSON when globals.JSON is set (so log lines stay parseable alongside
// JSON command output).
func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	if globals.Quiet {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if globals.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
