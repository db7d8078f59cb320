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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	"github.com/kraklabs/codegraph/internal/checkpoint"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/codegraph/indexer"
)

// runIndex executes the 'index' CLI command: classify, parse, resolve, and
// embed every changed file under the project root, per spec §4.7.
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full re-index, ignoring content hashes")
	include := fs.StringSlice("include", nil, "Glob(s) of files to include (default: all supported languages)")
	exclude := fs.StringSlice("exclude", nil, "Glob(s) of files to exclude")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph index [options]

Indexes the current project: walks the repository, parses changed files,
resolves references into edges, and embeds nodes for semantic search.

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

	cfg := loadConfig(globals)
	logger := newLogger(globals)

	inst, err := bootstrap.Open(projectID, cfg, logger)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewStoreError(
			"failed to open project store",
			err.Error(),
			"run 'codegraph init' first",
			err,
		), globals.JSON)
	}
	defer inst.Store.Close()

	ckptDir := filepath.Join(filepath.Dir(cfg.Store.Path), "checkpoints")
	ckptMgr := checkpoint.NewManager(ckptDir)

	prior, err := ckptMgr.Load(projectID)
	if err != nil {
		ui.Warningf("could not read prior checkpoint: %v", err)
	}
	if prior != nil {
		ui.Warningf("previous index run for %q did not finish cleanly (%d files processed, last update %s); resuming — unchanged files are skipped by content hash",
			projectID, prior.FilesProcessed, prior.UpdatedAt)
	}

	now := time.Now().UTC()
	running := checkpoint.New(projectID, now)
	if err := ckptMgr.Save(running); err != nil {
		ui.Warningf("could not write checkpoint: %v", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot get working directory", err.Error(), "", err), globals.JSON)
	}
	inst.Project.RootPath = cwd

	opts := indexer.Options{
		IncludeGlobs:     *include,
		ExcludeGlobs:     *exclude,
		MaxFileSizeBytes: 2 << 20,
		Force:            *full,
		ParseConcurrency: runtime.NumCPU(),
		EmbedConcurrency: 4,
		EmbedRatePerSec:  10,
	}

	var bar *progressbar.ProgressBar
	if !globals.Quiet && isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("indexing"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionEnableColorCodes(!globals.NoColor),
		)
		defer bar.Finish()
	}

	report, err := inst.Indexer.Run(context.Background(), inst.Project, opts)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError(
			"indexing failed",
			err.Error(),
			"re-run 'codegraph index'; unchanged files are skipped by content hash on retry",
			err,
		), globals.JSON)
	}

	running.FilesProcessed = report.FilesAdded + report.FilesModified + report.FilesUnchanged
	running.NodesExtracted = report.Nodes
	running.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := ckptMgr.Clear(projectID); err != nil {
		ui.Warningf("could not clear checkpoint: %v", err)
	}

	ui.Header("Index Complete")
	fmt.Printf("  %s %d added, %d modified, %d deleted, %d unchanged\n",
		ui.Label("Files:"), report.FilesAdded, report.FilesModified, report.FilesDeleted, report.FilesUnchanged)
	fmt.Printf("  %s %d nodes, %d edges, %d chunks\n",
		ui.Label("Graph:"), report.Nodes, report.Edges, report.Chunks)
	if report.ParseErrors > 0 {
		ui.Warningf("%d files failed to parse", report.ParseErrors)
	}
	if report.UnresolvedRefs > 0 {
		ui.Warningf("%d references could not be resolved", report.UnresolvedRefs)
	}
	if report.EmbeddingErrors > 0 {
		ui.Warningf("%d nodes failed to embed", report.EmbeddingErrors)
	}
	fmt.Printf("  %s %s\n", ui.Label("Time:"), report.WallTime.Round(time.Millisecond))
}
