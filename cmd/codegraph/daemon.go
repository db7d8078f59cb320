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
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/codegraph/indexer"
	"github.com/kraklabs/codegraph/pkg/codegraph/watcher"
)

// internalWatchSubcommand re-execs the daemon in the foreground; only
// 'daemon start' uses it, to fork a detached background process. It is a
// plain positional token (no leading dashes) so pflag's top-level parse
// never tries to interpret it as a flag.
const internalWatchSubcommand = "internal-watch"

// runDaemon executes the 'daemon' CLI command: start|stop|status for the
// project's background file watcher, per spec §4.11's PID-file lifecycle.
func runDaemon(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: codegraph daemon start|stop|status")
		os.Exit(1)
	}

	sub, rest := args[0], args[1:]
	projectID, err := resolveProjectID(globals)
	if err != nil {
		cgerrors.FatalError(err, globals.JSON)
	}
	cfg := loadConfig(globals)
	dir := filepath.Join(filepath.Dir(cfg.Store.Path), "daemon")

	switch sub {
	case "start":
		runDaemonStart(rest, globals, projectID, dir)
	case "stop":
		runDaemonStop(globals, projectID, dir)
	case "status":
		runDaemonStatus(globals, projectID, dir)
	case internalWatchSubcommand:
		runInternalWatch(rest, globals, projectID)
	default:
		fmt.Fprintf(os.Stderr, "Unknown daemon subcommand %q (supported: start, stop, status)\n", sub)
		os.Exit(1)
	}
}

func runDaemonStart(args []string, globals GlobalFlags, projectID, dir string) {
	fs := flag.NewFlagSet("daemon start", flag.ExitOnError)
	foreground := fs.Bool("foreground", false, "Run the watcher in the foreground instead of detaching")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if info, err := watcher.Status(dir, projectID); err == nil && info != nil {
		ui.Warningf("daemon already running for %q (pid %d, started %s)", projectID, info.PID, info.StartedAt.Format(time.RFC3339))
		return
	}

	if *foreground {
		runInternalWatch(nil, globals, projectID)
		return
	}

	exe, err := os.Executable()
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot resolve executable path", err.Error(), "", err), globals.JSON)
	}

	logPath := filepath.Join(dir, projectID+".log")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		cgerrors.FatalError(cgerrors.NewPermissionError("cannot create daemon directory", err.Error(), fmt.Sprintf("check permissions on %s", dir), err), globals.JSON)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewPermissionError("cannot open daemon log", err.Error(), "", err), globals.JSON)
	}
	defer logFile.Close()

	cmd := exec.Command(exe, "--project", projectID, "daemon", internalWatchSubcommand)
	if globals.Config != "" {
		cmd.Args = append(cmd.Args, "--config", globals.Config)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("failed to start daemon process", err.Error(), "", err), globals.JSON)
	}

	ui.Successf("daemon started for %q (pid %d), logging to %s", projectID, cmd.Process.Pid, logPath)
}

// runInternalWatch is the foreground body executed by the detached daemon
// process (or directly, with --foreground). It acquires the PID lock,
// opens the project, and drives the watcher until signaled.
func runInternalWatch(_ []string, globals GlobalFlags, projectID string) {
	cfg := loadConfig(globals)
	logger := newLogger(globals)
	dir := filepath.Join(filepath.Dir(cfg.Store.Path), "daemon")

	pf, err := watcher.NewPIDFile(dir, projectID)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot create pid file", err.Error(), "", err), globals.JSON)
	}
	acquired, err := pf.TryAcquire()
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot acquire pid lock", err.Error(), "", err), globals.JSON)
	}
	if !acquired {
		ui.Errorf("another daemon already holds the lock for %q", projectID)
		os.Exit(1)
	}
	defer pf.Release()

	inst, err := bootstrap.Open(projectID, cfg, logger)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewStoreError("failed to open project store", err.Error(), "run 'codegraph init' first", err), globals.JSON)
	}
	defer inst.Store.Close()

	if inst.Project.RootPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			inst.Project.RootPath = cwd
		}
	}

	watchPath := cfg.Daemon.WatchPath
	if watchPath == "" {
		watchPath = inst.Project.RootPath
	}
	inst.Project.RootPath = watchPath

	opts := indexer.Options{MaxFileSizeBytes: 2 << 20, ParseConcurrency: 4, EmbedConcurrency: 4, EmbedRatePerSec: 10}
	w := watcher.New(inst.Project, inst.Indexer, inst.Store, opts, logger, watcher.WithOnReport(func(r *indexer.IndexReport) {
		logger.Info("daemon.reindex", "files_modified", r.FilesModified, "nodes", r.Nodes)
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("watcher failed to start", err.Error(), "", err), globals.JSON)
	}
	<-ctx.Done()
	w.Stop()
}

func runDaemonStop(globals GlobalFlags, projectID, dir string) {
	info, err := watcher.Status(dir, projectID)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot read daemon status", err.Error(), "", err), globals.JSON)
	}
	if info == nil {
		ui.Warningf("no daemon running for %q", projectID)
		return
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot find daemon process", err.Error(), "", err), globals.JSON)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("failed to signal daemon", err.Error(), "", err), globals.JSON)
	}
	ui.Successf("sent stop signal to daemon for %q (pid %d)", projectID, info.PID)
}

func runDaemonStatus(globals GlobalFlags, projectID, dir string) {
	info, err := watcher.Status(dir, projectID)
	if err != nil {
		cgerrors.FatalError(cgerrors.NewInternalError("cannot read daemon status", err.Error(), "", err), globals.JSON)
	}
	if info == nil {
		fmt.Printf("%s: not running\n", projectID)
		return
	}
	fmt.Printf("%s: running (pid %d, started %s)\n", projectID, info.PID, info.StartedAt.Format(time.RFC3339))
}
