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

// Package main implements the codegraph CLI: a local-first code
// intelligence service that indexes a repository into a graph + vector
// store and serves it over JSON-RPC for search, graph queries, and an
// agentic context loop.
//
// Usage:
//
//	codegraph init                 Initialize a project in the current directory
//	codegraph index [--full]       Index (or re-index) the project
//	codegraph start stdio|http     Serve JSON-RPC tools
//	codegraph daemon start|stop|status   Manage the background file watcher
//	codegraph config show|agent-status   Inspect configuration and agent state
//	codegraph query <method> [params]    Invoke one RPC tool method directly
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries options every subcommand respects.
type GlobalFlags struct {
	JSON     bool
	NoColor  bool
	Quiet    bool
	Config   string
	Project  string
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		jsonOut     = flag.Bool("json", false, "Emit machine-readable JSON output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress output")
		configPath  = flag.String("config", "", "Path to config.yaml (default: ~/.codegraph/config.yaml)")
		projectID   = flag.String("project", "", "Project identifier (default: current directory name)")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `codegraph - local-first code intelligence CLI

Usage:
  codegraph <command> [options]

Commands:
  init                       Initialize a project in the current directory
  index                      Index (or incrementally re-index) the project
  start stdio|http           Serve JSON-RPC tools over stdio or HTTP
  daemon start|stop|status   Manage the background file watcher
  config show|agent-status   Inspect configuration and agent state
  query <method> [params]   Invoke one RPC tool method directly

Global Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  codegraph init
  codegraph index --full
  codegraph start stdio
  codegraph daemon start
  codegraph config show --json
  codegraph query search '{"project_id":"myapp","query":"parse config"}'
`)
	}

	flag.Parse()
	ui.InitColors(*noColor)

	if *showVersion {
		fmt.Printf("codegraph version %s (commit %s, built %s)\n", version, commit, date)
		os.Exit(0)
	}

	globals := GlobalFlags{
		JSON:    *jsonOut,
		NoColor: *noColor,
		Quiet:   *quiet || *jsonOut,
		Config:  *configPath,
		Project: *projectID,
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "init":
		runInit(rest, globals)
	case "index":
		runIndex(rest, globals)
	case "start":
		runStart(rest, globals)
	case "daemon":
		runDaemon(rest, globals)
	case "config":
		runConfig(rest, globals)
	case "query":
		runQuery(rest, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
