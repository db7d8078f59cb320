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
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/internal/ui"
	"github.com/kraklabs/codegraph/pkg/codegraph/rpc"
)

// runStart executes the 'start' CLI command, serving the JSON-RPC tool
// surface (spec §6) over either stdio or HTTP until interrupted.
func runStart(args []string, globals GlobalFlags) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: codegraph start stdio|http [options]")
		os.Exit(1)
	}

	transport, rest := args[0], args[1:]

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

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch transport {
	case "stdio":
		ui.Infof("serving JSON-RPC tools over stdio for project %q", projectID)
		server := rpc.NewStdioServer(inst.RPCServer, os.Stdin, os.Stdout)
		if err := server.Serve(ctx); err != nil && ctx.Err() == nil {
			cgerrors.FatalError(cgerrors.NewInternalError("stdio server exited", err.Error(), "", err), globals.JSON)
		}
	case "http":
		fs := flag.NewFlagSet("start http", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:8232", "Address to listen on")
		if err := fs.Parse(rest); err != nil {
			os.Exit(1)
		}

		handler := rpc.NewHTTPServer(inst.RPCServer)
		srv := &http.Server{Addr: *addr, Handler: handler}

		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()

		ui.Infof("serving JSON-RPC tools over http://%s for project %q", *addr, projectID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			cgerrors.FatalError(cgerrors.NewNetworkError("http server failed", err.Error(), fmt.Sprintf("check that %s is free", *addr), err), globals.JSON)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown transport %q (supported: stdio, http)\n", transport)
		os.Exit(1)
	}
}
