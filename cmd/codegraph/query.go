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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/codegraph/internal/bootstrap"
	cgerrors "github.com/kraklabs/codegraph/internal/errors"
	"github.com/kraklabs/codegraph/pkg/codegraph/rpc"
)

// runQuery executes the 'query' CLI command: a direct, ad-hoc invocation of
// one registered RPC method against the project store, for operators who
// want a single result without standing up a stdio/http server.
func runQuery(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	list := fs.Bool("list", false, "List available query methods and exit")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codegraph query [options] <method> [json-params]

Invokes one registered tool method directly against the project's graph,
without starting a stdio or http server.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  codegraph query --list
  codegraph query search '{"project_id":"myapp","query":"parse config","limit":5}'
  codegraph query hub_nodes '{"project_id":"myapp","min_degree":10,"limit":20}'
  codegraph query detect_cycles '{"project_id":"myapp"}'
`)
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
		cgerrors.FatalError(cgerrors.NewStoreError("failed to open project store", err.Error(), "run 'codegraph init' first", err), globals.JSON)
	}
	defer inst.Store.Close()

	if *list {
		methods := inst.RPCServer.Methods()
		sort.Strings(methods)
		for _, m := range methods {
			fmt.Println(m)
		}
		return
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: method argument required")
		fs.Usage()
		os.Exit(1)
	}

	method := fs.Arg(0)
	params := json.RawMessage("{}")
	if fs.NArg() > 1 {
		params = json.RawMessage(fs.Arg(1))
	}

	req := &rpc.Request{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	resp := inst.RPCServer.Handle(context.Background(), req)

	if resp.Error != nil {
		if globals.JSON {
			data, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Error.Message)
		}
		os.Exit(1)
	}

	if globals.JSON {
		data, err := json.MarshalIndent(resp.Result, "", "  ")
		if err != nil {
			cgerrors.FatalError(cgerrors.NewInternalError("cannot encode result", err.Error(), "", err), globals.JSON)
		}
		fmt.Println(string(data))
		return
	}

	printQueryResult(resp.Result)
}

// printQueryResult renders an arbitrary JSON-shaped result as a table when
// it is a list of flat objects, or as indented JSON otherwise — most tool
// results (search hits, hub nodes, coupling metrics) are the former.
func printQueryResult(result any) {
	rows, headers, ok := flattenRows(result)
	if !ok || len(rows) == 0 {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, h)
	}
	fmt.Fprintln(w)
	for _, row := range rows {
		for i, h := range headers {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, formatCell(row[h]))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	fmt.Printf("\n(%d rows)\n", len(rows))
}

// flattenRows extracts a uniform []map[string]any and its sorted header set
// out of a result, if it has that shape. Most tool results marshal to JSON
// as either a bare array of objects or a {"results": [...]} envelope.
func flattenRows(result any) ([]map[string]any, []string, bool) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, nil, false
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(data, &envelope); err != nil {
			return nil, nil, false
		}
		inner, ok := envelope["results"]
		if !ok {
			return nil, nil, false
		}
		if err := json.Unmarshal(inner, &rows); err != nil {
			return nil, nil, false
		}
	}
	if len(rows) == 0 {
		return nil, nil, false
	}

	headerSet := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			headerSet[k] = true
		}
	}
	headers := make([]string, 0, len(headerSet))
	for h := range headerSet {
		headers = append(headers, h)
	}
	sort.Strings(headers)
	return rows, headers, true
}

func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 60 {
			return val[:57] + "..."
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.3f", val)
	case nil:
		return "<null>"
	default:
		s := fmt.Sprintf("%v", val)
		if len(s) > 60 {
			return s[:57] + "..."
		}
		return s
	}
}
