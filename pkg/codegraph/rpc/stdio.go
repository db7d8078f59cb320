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

package rpc

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// StdioServer serves one request per input line: newline-delimited JSON-RPC
// in, newline-delimited JSON-RPC out.
type StdioServer struct {
	server *Server
	in     io.Reader
	out    io.Writer
}

// NewStdioServer wraps server over in/out.
func NewStdioServer(server *Server, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{server: server, in: in, out: out}
}

// Serve reads requests until in is exhausted, ctx is canceled, or a read
// error occurs.
func (t *StdioServer) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		respBytes := t.server.HandleBytes(ctx, line)
		if _, err := fmt.Fprintln(t.out, string(respBytes)); err != nil {
			return err
		}
	}
	return scanner.Err()
}
