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
	"context"
	"encoding/json"
	"log/slog"
)

// Tool is one registered JSON-RPC method: it decodes its own params and
// returns a JSON-serializable result.
type Tool interface {
	Name() string
	Call(ctx context.Context, params json.RawMessage) (any, error)
}

// Server dispatches JSON-RPC requests to registered tools. It carries no
// transport concerns of its own — stdio.go and http.go both wrap one.
type Server struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewServer builds an empty Server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool, replacing any prior registration under the same
// name.
func (s *Server) Register(t Tool) {
	s.tools[t.Name()] = t
}

// Methods lists every registered method name, for an introspection or
// "tools/list"-style call.
func (s *Server) Methods() []string {
	out := make([]string, 0, len(s.tools))
	for name := range s.tools {
		out = append(out, name)
	}
	return out
}

// Handle dispatches one request to its tool and returns a framed response.
// It never panics: a tool's own error, or an unknown method, both become a
// JSON-RPC error response rather than propagating.
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request")
	}

	tool, ok := s.tools[req.Method]
	if !ok {
		return errorResponse(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
	}

	result, err := tool.Call(ctx, req.Params)
	if err != nil {
		s.logger.Warn("rpc.tool.error", "method", req.Method, "err", err)
		return errorResponse(req.ID, CodeInternalError, err.Error())
	}
	return resultResponse(req.ID, result)
}

// HandleBytes decodes a single request from raw JSON and returns its
// framed, marshaled response. A decode failure yields a parse-error
// response keyed on a nil ID, per JSON-RPC 2.0's own rule that an
// unparseable request has no ID to echo.
func (s *Server) HandleBytes(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		resp := errorResponse(nil, CodeParseError, "parse error: "+err.Error())
		out, _ := json.Marshal(resp)
		return out
	}
	resp := s.Handle(ctx, &req)
	out, _ := json.Marshal(resp)
	return out
}
