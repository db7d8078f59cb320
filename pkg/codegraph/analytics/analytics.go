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

package analytics

import (
	"context"

	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// Service is the entry point the RPC layer's stored-procedure adapters
// call by name. Graph builds a fresh Graph from the store on every call: these
// procedures are read-only and the spec places no caching requirement on
// them, unlike the retrieval engine's query cache.
type Service struct {
	store store.Store
}

// New builds an analytics Service over s.
func New(s store.Store) *Service {
	return &Service{store: s}
}

// Graph loads and returns the adjacency view for projectID, for callers
// that want to run more than one procedure against the same snapshot
// without rebuilding it each time.
func (svc *Service) Graph(ctx context.Context, projectID string) (*Graph, error) {
	return BuildGraph(ctx, svc.store, projectID)
}

// SemanticSearchViaChunks runs the chunk-level ANN search stored procedure
// for projectID using this Service's store.
func (svc *Service) SemanticSearchViaChunks(ctx context.Context, projectID string, queryVec []float32, k int) ([]ChunkHit, error) {
	return SemanticSearchViaChunks(ctx, svc.store, projectID, queryVec, k)
}
