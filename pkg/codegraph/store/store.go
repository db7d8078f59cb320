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

// Package store implements the persistence layer: durable, schema-enforced
// tables for projects, file metadata, nodes, edges, and chunks, with a
// batched writer that stages writes in memory and whose Flush is the
// barrier the incremental
// indexer's stage chain depends on. The embedded implementation is backed by
// bbolt, an embedded key/value store, in the same spirit as the teacher's
// CozoDB-backed storage.Backend: a single process-owned file, ACID
// transactions, no external server.
package store

import (
	"context"
	"fmt"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// Store is the narrow persistence contract every other component depends
// on: typed upserts per table, parameterized reads, and an explicit Flush
// that the indexer's barrier chain awaits before the next stage may read.
// Implementations must honor the data model's referential-integrity and
// cascade-delete invariants (spec §3).
type Store interface {
	// UpsertProject creates or replaces a project row. Per §3's lifecycle,
	// callers must not use this to silently replace an existing project's
	// identity; it is for the initial `init` write and for updating
	// LastIndexedAt/EmbeddingDimension after a run.
	UpsertProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, projectID string) (*model.Project, error)

	// UpsertFileMetadata stages one FileMetadata row for the next Flush.
	UpsertFileMetadata(ctx context.Context, fm *model.FileMetadata) error
	GetFileMetadata(ctx context.Context, projectID, filePath string) (*model.FileMetadata, error)
	ListFileMetadata(ctx context.Context, projectID string) ([]*model.FileMetadata, error)

	// UpsertNodes stages a batch of nodes for the next Flush.
	UpsertNodes(ctx context.Context, nodes []*model.CodeNode) error
	GetNode(ctx context.Context, id model.NodeID) (*model.CodeNode, error)
	GetNodes(ctx context.Context, ids []model.NodeID) ([]*model.CodeNode, error)
	ListNodesByProject(ctx context.Context, projectID string) ([]*model.CodeNode, error)
	ListNodesByFile(ctx context.Context, projectID, filePath string) ([]*model.CodeNode, error)

	// UpsertEdges stages a batch of resolved edges for the next Flush.
	UpsertEdges(ctx context.Context, edges []*model.Edge) error
	ListEdgesByProject(ctx context.Context, projectID string) ([]*model.Edge, error)
	EdgesFrom(ctx context.Context, nodeID model.NodeID) ([]*model.Edge, error)
	EdgesTo(ctx context.Context, nodeID model.NodeID) ([]*model.Edge, error)

	// UpsertChunks stages a batch of chunks for the next Flush.
	UpsertChunks(ctx context.Context, chunks []*model.Chunk) error
	ListChunksByNode(ctx context.Context, nodeID model.NodeID) ([]*model.Chunk, error)
	ListChunksByProject(ctx context.Context, projectID string) ([]*model.Chunk, error)

	// DeleteFile cascades: removes the file's nodes, their chunks, edges
	// incident to those nodes, and the FileMetadata row itself, per the
	// data model's orphan-cleanup invariant.
	DeleteFile(ctx context.Context, projectID, filePath string) error

	// DeleteProject wipes every node/edge/chunk/file-metadata row for
	// projectID, preserving the project row itself: the `--force`
	// semantics of spec §4.7.
	DeleteProject(ctx context.Context, projectID string) error

	// Flush commits every staged write, confirming at-least-once
	// durability before the caller proceeds to the next pipeline stage.
	Flush(ctx context.Context) error

	// Close releases the underlying file handle.
	Close() error
}

// ErrDimensionMismatch is returned by callers that compare a node's vector
// length against Project.EmbeddingDimension and find it unequal, per the
// data model's fatal re-index-trigger invariant.
type ErrDimensionMismatch struct {
	Project  int
	Observed int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("store: embedding dimension mismatch: project declares %d, observed %d; force-reindex required", e.Project, e.Observed)
}

// ErrNotFound is returned by single-record reads that find nothing.
var ErrNotFound = fmt.Errorf("store: record not found")
