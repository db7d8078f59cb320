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

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

func openTestStore(t *testing.T) *EmbeddedStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codegraph.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertAndGetProject(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := &model.Project{ProjectID: "proj-1", RootPath: "/repo", CreatedAt: time.Now(), EmbeddingDimension: 768}
	require.NoError(t, s.UpsertProject(ctx, p))
	require.NoError(t, s.Flush(ctx))

	got, err := s.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, p.RootPath, got.RootPath)
	assert.Equal(t, 768, got.EmbeddingDimension)
}

func TestGetProjectNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertNodesAndListByFile(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n1 := &model.CodeNode{ID: model.NodeID("node:1"), ProjectID: "proj-1", FilePath: "a/b.go", Name: "Foo"}
	n2 := &model.CodeNode{ID: model.NodeID("node:2"), ProjectID: "proj-1", FilePath: "a/c.go", Name: "Bar"}
	require.NoError(t, s.UpsertNodes(ctx, []*model.CodeNode{n1, n2}))
	require.NoError(t, s.Flush(ctx))

	nodes, err := s.ListNodesByFile(ctx, "proj-1", "a/b.go")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Foo", nodes[0].Name)

	all, err := s.ListNodesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEdgesFromAndTo(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	from := model.NodeID("node:from")
	to := model.NodeID("node:to")
	e := &model.Edge{ID: "edge:1", ProjectID: "proj-1", From: from, To: to, EdgeType: model.EdgeCalls}
	require.NoError(t, s.UpsertEdges(ctx, []*model.Edge{e}))
	require.NoError(t, s.Flush(ctx))

	fromEdges, err := s.EdgesFrom(ctx, from)
	require.NoError(t, err)
	require.Len(t, fromEdges, 1)

	toEdges, err := s.EdgesTo(ctx, to)
	require.NoError(t, err)
	require.Len(t, toEdges, 1)
}

func TestDeleteFileCascades(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	n1 := &model.CodeNode{ID: model.NodeID("node:1"), ProjectID: "proj-1", FilePath: "a/b.go", Name: "Foo"}
	n2 := &model.CodeNode{ID: model.NodeID("node:2"), ProjectID: "proj-1", FilePath: "a/c.go", Name: "Bar"}
	require.NoError(t, s.UpsertNodes(ctx, []*model.CodeNode{n1, n2}))

	c1 := &model.Chunk{ID: "chunk:1", NodeID: n1.ID, ChunkIndex: 0, Content: "x"}
	require.NoError(t, s.UpsertChunks(ctx, []*model.Chunk{c1}))

	e := &model.Edge{ID: "edge:1", ProjectID: "proj-1", From: n1.ID, To: n2.ID, EdgeType: model.EdgeCalls}
	require.NoError(t, s.UpsertEdges(ctx, []*model.Edge{e}))

	fm := &model.FileMetadata{ProjectID: "proj-1", FilePath: "a/b.go", ContentHash: "abc"}
	require.NoError(t, s.UpsertFileMetadata(ctx, fm))
	require.NoError(t, s.Flush(ctx))

	require.NoError(t, s.DeleteFile(ctx, "proj-1", "a/b.go"))
	require.NoError(t, s.Flush(ctx))

	_, err := s.GetNode(ctx, n1.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	chunks, err := s.ListChunksByNode(ctx, n1.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	edges, err := s.ListEdgesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, edges)

	remaining, err := s.ListNodesByProject(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, n2.ID, remaining[0].ID)

	_, err = s.GetFileMetadata(ctx, "proj-1", "a/b.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProjectWipesEverythingButProjectRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p := &model.Project{ProjectID: "proj-1", RootPath: "/repo"}
	require.NoError(t, s.UpsertProject(ctx, p))

	n1 := &model.CodeNode{ID: model.NodeID("node:1"), ProjectID: "proj-1", FilePath: "a/b.go"}
	require.NoError(t, s.UpsertNodes(ctx, []*model.CodeNode{n1}))
	fm := &model.FileMetadata{ProjectID: "proj-1", FilePath: "a/b.go"}
	require.NoError(t, s.UpsertFileMetadata(ctx, fm))
	require.NoError(t, s.Flush(ctx))

	require.NoError(t, s.DeleteProject(ctx, "proj-1"))
	require.NoError(t, s.Flush(ctx))

	got, err := s.GetProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "proj-1", got.ProjectID)

	nodes, err := s.ListNodesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	files, err := s.ListFileMetadata(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestValidateNodeDimensionMismatch(t *testing.T) {
	p := &model.Project{EmbeddingDimension: 768}
	n := &model.CodeNode{Embedding: make([]float32, 512)}
	err := ValidateNodeDimension(p, n)
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	assert.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 768, mismatch.Project)
	assert.Equal(t, 512, mismatch.Observed)
}
