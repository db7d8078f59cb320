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

package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/parser"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

func writeFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestIndexer(t *testing.T) (*Indexer, store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "codegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	registry := parser.NewRegistry()
	embedder := embedding.NewService(embedding.NewMockProvider(16), 4, 0, nil)
	return New(s, registry, embedder, ann.NewCache(), nil), s
}

func TestWalkDiscoversSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeFile(t, dir, "vendor/lib.go", "package lib\n")
	writeFile(t, dir, "README.md", "# hi\n")

	result, err := Walk(dir, WalkOptions{ExcludeGlobs: []string{"vendor/**"}})
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "main.go", result.Files[0].FilePath)
	assert.Equal(t, model.LanguageGo, result.Files[0].Language)
}

func TestClassifyAddedModifiedUnchangedDeleted(t *testing.T) {
	candidates := []CandidateFile{
		{FilePath: "a.go", FullPath: "/tmp/a.go", Language: model.LanguageGo},
		{FilePath: "b.go", FullPath: "/tmp/b.go", Language: model.LanguageGo},
	}
	stored := []*model.FileMetadata{
		{FilePath: "b.go", ContentHash: model.ContentHashHex([]byte("old-b"))},
		{FilePath: "c.go", ContentHash: "whatever"},
	}
	content := map[string]string{"/tmp/a.go": "new-a", "/tmp/b.go": "new-b"}

	results, err := Classify(candidates, stored, func(p string) ([]byte, error) {
		return []byte(content[p]), nil
	})
	require.NoError(t, err)

	byPath := make(map[string]Classification)
	for _, c := range results {
		byPath[c.FilePath] = c
	}
	assert.Equal(t, Added, byPath["a.go"].Kind)
	assert.Equal(t, Modified, byPath["b.go"].Kind)
	assert.Equal(t, Deleted, byPath["c.go"].Kind)
}

func TestIndexerRunOnNewProject(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "def handler():\n    call_other()\n\ndef call_other():\n    return 1\n")

	ix, s := newTestIndexer(t)
	ctx := context.Background()

	project := &model.Project{ProjectID: "proj-1", RootPath: dir}
	require.NoError(t, s.UpsertProject(ctx, project))
	require.NoError(t, s.Flush(ctx))

	report, err := ix.Run(ctx, project, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesAdded)
	assert.Equal(t, 0, report.FilesModified)
	assert.Greater(t, report.Nodes, 0)
	assert.False(t, report.EdgeCountMismatch)

	nodes, err := s.ListNodesByProject(ctx, "proj-1")
	require.NoError(t, err)
	assert.NotEmpty(t, nodes)
	for _, n := range nodes {
		assert.NotEmpty(t, n.Embedding)
	}
}

func TestIndexerRunIsIdempotentOnUnchangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "def handler():\n    return 1\n")

	ix, s := newTestIndexer(t)
	ctx := context.Background()

	project := &model.Project{ProjectID: "proj-1", RootPath: dir}
	require.NoError(t, s.UpsertProject(ctx, project))
	require.NoError(t, s.Flush(ctx))

	_, err := ix.Run(ctx, project, Options{})
	require.NoError(t, err)

	second, err := ix.Run(ctx, project, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesAdded)
	assert.Equal(t, 0, second.FilesModified)
	assert.Equal(t, 1, second.FilesUnchanged)
}

func TestIndexerForceWipesBeforeReindexing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "def handler():\n    return 1\n")

	ix, s := newTestIndexer(t)
	ctx := context.Background()

	project := &model.Project{ProjectID: "proj-1", RootPath: dir}
	require.NoError(t, s.UpsertProject(ctx, project))
	require.NoError(t, s.Flush(ctx))

	_, err := ix.Run(ctx, project, Options{})
	require.NoError(t, err)

	report, err := ix.Run(ctx, project, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesAdded)
	assert.Equal(t, 0, report.FilesUnchanged)
}
