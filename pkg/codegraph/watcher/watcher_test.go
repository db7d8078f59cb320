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

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/indexer"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/parser"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

func newTestWatcher(t *testing.T, root string, onReport func(*indexer.IndexReport)) (*Watcher, store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "codegraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	project := &model.Project{ProjectID: "p1", RootPath: root, EmbeddingDimension: 16}
	require.NoError(t, s.UpsertProject(ctx, project))

	registry := parser.NewRegistry()
	embedder := embedding.NewService(embedding.NewMockProvider(16), 4, 0, nil)
	idx := indexer.New(s, registry, embedder, ann.NewCache(), nil)

	w := New(project, idx, s, indexer.Options{}, nil,
		WithDebounce(40*time.Millisecond),
		WithOnReport(onReport),
	)
	return w, s
}

func TestWatcherTriggersReindexOnSourceFileChange(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\nfunc main() {}\n"), 0o644))

	reports := make(chan *indexer.IndexReport, 4)
	w, _ := newTestWatcher(t, root, func(r *indexer.IndexReport) { reports <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// Give the recursive Add() calls a moment to land before generating
	// the event we actually assert on.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.go"), []byte("package main\nfunc extra() {}\n"), 0o644))

	select {
	case r := <-reports:
		assert.GreaterOrEqual(t, r.FilesAdded, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reindex after file creation")
	}
}

func TestWatcherIgnoresUnrecognizedExtensions(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\nfunc main() {}\n"), 0o644))

	reports := make(chan *indexer.IndexReport, 4)
	w, _ := newTestWatcher(t, root, func(r *indexer.IndexReport) { reports <- r })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hello"), 0o644))

	select {
	case <-reports:
		t.Fatal("reindex triggered by a non-source file change")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	w, _ := newTestWatcher(t, root, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx))
	w.Stop()
}
