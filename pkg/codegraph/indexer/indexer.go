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

// Package indexer drives the full pipeline (C2 through C6) over a project:
// change detection against stored file metadata, parallel parsing, edge
// resolution, embedding, and ANN shard maintenance, all behind an explicit
// barrier chain — parse, persist-nodes, resolve-edges, persist-edges, embed,
// persist-vectors, index-build — so no stage ever observes partial state
// from the one before it.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/codegraph/pkg/codegraph/ann"
	"github.com/kraklabs/codegraph/pkg/codegraph/embedding"
	"github.com/kraklabs/codegraph/pkg/codegraph/model"
	"github.com/kraklabs/codegraph/pkg/codegraph/parser"
	"github.com/kraklabs/codegraph/pkg/codegraph/resolver"
	"github.com/kraklabs/codegraph/pkg/codegraph/store"
)

// Indexer owns the components a run needs: the persistence layer, the
// parser dispatch registry, the embedding service, and the ANN shard
// cache. One Indexer is built once per process (per bootstrap) and its
// Run method is called per project, never the other way around.
type Indexer struct {
	store     store.Store
	registry  *parser.Registry
	embedder  *embedding.Service
	annCache  *ann.Cache
	logger    *slog.Logger
}

// New builds an Indexer over already-constructed, process-wide singletons.
func New(s store.Store, registry *parser.Registry, embedder *embedding.Service, annCache *ann.Cache, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: s, registry: registry, embedder: embedder, annCache: annCache, logger: logger}
}

// Run drives the full indexing algorithm over project per spec §4.7.
func (ix *Indexer) Run(ctx context.Context, project *model.Project, opts Options) (*IndexReport, error) {
	start := time.Now()
	report := &IndexReport{
		ProjectID:    project.ProjectID,
		FilesSkipped: make(map[string]int),
		StageTimings: make(map[string]time.Duration),
	}

	if opts.Force {
		if err := ix.store.DeleteProject(ctx, project.ProjectID); err != nil {
			return nil, fmt.Errorf("indexer: force delete project: %w", err)
		}
		if err := ix.store.Flush(ctx); err != nil {
			return nil, fmt.Errorf("indexer: flush force delete: %w", err)
		}
	}

	stageStart := time.Now()
	walkResult, err := Walk(project.RootPath, WalkOptions{
		IncludeGlobs:     opts.IncludeGlobs,
		ExcludeGlobs:     opts.ExcludeGlobs,
		MaxFileSizeBytes: opts.MaxFileSizeBytes,
	})
	if err != nil {
		return nil, err
	}
	for reason, count := range walkResult.SkipReasons {
		report.FilesSkipped[reason] += count
	}
	report.StageTimings["walk"] = time.Since(stageStart)

	stored, err := ix.store.ListFileMetadata(ctx, project.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("indexer: list file metadata: %w", err)
	}

	classifications, err := Classify(walkResult.Files, stored, readFileBytes)
	if err != nil {
		return nil, fmt.Errorf("indexer: classify: %w", err)
	}

	var deleted, unchanged, changed []Classification
	for _, c := range classifications {
		switch c.Kind {
		case Deleted:
			deleted = append(deleted, c)
		case Unchanged:
			unchanged = append(unchanged, c)
		default:
			changed = append(changed, c)
		}
	}
	report.FilesDeleted = len(deleted)
	report.FilesUnchanged = len(unchanged)
	for _, c := range changed {
		if c.Kind == Added {
			report.FilesAdded++
		} else {
			report.FilesModified++
		}
	}

	// Step 3: deletions, flushed before anything else touches the store.
	stageStart = time.Now()
	for _, d := range deleted {
		if err := ix.store.DeleteFile(ctx, project.ProjectID, d.FilePath); err != nil {
			return nil, fmt.Errorf("indexer: delete file %s: %w", d.FilePath, err)
		}
	}
	if len(deleted) > 0 {
		if err := ix.store.Flush(ctx); err != nil {
			return nil, fmt.Errorf("indexer: flush deletions: %w", err)
		}
	}
	report.StageTimings["delete"] = time.Since(stageStart)

	if len(changed) == 0 {
		report.WallTime = time.Since(start)
		return report, nil
	}

	// Step 4: parse the changed set, CPU-parallel.
	stageStart = time.Now()
	parseConcurrency := opts.ParseConcurrency
	if parseConcurrency <= 0 {
		parseConcurrency = runtime.NumCPU()
	}
	parsed, parseErrors := ix.parseChangedSet(ctx, project.ProjectID, changed, parseConcurrency)
	report.ParseErrors = parseErrors
	report.StageTimings["parse"] = time.Since(stageStart)

	var allNodes []*model.CodeNode
	var allRefs []model.UnresolvedRef
	for _, pf := range parsed {
		allNodes = append(allNodes, pf.Nodes...)
		allRefs = append(allRefs, pf.UnresolvedRefs...)
	}

	// Step 5: persist nodes, flush.
	stageStart = time.Now()
	if len(allNodes) > 0 {
		if err := ix.store.UpsertNodes(ctx, allNodes); err != nil {
			return nil, fmt.Errorf("indexer: upsert nodes: %w", err)
		}
	}
	for _, pf := range parsed {
		for _, e := range pf.IntraFileEdges {
			if err := ix.store.UpsertEdges(ctx, []*model.Edge{e}); err != nil {
				return nil, fmt.Errorf("indexer: upsert intra-file edges: %w", err)
			}
		}
	}
	if err := ix.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("indexer: flush nodes: %w", err)
	}
	report.StageTimings["persist_nodes"] = time.Since(stageStart)

	// Step 6: resolve edges using the project-wide symbol table, persist,
	// flush, verify count.
	stageStart = time.Now()
	projectNodes, err := ix.store.ListNodesByProject(ctx, project.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("indexer: list nodes for resolution: %w", err)
	}
	symbols := resolver.NewSymbolTable()
	symbols.BuildIndex(projectNodes, allRefs)
	edges, unresolved := symbols.ResolveAll(ctx, project.ProjectID, allRefs)
	report.UnresolvedRefs = unresolved

	if len(edges) > 0 {
		if err := ix.store.UpsertEdges(ctx, edges); err != nil {
			return nil, fmt.Errorf("indexer: upsert resolved edges: %w", err)
		}
	}
	if err := ix.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("indexer: flush edges: %w", err)
	}

	persistedEdges, err := ix.store.ListEdgesByProject(ctx, project.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("indexer: verify edge count: %w", err)
	}
	report.Edges = len(persistedEdges)
	submittedEdgeCount := 0
	for _, pf := range parsed {
		submittedEdgeCount += len(pf.IntraFileEdges)
	}
	submittedEdgeCount += len(edges)
	if submittedEdgeCount != report.Edges {
		report.EdgeCountMismatch = true
		ix.logger.Warn("indexer.edge_count.mismatch", "submitted", submittedEdgeCount, "stored", report.Edges)
	}
	report.StageTimings["resolve_edges"] = time.Since(stageStart)

	// Step 7: embed nodes requiring embedding, chunk if needed, flush.
	stageStart = time.Now()
	embedFailedFiles := make(map[string]bool)
	if ix.embedder != nil && len(allNodes) > 0 {
		results, err := ix.embedder.EmbedNodes(ctx, allNodes)
		if err != nil {
			return nil, fmt.Errorf("indexer: embed nodes: %w", err)
		}
		var embeddedNodes []*model.CodeNode
		var allChunks []*model.Chunk
		byID := make(map[model.NodeID]*model.CodeNode, len(allNodes))
		for _, n := range allNodes {
			byID[n.ID] = n
		}
		for _, r := range results {
			if r.Embedding == nil {
				report.EmbeddingErrors++
				if n, ok := byID[r.NodeID]; ok {
					embedFailedFiles[n.FilePath] = true
				}
				continue
			}
			if n, ok := byID[r.NodeID]; ok {
				if project.EmbeddingDimension != 0 {
					if err := store.ValidateNodeDimension(project, &model.CodeNode{Embedding: r.Embedding}); err != nil {
						return nil, err
					}
				} else {
					project.EmbeddingDimension = len(r.Embedding)
				}
				n.Embedding = r.Embedding
				embeddedNodes = append(embeddedNodes, n)
			}
			allChunks = append(allChunks, r.Chunks...)
		}
		if len(embeddedNodes) > 0 {
			if err := ix.store.UpsertNodes(ctx, embeddedNodes); err != nil {
				return nil, fmt.Errorf("indexer: upsert embedded nodes: %w", err)
			}
		}
		if len(allChunks) > 0 {
			if err := ix.store.UpsertChunks(ctx, allChunks); err != nil {
				return nil, fmt.Errorf("indexer: upsert chunks: %w", err)
			}
			report.Chunks = len(allChunks)
		}
		if err := ix.store.Flush(ctx); err != nil {
			return nil, fmt.Errorf("indexer: flush embeddings: %w", err)
		}
	}
	report.StageTimings["embed"] = time.Since(stageStart)

	if err := ix.store.UpsertProject(ctx, project); err != nil {
		return nil, fmt.Errorf("indexer: upsert project: %w", err)
	}

	// Step 8: rebuild affected ANN shards.
	stageStart = time.Now()
	if ix.annCache != nil {
		if err := ix.rebuildShards(ctx, project.ProjectID); err != nil {
			return nil, fmt.Errorf("indexer: rebuild ann shards: %w", err)
		}
	}
	report.StageTimings["index_build"] = time.Since(stageStart)

	// Step 9: update FileMetadata for every processed file. A file with a
	// node whose embedding failed keeps its previous metadata, so the next
	// incremental run classifies it as changed again and retries it.
	stageStart = time.Now()
	nodeCountByFile := make(map[string]int)
	edgeCountByFile := make(map[string]int)
	for _, n := range allNodes {
		nodeCountByFile[n.FilePath]++
	}
	for _, e := range edges {
		if n, ok := byFileFromNode(allNodes, e.From); ok {
			edgeCountByFile[n]++
		}
	}
	for _, c := range changed {
		if embedFailedFiles[c.FilePath] {
			continue
		}
		fm := &model.FileMetadata{
			ProjectID:   project.ProjectID,
			FilePath:    c.FilePath,
			ContentHash: c.ContentHash,
			Size:        c.Size,
			Language:    c.Language,
			ModTime:     time.Now(),
			NodeCount:   nodeCountByFile[c.FilePath],
			EdgeCount:   edgeCountByFile[c.FilePath],
		}
		if err := ix.store.UpsertFileMetadata(ctx, fm); err != nil {
			return nil, fmt.Errorf("indexer: upsert file metadata: %w", err)
		}
	}
	if err := ix.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("indexer: flush file metadata: %w", err)
	}
	report.StageTimings["file_metadata"] = time.Since(stageStart)

	report.Nodes = len(allNodes)
	report.WallTime = time.Since(start)
	return report, nil
}

func byFileFromNode(nodes []*model.CodeNode, id model.NodeID) (string, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n.FilePath, true
		}
	}
	return "", false
}

func readFileBytes(fullPath string) ([]byte, error) {
	return os.ReadFile(fullPath)
}

// parseChangedSet parses every changed file concurrently, bounded by
// concurrency, and returns every successfully parsed file plus a count of
// parse failures (which are skipped, not fatal, per the parser front-end's
// failure model).
func (ix *Indexer) parseChangedSet(ctx context.Context, projectID string, changed []Classification, concurrency int) ([]*parser.ParsedFile, int) {
	results := make([]*parser.ParsedFile, len(changed))
	var errCount int32
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, c := range changed {
		i, c := i, c
		g.Go(func() error {
			pf, err := ix.registry.ParseFile(projectID, c.FilePath, c.Content, c.Language)
			if err != nil {
				mu.Lock()
				errCount++
				mu.Unlock()
				ix.logger.Warn("indexer.parse.error", "path", c.FilePath, "error", err)
				return nil
			}
			results[i] = pf
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*parser.ParsedFile, 0, len(results))
	for _, pf := range results {
		if pf != nil {
			out = append(out, pf)
		}
	}
	return out, int(errCount)
}

// rebuildShards reloads every node vector for the project, reshards by
// file-path prefix, and invalidates+rewarms the ANN cache so the next
// retrieval query sees the updated embeddings.
func (ix *Indexer) rebuildShards(ctx context.Context, projectID string) error {
	nodes, err := ix.store.ListNodesByProject(ctx, projectID)
	if err != nil {
		return err
	}
	vectors := make([]ann.Vector, 0, len(nodes))
	for _, n := range nodes {
		if len(n.Embedding) == 0 {
			continue
		}
		vectors = append(vectors, ann.Vector{
			NodeID:   n.ID,
			FilePath: n.FilePath,
			Language: n.Language,
			NodeType: n.NodeType,
			Values:   n.Embedding,
		})
	}
	ix.annCache.Invalidate(projectID)
	shards := ann.ShardVectors(projectID, vectors)
	for key, shardVectors := range shards {
		ix.annCache.GetOrBuild(key, shardVectors)
	}
	return nil
}
