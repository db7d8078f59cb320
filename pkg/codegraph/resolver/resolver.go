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

// Package resolver implements cross-file symbol linking: it turns the
// unresolved references emitted by the parser front-end into resolved
// Edge records, using a two-pass qualified-name symbol table with a
// basename and fuzzy-match fallback.
package resolver

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// maxParallelWorkers caps the fan-out used when resolving large reference
// sets; above this many goroutines the synchronization overhead outweighs
// the gain for a CPU-bound string-matching workload.
const maxParallelWorkers = 8

// parallelThreshold is the unresolved-reference count above which
// resolution switches from sequential to worker-pool processing.
const parallelThreshold = 1000

// SymbolTable is the in-memory index built in the resolver's first pass:
// qualified names to node IDs, basenames to candidate node IDs (for
// same-basename disambiguation across packages), and each file's import
// alias table built from the parser's EdgeImports unresolved refs.
type SymbolTable struct {
	byQualifiedName map[string]model.NodeID
	byBasename      map[string][]model.NodeID
	packagePaths    map[string]bool
	fileImports     map[string]map[string]string // filePath -> alias -> import path
	fuzzy           *fuzzyIndex

	cacheMu         sync.Mutex
	importPathCache map[string]string
}

// NewSymbolTable returns an empty SymbolTable ready for BuildIndex.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byQualifiedName: make(map[string]model.NodeID),
		byBasename:      make(map[string][]model.NodeID),
		packagePaths:    make(map[string]bool),
		fileImports:     make(map[string]map[string]string),
		fuzzy:           newFuzzyIndex(),
		importPathCache: make(map[string]string),
	}
}

// BuildIndex populates the symbol table from every node and unresolved
// reference observed across a project's parsed files. It is the
// resolver's first pass and must run to completion before ResolveAll.
func (st *SymbolTable) BuildIndex(nodes []*model.CodeNode, refs []model.UnresolvedRef) {
	for _, n := range nodes {
		pkgPath := packagePathFor(n)
		qn := qualifiedNameFor(n, pkgPath)

		st.byQualifiedName[qn] = n.ID
		st.byBasename[n.Name] = append(st.byBasename[n.Name], n.ID)
		st.packagePaths[pkgPath] = true

		st.fuzzy.add(n.Name, n.ID)
	}

	for _, ref := range refs {
		if ref.EdgeType != model.EdgeImports {
			continue
		}
		if _, ok := st.fileImports[ref.FilePath]; !ok {
			st.fileImports[ref.FilePath] = make(map[string]string)
		}
		alias := importAlias(ref.ToName)
		st.fileImports[ref.FilePath][alias] = ref.ToName
	}
}

// packagePathFor derives the directory-based package path used to
// namespace qualified names for compiled languages (Go, Java, C#); for
// file-scoped languages (Python, JavaScript, Ruby) the file path itself
// is the namespace.
func packagePathFor(n *model.CodeNode) string {
	switch n.Language {
	case model.LanguageGo, model.LanguageJava, model.LanguageCSharp, model.LanguageKotlin:
		return filepath.ToSlash(filepath.Dir(n.FilePath))
	default:
		return n.FilePath
	}
}

func qualifiedNameFor(n *model.CodeNode, pkgPath string) string {
	if n.QualifiedName != "" && n.QualifiedName != n.Name {
		return pkgPath + "#" + n.QualifiedName
	}
	return pkgPath + "#" + n.Name
}

// importAlias returns the alias a file would use to reference an import
// path absent an explicit rename: the last path component.
func importAlias(importPath string) string {
	importPath = strings.Trim(importPath, `"`)
	if idx := strings.LastIndex(importPath, "/"); idx >= 0 {
		return importPath[idx+1:]
	}
	return importPath
}

// ResolveAll resolves every unresolved call/uses/extends/implements
// reference into a deduplicated set of Edge records. Resolution is
// deterministic and idempotent: re-running it over the same inputs
// produces the same edge set, since (from, to, edge_type) triples collapse
// to the same content-derived ID.
func (st *SymbolTable) ResolveAll(ctx context.Context, projectID string, refs []model.UnresolvedRef) ([]*model.Edge, int) {
	candidates := make([]model.UnresolvedRef, 0, len(refs))
	for _, r := range refs {
		if r.EdgeType != model.EdgeImports {
			candidates = append(candidates, r)
		}
	}

	var resolved []*resolution
	if len(candidates) < parallelThreshold {
		resolved = st.resolveSequential(candidates)
	} else {
		resolved = st.resolveParallel(ctx, candidates)
	}

	seen := make(map[string]bool)
	edges := make([]*model.Edge, 0, len(resolved))
	for _, r := range resolved {
		key := string(r.from) + "->" + string(r.to) + "|" + string(r.edgeType)
		if seen[key] {
			continue
		}
		seen[key] = true
		edges = append(edges, &model.Edge{
			ID:        model.NewEdgeID(r.from, r.to, r.edgeType),
			ProjectID: projectID,
			From:      r.from,
			To:        r.to,
			EdgeType:  r.edgeType,
			Metadata: map[string]string{
				"confidence": strconv.FormatFloat(r.confidence, 'f', 3, 64),
				"method":     r.method,
			},
		})
	}

	unresolvedCount := len(candidates) - len(resolved)
	return edges, unresolvedCount
}

type resolution struct {
	from       model.NodeID
	to         model.NodeID
	edgeType   model.EdgeType
	confidence float64
	method     string
}

func (st *SymbolTable) resolveSequential(refs []model.UnresolvedRef) []*resolution {
	out := make([]*resolution, 0, len(refs))
	for _, ref := range refs {
		if r := st.resolveOne(ref); r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (st *SymbolTable) resolveParallel(ctx context.Context, refs []model.UnresolvedRef) []*resolution {
	results := make([]*resolution, len(refs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelWorkers)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			results[i] = st.resolveOne(ref)
			return nil
		})
	}
	_ = g.Wait() // resolveOne never errors; Wait only synchronizes completion.

	out := make([]*resolution, 0, len(refs))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// resolveOne attempts, in order: exact qualified-name match, basename
// match, and a fuzzy character-level match over symbol names. The basename
// match takes the first node indexed under that name in any package; the
// file's imports are not consulted for it. The symbol table is read-only
// once BuildIndex returns, so concurrent resolveOne calls need no lock.
func (st *SymbolTable) resolveOne(ref model.UnresolvedRef) *resolution {
	name := ref.ToName
	pkgAlias, simple, qualified := splitQualified(name)

	if qualified {
		imports := st.fileImports[ref.FilePath]
		if importPath, ok := imports[pkgAlias]; ok {
			if pkgPath, ok := st.resolvePackagePath(importPath); ok {
				if nodeID, ok := st.byQualifiedName[pkgPath+"#"+simple]; ok {
					return &resolution{from: ref.FromID, to: nodeID, edgeType: ref.EdgeType, confidence: 1.0, method: "exact"}
				}
			}
		}
	} else if nodeID, ok := st.exactMatchAnyPackage(simple); ok {
		return &resolution{from: ref.FromID, to: nodeID, edgeType: ref.EdgeType, confidence: 1.0, method: "exact"}
	}

	if ids, ok := st.byBasename[simple]; ok && len(ids) > 0 {
		return &resolution{from: ref.FromID, to: ids[0], edgeType: ref.EdgeType, confidence: 0.7, method: "basename"}
	}

	if nodeID, score, ok := st.fuzzy.bestMatch(simple); ok {
		return &resolution{from: ref.FromID, to: nodeID, edgeType: ref.EdgeType, confidence: score, method: "fuzzy"}
	}

	return nil
}

// exactMatchAnyPackage tries every namespace for a bare symbol name; used
// when a reference carries no package qualifier (same-package or
// dot-import style calls).
func (st *SymbolTable) exactMatchAnyPackage(simple string) (model.NodeID, bool) {
	for qn, id := range st.byQualifiedName {
		if strings.HasSuffix(qn, "#"+simple) {
			return id, true
		}
	}
	return "", false
}

// resolvePackagePath maps a Go-style import path (or any module path) to
// one of the local package paths observed during BuildIndex: first an
// exact match, then a suffix match ("github.com/org/proj/internal/foo"
// resolving to "internal/foo"), caching the result either way.
func (st *SymbolTable) resolvePackagePath(importPath string) (string, bool) {
	st.cacheMu.Lock()
	defer st.cacheMu.Unlock()

	if cached, ok := st.importPathCache[importPath]; ok {
		return cached, cached != ""
	}

	if st.packagePaths[importPath] {
		st.importPathCache[importPath] = importPath
		return importPath, true
	}
	for pkgPath := range st.packagePaths {
		if strings.HasSuffix(importPath, pkgPath) {
			st.importPathCache[importPath] = pkgPath
			return pkgPath, true
		}
	}
	st.importPathCache[importPath] = ""
	return "", false
}

// splitQualified splits a callee reference like "pkg.Foo" into its alias
// and symbol parts. Multi-level selectors ("s.handler.Run") collapse to
// their final component, mirroring method-call resolution.
func splitQualified(name string) (alias, simple string, qualified bool) {
	if !strings.Contains(name, ".") {
		return "", name, false
	}
	parts := strings.Split(name, ".")
	return parts[0], parts[len(parts)-1], true
}
