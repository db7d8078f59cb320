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

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

func mustNode(filePath, name string, line int) *model.CodeNode {
	loc := model.Location{FilePath: filePath, StartLine: line, StartCol: 1, EndLine: line + 2, EndCol: 1}
	id := model.NewNodeID(filePath, model.NodeFunction, name, loc)
	return &model.CodeNode{
		ID:            id,
		Name:          name,
		QualifiedName: name,
		NodeType:      model.NodeFunction,
		Language:      model.LanguageGo,
		FilePath:      filePath,
	}
}

func TestResolveAllExactSamePackage(t *testing.T) {
	caller := mustNode("internal/api/server.go", "Start", 1)
	callee := mustNode("internal/api/server.go", "Stop", 10)

	st := NewSymbolTable()
	st.BuildIndex([]*model.CodeNode{caller, callee}, nil)

	refs := []model.UnresolvedRef{
		{FromID: caller.ID, ToName: "Stop", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
	}
	edges, unresolved := st.ResolveAll(context.Background(), "proj1", refs)
	require.Len(t, edges, 1)
	require.Equal(t, 0, unresolved)
	require.Equal(t, callee.ID, edges[0].To)
	require.Equal(t, "1.000", edges[0].Metadata["confidence"])
}

func TestResolveAllQualifiedAcrossPackages(t *testing.T) {
	callee := mustNode("internal/store/store.go", "Save", 5)
	caller := mustNode("internal/api/server.go", "Handle", 1)

	st := NewSymbolTable()
	st.BuildIndex([]*model.CodeNode{caller, callee}, []model.UnresolvedRef{
		{FilePath: caller.FilePath, ToName: "github.com/kraklabs/codegraph/internal/store", EdgeType: model.EdgeImports},
	})

	refs := []model.UnresolvedRef{
		{FromID: caller.ID, ToName: "store.Save", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
	}
	edges, unresolved := st.ResolveAll(context.Background(), "proj1", refs)
	require.Len(t, edges, 1)
	require.Equal(t, 0, unresolved)
	require.Equal(t, callee.ID, edges[0].To)
}

func TestResolveAllBasenameFallback(t *testing.T) {
	caller := mustNode("internal/api/server.go", "Handle", 1)
	callee := mustNode("internal/other/thing.go", "Process", 5)

	st := NewSymbolTable()
	st.BuildIndex([]*model.CodeNode{caller, callee}, nil)

	refs := []model.UnresolvedRef{
		{FromID: caller.ID, ToName: "unknownpkg.Process", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
	}
	edges, unresolved := st.ResolveAll(context.Background(), "proj1", refs)
	require.Len(t, edges, 1)
	require.Equal(t, 0, unresolved)
	require.Equal(t, "basename", edges[0].Metadata["method"])
}

func TestResolveAllDropsUnresolvable(t *testing.T) {
	caller := mustNode("internal/api/server.go", "Handle", 1)

	st := NewSymbolTable()
	st.BuildIndex([]*model.CodeNode{caller}, nil)

	refs := []model.UnresolvedRef{
		{FromID: caller.ID, ToName: "totally.Unrelated", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
	}
	edges, unresolved := st.ResolveAll(context.Background(), "proj1", refs)
	require.Empty(t, edges)
	require.Equal(t, 1, unresolved)
}

func TestResolveAllDeduplicatesTriples(t *testing.T) {
	caller := mustNode("a.go", "A", 1)
	callee := mustNode("a.go", "B", 5)

	st := NewSymbolTable()
	st.BuildIndex([]*model.CodeNode{caller, callee}, nil)

	refs := []model.UnresolvedRef{
		{FromID: caller.ID, ToName: "B", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
		{FromID: caller.ID, ToName: "B", EdgeType: model.EdgeCalls, FilePath: caller.FilePath},
	}
	edges, _ := st.ResolveAll(context.Background(), "proj1", refs)
	require.Len(t, edges, 1, "duplicate (from, to, edge_type) triples must collapse to one edge")
}

func TestFuzzyIndexFindsNearMiss(t *testing.T) {
	fi := newFuzzyIndex()
	fi.add("ProcessPayment", model.NodeID("n1"))
	fi.add("HandleRequest", model.NodeID("n2"))

	id, score, ok := fi.bestMatch("ProcesPayment") // missing an 's'
	require.True(t, ok)
	require.Equal(t, model.NodeID("n1"), id)
	require.Greater(t, score, fuzzyMatchThreshold)
}

func TestFuzzyIndexRejectsBelowThreshold(t *testing.T) {
	fi := newFuzzyIndex()
	fi.add("ProcessPayment", model.NodeID("n1"))

	_, _, ok := fi.bestMatch("xyz")
	require.False(t, ok)
}
