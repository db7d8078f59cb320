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

package model

import "testing"

import "github.com/stretchr/testify/require"

func TestNewNodeIDDeterministic(t *testing.T) {
	loc := Location{FilePath: "a.go", StartLine: 1, StartCol: 1, EndLine: 3, EndCol: 1}
	id1 := NewNodeID("a.go", NodeFunction, "foo", loc)
	id2 := NewNodeID("./a.go", NodeFunction, "foo", loc)
	require.Equal(t, id1, id2, "leading ./ must normalize to the same ID")
}

func TestNewNodeIDExcludesSignature(t *testing.T) {
	loc := Location{FilePath: "a.go", StartLine: 1, StartCol: 1, EndLine: 3, EndCol: 1}
	id1 := NewNodeID("a.go", NodeFunction, "foo", loc)

	n := &CodeNode{FilePath: "a.go", NodeType: NodeFunction, Name: "foo", Signature: "func foo(x int)"}
	id2 := NewNodeID(n.FilePath, n.NodeType, n.Name, loc)
	require.Equal(t, id1, id2)
}

func TestNewNodeIDDisambiguatesByColumn(t *testing.T) {
	loc1 := Location{FilePath: "a.go", StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 5}
	loc2 := Location{FilePath: "a.go", StartLine: 1, StartCol: 6, EndLine: 1, EndCol: 10}
	id1 := NewNodeID("a.go", NodeFunction, "anon", loc1)
	id2 := NewNodeID("a.go", NodeFunction, "anon", loc2)
	require.NotEqual(t, id1, id2)
}

func TestNewEdgeIDSetSemantics(t *testing.T) {
	a := NodeID("node:a")
	b := NodeID("node:b")
	id1 := NewEdgeID(a, b, EdgeCalls)
	id2 := NewEdgeID(a, b, EdgeCalls)
	require.Equal(t, id1, id2, "resolving the same triple twice must yield the same edge ID")

	id3 := NewEdgeID(a, b, EdgeUses)
	require.NotEqual(t, id1, id3)
}

func TestContentHashHex(t *testing.T) {
	h1 := ContentHashHex([]byte("package main"))
	h2 := ContentHashHex([]byte("package main"))
	h3 := ContentHashHex([]byte("package other"))
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Len(t, h1, 64)
}

func TestLanguageFromExtension(t *testing.T) {
	require.Equal(t, LanguageGo, LanguageFromExtension(".go"))
	require.Equal(t, LanguagePython, LanguageFromExtension(".py"))
	require.Equal(t, LanguageUnknown, LanguageFromExtension(".xyz"))
}
