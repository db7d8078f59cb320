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

// Package ann implements the approximate-nearest-neighbor index over node
// embeddings: exact search for small shards, IVF for large ones, sharded by
// file-path prefix and cached process-wide so a shard's index is rebuilt
// only when the node IDs of its member vectors change.
package ann

import "github.com/kraklabs/codegraph/pkg/codegraph/model"

// Match is one search hit: a node ID and its cosine distance from the query
// vector (0 = identical direction, 2 = opposite).
type Match struct {
	NodeID   model.NodeID
	Distance float32
}

// Filters constrains a search to a subset of vectors by predicates on the
// fields the indexer also shards by. A zero-value Filters matches everything.
type Filters struct {
	FilePathPrefix string
	Language       model.Language
	NodeType       model.NodeType
}

func (f Filters) matches(v Vector) bool {
	if f.FilePathPrefix != "" && !hasPrefix(v.FilePath, f.FilePathPrefix) {
		return false
	}
	if f.Language != "" && v.Language != f.Language {
		return false
	}
	if f.NodeType != "" && v.NodeType != f.NodeType {
		return false
	}
	return true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Vector is one indexed embedding plus the metadata needed to apply Filters
// without a round trip back to the store.
type Vector struct {
	NodeID   model.NodeID
	FilePath string
	Language model.Language
	NodeType model.NodeType
	Values   []float32
}

// Index is the search contract every shard and the multi-shard Searcher
// satisfy: search(query, k, efSearch, filters) -> top-k neighbors.
type Index interface {
	Search(query []float32, k int, efSearch int, filters Filters) ([]Match, error)
	Len() int
}

// exactSearchThreshold is the vector count below which brute-force cosine
// distance beats an approximate index on both recall and latency, per the
// spec's recall/latency policy.
const exactSearchThreshold = 10_000

// DefaultEfSearch is the candidate-list size IVF search explores when the
// caller doesn't specify one.
const DefaultEfSearch = 100

// Build chooses flat exact search for small vector sets and IVF for large
// ones, per the spec's ≤10k / >10k split.
func Build(vectors []Vector) Index {
	if len(vectors) <= exactSearchThreshold {
		return NewFlatIndex(vectors)
	}
	return NewIVFIndex(vectors, clampNlist(len(vectors)))
}

func clampNlist(n int) int {
	nlist := isqrt(n)
	if nlist < 100 {
		return 100
	}
	if nlist > 4096 {
		return 4096
	}
	return nlist
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
