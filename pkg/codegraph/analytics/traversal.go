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
	"sort"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// DepthNode pairs a node with its BFS depth from the query's origin.
type DepthNode struct {
	Node  *model.CodeNode
	Depth int
}

// TransitiveDependencies runs a cycle-safe BFS over outgoing calls/uses/
// imports edges from nodeID up to maxDepth, per spec §4.9.
func (g *Graph) TransitiveDependencies(nodeID model.NodeID, maxDepth int) []DepthNode {
	return g.bfs(nodeID, maxDepth, g.Out, func(e *model.Edge) model.NodeID { return e.To })
}

// ReverseDependencies runs the same BFS over incoming edges: who depends on
// nodeID, per spec §4.9.
func (g *Graph) ReverseDependencies(nodeID model.NodeID, maxDepth int) []DepthNode {
	return g.bfs(nodeID, maxDepth, g.In, func(e *model.Edge) model.NodeID { return e.From })
}

func (g *Graph) bfs(start model.NodeID, maxDepth int, adjacency map[model.NodeID][]*model.Edge, neighbor func(*model.Edge) model.NodeID) []DepthNode {
	if _, ok := g.Nodes[start]; !ok {
		return nil
	}
	visited := map[model.NodeID]bool{start: true}
	type queued struct {
		id    model.NodeID
		depth int
	}
	queue := []queued{{id: start, depth: 0}}
	var out []DepthNode

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		neighbors := adjacency[cur.id]
		ids := make([]model.NodeID, 0, len(neighbors))
		for _, e := range neighbors {
			ids = append(ids, neighbor(e))
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if visited[id] {
				continue
			}
			visited[id] = true
			if n, ok := g.Nodes[id]; ok {
				out = append(out, DepthNode{Node: n, Depth: cur.depth + 1})
			}
			queue = append(queue, queued{id: id, depth: cur.depth + 1})
		}
	}
	return out
}

// Path is one simple path from a call_chain query's source to its target.
type Path struct {
	Nodes []model.NodeID
}

// CallChain returns every simple path from `from` to `to` of at most
// maxDepth edges via bounded DFS, per spec §4.9. "Simple" means no node
// repeats within one path; the depth bound keeps the search from exploding
// on densely connected graphs.
func (g *Graph) CallChain(from, to model.NodeID, maxDepth int) []Path {
	if _, ok := g.Nodes[from]; !ok {
		return nil
	}
	if _, ok := g.Nodes[to]; !ok {
		return nil
	}

	var paths []Path
	visiting := map[model.NodeID]bool{from: true}
	stack := []model.NodeID{from}

	var walk func(current model.NodeID, depth int)
	walk = func(current model.NodeID, depth int) {
		if current == to && len(stack) > 1 {
			nodes := make([]model.NodeID, len(stack))
			copy(nodes, stack)
			paths = append(paths, Path{Nodes: nodes})
			return
		}
		if depth >= maxDepth {
			return
		}
		edges := g.Out[current]
		next := make([]model.NodeID, 0, len(edges))
		for _, e := range edges {
			next = append(next, e.To)
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		for _, n := range next {
			if visiting[n] {
				continue
			}
			visiting[n] = true
			stack = append(stack, n)
			walk(n, depth+1)
			stack = stack[:len(stack)-1]
			visiting[n] = false
		}
	}
	walk(from, 0)
	return paths
}
