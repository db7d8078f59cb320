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

// Cycle is one strongly connected component of size > 1 in the call/use
// subgraph: a genuine cyclic dependency, not a trivial self-loop-free
// singleton.
type Cycle struct {
	Nodes []model.NodeID
}

// tarjanFrame is one stack frame of the iterative Tarjan walk below. An
// explicit stack replaces the call stack so deep graphs (spec §4.9's
// ~10^5-node projects) don't risk a Go goroutine stack overflow from
// recursion.
type tarjanFrame struct {
	node      model.NodeID
	edgeIndex int
	phase     int // 0 = enter, 1 = scan edges, 2 = post-child, 3 = finalize
	child     model.NodeID
}

// DetectCycles runs Tarjan's strongly connected components algorithm over
// the dependency subgraph and returns every SCC with more than one member,
// per spec §4.9.
func (g *Graph) DetectCycles() []Cycle {
	index := 0
	nodeIndex := make(map[model.NodeID]int)
	lowLink := make(map[model.NodeID]int)
	onStack := make(map[model.NodeID]bool)
	var sccStack []model.NodeID
	var sccs [][]model.NodeID

	strongConnect := func(start model.NodeID) {
		callStack := []tarjanFrame{{node: start, phase: 0}}
		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]
			switch frame.phase {
			case 0:
				nodeIndex[frame.node] = index
				lowLink[frame.node] = index
				index++
				sccStack = append(sccStack, frame.node)
				onStack[frame.node] = true
				frame.phase = 1

			case 1:
				edges := g.Out[frame.node]
				advanced := false
				for frame.edgeIndex < len(edges) {
					to := edges[frame.edgeIndex].To
					frame.edgeIndex++
					if _, visited := nodeIndex[to]; !visited {
						frame.phase = 2
						frame.child = to
						callStack = append(callStack, tarjanFrame{node: to, phase: 0})
						advanced = true
						break
					} else if onStack[to] {
						if nodeIndex[to] < lowLink[frame.node] {
							lowLink[frame.node] = nodeIndex[to]
						}
					}
				}
				if advanced {
					continue
				}
				frame.phase = 3

			case 2:
				if lowLink[frame.child] < lowLink[frame.node] {
					lowLink[frame.node] = lowLink[frame.child]
				}
				frame.phase = 1

			case 3:
				if lowLink[frame.node] == nodeIndex[frame.node] {
					var scc []model.NodeID
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.node {
							break
						}
					}
					if len(scc) > 1 {
						sccs = append(sccs, scc)
					}
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}

	for _, id := range g.sortedNodeIDs() {
		if _, visited := nodeIndex[id]; !visited {
			strongConnect(id)
		}
	}

	out := make([]Cycle, 0, len(sccs))
	for _, scc := range sccs {
		sort.Slice(scc, func(i, j int) bool { return scc[i] < scc[j] })
		out = append(out, Cycle{Nodes: scc})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Nodes) != len(out[j].Nodes) {
			return len(out[i].Nodes) > len(out[j].Nodes)
		}
		return out[i].Nodes[0] < out[j].Nodes[0]
	})
	return out
}
