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

// Coupling is one node's afferent/efferent coupling per spec §4.9:
// ca = incoming dependency edges, ce = outgoing, instability = ce/(ca+ce).
type Coupling struct {
	NodeID      model.NodeID
	Ca          int
	Ce          int
	Instability float64
}

// CouplingMetrics computes ca/ce/instability for nodeID using a single
// edge-scan already performed by BuildGraph: no nested per-edge subqueries,
// per the performance contract's explicit O(E^2) ban.
func (g *Graph) CouplingMetrics(nodeID model.NodeID) (Coupling, bool) {
	if _, ok := g.Nodes[nodeID]; !ok {
		return Coupling{}, false
	}
	ca := len(g.In[nodeID])
	ce := len(g.Out[nodeID])
	var instability float64
	if ca+ce > 0 {
		instability = float64(ce) / float64(ca+ce)
	}
	return Coupling{NodeID: nodeID, Ca: ca, Ce: ce, Instability: instability}, true
}

// HubNode is one node whose total dependency degree meets a caller's
// threshold.
type HubNode struct {
	Node   *model.CodeNode
	Degree int
}

// HubNodes filters by degree threshold before loading full node records,
// per spec §4.9's "filter by degree threshold before enriching" rule: the
// degree count comes straight out of the adjacency maps already built, and
// only nodes clearing minDegree ever get attached to a result.
func (g *Graph) HubNodes(minDegree, limit int) []HubNode {
	var hubs []HubNode
	for _, id := range g.sortedNodeIDs() {
		degree := len(g.Out[id]) + len(g.In[id])
		if degree < minDegree {
			continue
		}
		hubs = append(hubs, HubNode{Node: g.Nodes[id], Degree: degree})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].Node.ID < hubs[j].Node.ID
	})
	if limit > 0 && len(hubs) > limit {
		hubs = hubs[:limit]
	}
	return hubs
}

// Hotspot is one node ranked by risk_score = complexity * (ca + 1), per
// spec §4.9: a highly-depended-upon node with non-trivial complexity is
// riskier to change than either factor alone suggests.
type Hotspot struct {
	Node      *model.CodeNode
	RiskScore float64
}

// ComplexityHotspots filters by minComplexity before computing risk scores,
// mirroring HubNodes' filter-before-enrich discipline.
func (g *Graph) ComplexityHotspots(minComplexity int, limit int) []Hotspot {
	var hotspots []Hotspot
	for _, id := range g.sortedNodeIDs() {
		n := g.Nodes[id]
		if n.Complexity < minComplexity {
			continue
		}
		ca := len(g.In[id])
		hotspots = append(hotspots, Hotspot{
			Node:      n,
			RiskScore: float64(n.Complexity) * float64(ca+1),
		})
	}
	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].RiskScore != hotspots[j].RiskScore {
			return hotspots[i].RiskScore > hotspots[j].RiskScore
		}
		return hotspots[i].Node.ID < hotspots[j].Node.ID
	})
	if limit > 0 && len(hotspots) > limit {
		hotspots = hotspots[:limit]
	}
	return hotspots
}
