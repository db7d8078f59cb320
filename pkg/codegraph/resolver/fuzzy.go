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
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kraklabs/codegraph/pkg/codegraph/model"
)

// fuzzyMatchThreshold is the minimum estimated Jaccard similarity a
// candidate must clear to be returned as a fuzzy match. Below this, a
// reference is considered unresolvable rather than guessed at.
const fuzzyMatchThreshold = 0.5

// numHashBands is the number of independent hash bands used for the LSH
// bucketing of character trigram sets. More bands improve recall for
// near-miss symbol names (typos, pluralization, casing drift) at the cost
// of more candidate buckets to scan.
const numHashBands = 4

// fuzzyIndex buckets symbol names by banded minhash signatures of their
// character-trigram sets, giving O(1) candidate lookup instead of an
// all-pairs string comparison over every indexed symbol.
type fuzzyIndex struct {
	buckets   [numHashBands]map[uint64][]fuzzyEntry
	trigramOf map[model.NodeID]map[string]struct{}
}

type fuzzyEntry struct {
	name string
	id   model.NodeID
}

func newFuzzyIndex() *fuzzyIndex {
	fi := &fuzzyIndex{trigramOf: make(map[model.NodeID]map[string]struct{})}
	for i := range fi.buckets {
		fi.buckets[i] = make(map[uint64][]fuzzyEntry)
	}
	return fi
}

// add indexes a symbol name against its node ID. Names shorter than a
// trigram (len < 3) are skipped: there is nothing to band-hash.
func (fi *fuzzyIndex) add(name string, id model.NodeID) {
	grams := trigramSet(name)
	if len(grams) == 0 {
		return
	}
	fi.trigramOf[id] = grams

	for band := 0; band < numHashBands; band++ {
		sig := minhashSignature(grams, band)
		fi.buckets[band][sig] = append(fi.buckets[band][sig], fuzzyEntry{name: name, id: id})
	}
}

// bestMatch returns the highest-scoring candidate across every band's
// bucket for query, or ok=false if nothing clears fuzzyMatchThreshold.
func (fi *fuzzyIndex) bestMatch(query string) (model.NodeID, float64, bool) {
	grams := trigramSet(query)
	if len(grams) == 0 {
		return "", 0, false
	}

	seen := make(map[model.NodeID]bool)
	var bestID model.NodeID
	bestScore := 0.0

	for band := 0; band < numHashBands; band++ {
		sig := minhashSignature(grams, band)
		for _, entry := range fi.buckets[band][sig] {
			if seen[entry.id] {
				continue
			}
			seen[entry.id] = true
			score := jaccard(grams, fi.trigramOf[entry.id])
			if score > bestScore {
				bestScore = score
				bestID = entry.id
			}
		}
	}

	if bestScore < fuzzyMatchThreshold {
		return "", 0, false
	}
	return bestID, bestScore, true
}

func trigramSet(s string) map[string]struct{} {
	s = strings.ToLower(s)
	if len(s) < 3 {
		return nil
	}
	grams := make(map[string]struct{}, len(s))
	for i := 0; i+3 <= len(s); i++ {
		grams[s[i:i+3]] = struct{}{}
	}
	return grams
}

// minhashSignature returns the minimum xxhash64 value, salted by band,
// over a trigram set. Two sets sharing this minimum for enough bands are
// highly likely to have high Jaccard similarity, the standard LSH
// argument for minhash banding.
func minhashSignature(grams map[string]struct{}, band int) uint64 {
	var min uint64 = ^uint64(0)
	salt := uint64(band) * 0x9E3779B97F4A7C15
	for g := range grams {
		h := xxhash.Sum64String(g) ^ salt
		if h < min {
			min = h
		}
	}
	return min
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for g := range a {
		if _, ok := b[g]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
