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

package agent

import (
	"encoding/json"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultToolCacheSize is spec §4.10's tool-result memoization capacity:
// "an LRU of 100 entries per process."
const DefaultToolCacheSize = 100

// ToolCache memoizes tool results by (project_id, tool, args). Unlike the
// retrieval engine's query cache, the spec gives this tier no TTL, so a
// plain capacity-bounded LRU is all it needs.
type ToolCache struct {
	lru *lru.Cache[string, any]
}

// NewToolCache builds a ToolCache of the given capacity (DefaultToolCacheSize
// if size <= 0).
func NewToolCache(size int) *ToolCache {
	if size <= 0 {
		size = DefaultToolCacheSize
	}
	c, _ := lru.New[string, any](size)
	return &ToolCache{lru: c}
}

// Get returns the cached result for (projectID, tool, args), if present.
func (c *ToolCache) Get(projectID, tool string, args map[string]any) (any, bool) {
	return c.lru.Get(toolCacheKey(projectID, tool, args))
}

// Put stores result under (projectID, tool, args).
func (c *ToolCache) Put(projectID, tool string, args map[string]any, result any) {
	c.lru.Add(toolCacheKey(projectID, tool, args), result)
}

// toolCacheKey builds a stable key from args by sorting its keys before
// marshaling, so map iteration order never affects the cache key.
func toolCacheKey(projectID, tool string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([][2]any, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, [2]any{k, args[k]})
	}
	encoded, _ := json.Marshal(ordered)
	return fmt.Sprintf("%s|%s|%s", projectID, tool, encoded)
}
