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

package retrieval

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheSize and DefaultCacheTTL are the L1 query-result cache's
// parameters per spec §4.8's tiering policy: capacity 1000, TTL 5 minutes.
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
)

// QueryCache is the L1 cache: a capacity- and TTL-bounded LRU of full
// Result values keyed by CacheKey. Expiry is handled by the underlying
// expirable LRU rather than hand-rolled timestamp bookkeeping.
type QueryCache struct {
	lru *lru.LRU[string, Result]
}

// NewQueryCache builds a QueryCache with the given capacity and TTL.
func NewQueryCache(size int, ttl time.Duration) *QueryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &QueryCache{lru: lru.NewLRU[string, Result](size, nil, ttl)}
}

// Get returns the cached Result for key, if present and unexpired.
func (c *QueryCache) Get(key string) (Result, bool) {
	return c.lru.Get(key)
}

// Put stores result under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *QueryCache) Put(key string, result Result) {
	c.lru.Add(key, result)
}

// Clear empties the cache, used after a reindex invalidates every cached
// result for a project.
func (c *QueryCache) Clear() {
	c.lru.Purge()
}

// Len reports the current number of cached entries, for diagnostics.
func (c *QueryCache) Len() int {
	return c.lru.Len()
}
