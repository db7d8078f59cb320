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

package ann

import (
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// ShardKey identifies one shard: a project and the top-level file-path
// prefix its vectors were partitioned by.
type ShardKey struct {
	ProjectID string
	Prefix    string
}

// shardOf buckets a file path into its shard prefix: the first path
// component, so memory per shard is bounded by one top-level directory's
// worth of vectors rather than the whole project.
func shardOf(projectID, filePath string) ShardKey {
	prefix := filePath
	if i := strings.IndexByte(filePath, '/'); i >= 0 {
		prefix = filePath[:i]
	}
	return ShardKey{ProjectID: projectID, Prefix: prefix}
}

// ShardDigest is the xxhash of a shard's member vectors' node IDs in sorted
// order, used to detect whether a cached shard is stale against the
// persistence layer without comparing every vector.
func ShardDigest(vectors []Vector) uint64 {
	ids := make([]string, len(vectors))
	for i, v := range vectors {
		ids[i] = string(v.NodeID)
	}
	sort.Strings(ids)
	h := xxhash.New()
	for _, id := range ids {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// cachedShard pairs a built index with the digest it was built from, so
// Cache.GetOrBuild can tell a caller whether its in-hand vectors still match what's
// loaded.
type cachedShard struct {
	index  Index
	digest uint64
}

// Cache is the process-wide thread-safe shard cache the spec's caching
// policy requires: the first query for a shard builds and stores its
// index, every later query for the same shard reads memory only.
type Cache struct {
	mu     sync.RWMutex
	shards map[ShardKey]cachedShard
}

// NewCache returns an empty, ready-to-use Cache. Construct exactly one per
// process via bootstrap and share it, never one per request.
func NewCache() *Cache {
	return &Cache{shards: make(map[ShardKey]cachedShard)}
}

// GetOrBuild returns the cached index for key if its digest matches the
// vectors the caller has in hand, otherwise builds a fresh index from
// vectors, stores it, and returns that.
func (c *Cache) GetOrBuild(key ShardKey, vectors []Vector) Index {
	digest := ShardDigest(vectors)

	c.mu.RLock()
	cached, ok := c.shards[key]
	c.mu.RUnlock()
	if ok && cached.digest == digest {
		return cached.index
	}

	index := Build(vectors)
	c.mu.Lock()
	c.shards[key] = cachedShard{index: index, digest: digest}
	c.mu.Unlock()
	return index
}

// Invalidate drops every cached shard for projectID, forcing the next
// search to rebuild from the persistence layer. Called after a reindex
// touches that project's vectors.
func (c *Cache) Invalidate(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.shards {
		if key.ProjectID == projectID {
			delete(c.shards, key)
		}
	}
}

// Len reports how many shards are currently cached, for diagnostics.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.shards)
}

// Searcher fans a query out across every shard of a project in parallel
// and merges results by distance, per the spec's multi-shard query
// contract.
type Searcher struct {
	cache       *Cache
	concurrency int
}

// NewSearcher builds a Searcher over cache with the given fan-out
// concurrency cap (0 uses a sane default).
func NewSearcher(cache *Cache, concurrency int) *Searcher {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Searcher{cache: cache, concurrency: concurrency}
}

// ShardVectors groups vectors by file-path prefix shard.
func ShardVectors(projectID string, vectors []Vector) map[ShardKey][]Vector {
	out := make(map[ShardKey][]Vector)
	for _, v := range vectors {
		key := shardOf(projectID, v.FilePath)
		out[key] = append(out[key], v)
	}
	return out
}

// Search runs query against every shard in shards concurrently (using
// cached indexes where digests are unchanged) and merges the per-shard
// top-k into a single globally ranked top-k.
func (s *Searcher) Search(projectID string, shards map[ShardKey][]Vector, query []float32, k int, efSearch int, filters Filters) ([]Match, error) {
	var (
		mu      sync.Mutex
		all     []Match
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for key, vectors := range shards {
		key, vectors := key, vectors
		g.Go(func() error {
			index := s.cache.GetOrBuild(key, vectors)
			matches, err := index.Search(query, k, efSearch, filters)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, matches...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Distance != all[j].Distance {
			return all[i].Distance < all[j].Distance
		}
		return all[i].NodeID < all[j].NodeID
	})
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}
