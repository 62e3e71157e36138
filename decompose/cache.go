// Copyright 2025 Poiesic Systems
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

package decompose

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/poiesic/recall/core"
)

const (
	// DefaultCacheSize is the number of decompositions a CachedDecomposer keeps.
	DefaultCacheSize = 100

	// DefaultCacheTTL is how long a cached decomposition stays valid.
	DefaultCacheTTL = time.Hour
)

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Size    int
	HitRate float64 // [0,1]
}

// CachedDecomposer memoizes successful decompositions in a TTL-bounded LRU.
// Failed and identity results are never cached.
type CachedDecomposer struct {
	inner  QueryDecomposer
	cache  *expirable.LRU[string, *core.DecompositionResult]
	hits   atomic.Int64
	misses atomic.Int64
}

var _ QueryDecomposer = (*CachedDecomposer)(nil)

// NewCachedDecomposer wraps inner with a cache of at most size entries.
func NewCachedDecomposer(inner QueryDecomposer, size int, ttl time.Duration) (*CachedDecomposer, error) {
	if inner == nil {
		return nil, ErrNoProvider
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: cache size must be positive", ErrInvalidOption)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: cache ttl must be positive", ErrInvalidOption)
	}
	return &CachedDecomposer{
		inner: inner,
		cache: expirable.NewLRU[string, *core.DecompositionResult](size, nil, ttl),
	}, nil
}

// Decompose returns a cached decomposition when one exists for the same
// query and sub-query cap, else delegates to the wrapped decomposer.
func (c *CachedDecomposer) Decompose(ctx context.Context, query string, maxSubQueries int) *core.DecompositionResult {
	key := strconv.Itoa(maxSubQueries) + "\x00" + core.SanitizeQuery(query)
	if cached, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return cloneResult(cached)
	}
	c.misses.Add(1)

	result := c.inner.Decompose(ctx, query, maxSubQueries)
	if !result.Failed() && result.ProviderUsed != core.ProviderNone {
		c.cache.Add(key, cloneResult(result))
	}
	return result
}

// DecomposeBatch decomposes queries through the cache with bounded concurrency.
func (c *CachedDecomposer) DecomposeBatch(ctx context.Context, queries []string, maxSubQueries int) []*core.DecompositionResult {
	return decomposeBatch(ctx, c, queries, maxSubQueries, DefaultBatchConcurrency)
}

// Stats returns hit and miss counts since creation or the last Purge.
func (c *CachedDecomposer) Stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	stats := CacheStats{Hits: hits, Misses: misses, Size: c.cache.Len()}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Purge empties the cache and resets its counters.
func (c *CachedDecomposer) Purge() {
	c.cache.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

func cloneResult(r *core.DecompositionResult) *core.DecompositionResult {
	clone := *r
	clone.SubQueries = make([]core.SubQuery, len(r.SubQueries))
	for i, sq := range r.SubQueries {
		sq.Tags = append([]string(nil), sq.Tags...)
		clone.SubQueries[i] = sq
	}
	return &clone
}
