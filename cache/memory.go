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

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metrics"
)

// Memory is an in-process cache with LRU eviction and a fixed TTL.
type Memory struct {
	lru *expirable.LRU[string, []core.ConsolidatedResult]
}

var _ Cache = (*Memory)(nil)

// NewMemory creates a cache holding at most size entries for ttl each.
func NewMemory(size int, ttl time.Duration) (*Memory, error) {
	if size <= 0 || ttl <= 0 {
		return nil, fmt.Errorf("%w: size and ttl must be positive", ErrInvalidConfig)
	}
	return &Memory{lru: expirable.NewLRU[string, []core.ConsolidatedResult](size, nil, ttl)}, nil
}

// Get returns a copy of the cached results for key.
func (m *Memory) Get(_ context.Context, key string) ([]core.ConsolidatedResult, bool, error) {
	results, ok := m.lru.Get(key)
	if !ok {
		metrics.ObserveCache(metrics.CacheMiss)
		return nil, false, nil
	}
	metrics.ObserveCache(metrics.CacheHit)
	return cloneResults(results), true, nil
}

// Set stores a copy of results under key.
func (m *Memory) Set(_ context.Context, key string, results []core.ConsolidatedResult) error {
	m.lru.Add(key, cloneResults(results))
	return nil
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Close empties the cache.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
