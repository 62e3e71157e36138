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
	"log/slog"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metrics"
	"github.com/poiesic/recall/storage"
	"github.com/redis/rueidis"
)

// DefaultKeyPrefix namespaces result entries in a shared Redis.
const DefaultKeyPrefix = "recall:results:"

// RedisConfig holds connection parameters for a Redis-backed cache.
type RedisConfig struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Redis is a cache shared between processes. Entries are stored as
// mus-encoded result lists with a server-side expiry.
type Redis struct {
	client rueidis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ Cache = (*Redis)(nil)

// NewRedis connects to Redis and returns a cache over it.
func NewRedis(cfg RedisConfig, logger *slog.Logger) (*Redis, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("%w: redis addrs is required", ErrInvalidConfig)
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis client: %w", err)
	}

	return newRedisWithClient(client, cfg.Prefix, cfg.TTL, logger), nil
}

func newRedisWithClient(client rueidis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "redis-cache"),
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Do(ctx, r.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Get fetches and decodes the entry for key.
func (r *Redis) Get(ctx context.Context, key string) ([]core.ConsolidatedResult, bool, error) {
	cmd := r.client.B().Get().Key(r.prefix + key).Build()
	data, err := r.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			metrics.ObserveCache(metrics.CacheMiss)
			return nil, false, nil
		}
		metrics.ObserveCache(metrics.CacheError)
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	results, err := storage.UnmarshalResults(data)
	if err != nil {
		metrics.ObserveCache(metrics.CacheError)
		r.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
		return nil, false, err
	}
	metrics.ObserveCache(metrics.CacheHit)
	return results, true, nil
}

// Set stores results under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, results []core.ConsolidatedResult) error {
	value := storage.MarshalResults(results)
	cmd := r.client.B().Set().Key(r.prefix + key).Value(rueidis.BinaryString(value)).Ex(r.ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (r *Redis) Close() error {
	r.client.Close()
	return nil
}
