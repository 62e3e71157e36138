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

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/recall/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "recall-data", cfg.DataDir)
	assert.Equal(t, 5, cfg.Decompose.MaxSubQueries)
	assert.Equal(t, 30*time.Second, cfg.Decompose.Timeout)
	assert.Equal(t, 0.7, cfg.Decompose.ExpandConfidence)
	assert.Equal(t, 5*time.Second, cfg.Retrieval.CallTimeout)
	assert.Equal(t, 10*time.Second, cfg.Retrieval.GlobalTimeout)
	assert.Equal(t, rank.DefaultWeights(), cfg.Weights())
	assert.Equal(t, rank.DefaultRepeatBoost, cfg.Rank.RepeatBoost)
	assert.Equal(t, 5, cfg.Rerank.Threshold)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("RECALL_TEST_TOKEN", "sk-test")
	path := writeConfig(t, `
data_dir: /var/lib/recall
logging:
  level: debug
ai:
  primary:
    host: https://openrouter.ai/api
    model: google/gemini-2.5-flash
    token: ${RECALL_TEST_TOKEN}
  secondary:
    host: http://localhost:11434
    model: ${RECALL_TEST_SECONDARY:-qwen2.5:3b}
decompose:
  max_sub_queries: 3
  timeout: 10s
retrieval:
  call_timeout: 2s
  global_timeout: 4s
cache:
  backend: redis
  ttl: 1h
  redis:
    addrs: ["localhost:6379"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/recall", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "sk-test", cfg.AI.Primary.Token)
	assert.Equal(t, "qwen2.5:3b", cfg.AI.Secondary.Model)
	assert.Equal(t, 3, cfg.Decompose.MaxSubQueries)
	assert.Equal(t, 10*time.Second, cfg.Decompose.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Retrieval.CallTimeout)
	assert.Equal(t, 4*time.Second, cfg.Retrieval.GlobalTimeout)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"localhost:6379"}, cfg.Cache.Redis.Addrs)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "https://openrouter.ai/api/v1", aiCfg.Primary.Host)
	assert.Equal(t, "google/gemini-2.5-flash", aiCfg.Primary.Model)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
cache:
  backend: memory
decompose:
  max_sub_queries: 3
`)
	t.Setenv("RECALL_CACHE_BACKEND", "redis")
	t.Setenv("RECALL_CACHE_REDIS_ADDRS", "cache-a:6379,cache-b:6379")
	t.Setenv("RECALL_DECOMPOSE_MAX_SUB_QUERIES", "7")
	t.Setenv("RECALL_RETRIEVAL_CALL_TIMEOUT", "750ms")
	t.Setenv("RECALL_AI_PRIMARY_MODEL", "llama3.2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, []string{"cache-a:6379", "cache-b:6379"}, cfg.Cache.Redis.Addrs)
	assert.Equal(t, 7, cfg.Decompose.MaxSubQueries)
	assert.Equal(t, 750*time.Millisecond, cfg.Retrieval.CallTimeout)
	assert.Equal(t, "llama3.2", cfg.AI.Primary.Model)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Decompose, cfg.Decompose)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "cache: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "cache:\n  backend: memcached\n"))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"negative max sub-queries", func(c *Config) { c.Decompose.MaxSubQueries = -1 }},
		{"confidence floor above one", func(c *Config) { c.Decompose.ConfidenceFloor = 1.2 }},
		{"negative min similarity", func(c *Config) { c.Adapters.MinSimilarity = -0.1 }},
		{"weights do not sum to one", func(c *Config) { c.Rank.Usage = 0.5 }},
		{"negative repeat boost", func(c *Config) { c.Rank.RepeatBoost = -0.1 }},
		{"negative rerank threshold", func(c *Config) { c.Rerank.Threshold = -1 }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis without addrs", func(c *Config) { c.Cache.Backend = CacheRedis }},
		{"secondary without model", func(c *Config) { c.AI.Secondary.Host = "http://localhost:8080" }},
		{"missing embedding model", func(c *Config) { c.AI.EmbeddingModel = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("cache disabled", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = CacheNone
		assert.NoError(t, cfg.Validate())
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("RECALL_TEST_HOST", "redis.internal")

	got := expandEnvVars([]byte("addr: ${RECALL_TEST_HOST}:${RECALL_TEST_PORT:-6379} pass: ${RECALL_TEST_UNSET}"))
	assert.Equal(t, "addr: redis.internal:6379 pass: ", string(got))
}
