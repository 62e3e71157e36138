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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/rank"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the recall application configuration.
type Config struct {
	// DataDir holds the badger and sqlite stores.
	DataDir string `yaml:"data_dir" env:"RECALL_DATA_DIR"`

	Logging   LoggingConfig   `yaml:"logging" envPrefix:"RECALL_LOG_"`
	AI        AIConfig        `yaml:"ai" envPrefix:"RECALL_AI_"`
	Decompose DecomposeConfig `yaml:"decompose" envPrefix:"RECALL_DECOMPOSE_"`
	Retrieval RetrievalConfig `yaml:"retrieval" envPrefix:"RECALL_RETRIEVAL_"`
	Adapters  AdaptersConfig  `yaml:"adapters" envPrefix:"RECALL_ADAPTERS_"`
	Rank      RankConfig      `yaml:"rank" envPrefix:"RECALL_RANK_"`
	Rerank    RerankConfig    `yaml:"rerank" envPrefix:"RECALL_RERANK_"`
	Cache     CacheConfig     `yaml:"cache" envPrefix:"RECALL_CACHE_"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"` // debug, info, warn, error
}

// EndpointConfig describes one OpenAI-compatible chat endpoint.
type EndpointConfig struct {
	Host  string `yaml:"host" env:"HOST"`
	Model string `yaml:"model" env:"MODEL"`
	Token string `yaml:"token" env:"TOKEN"`
}

// AIConfig holds language model and embedding settings.
type AIConfig struct {
	Primary        EndpointConfig `yaml:"primary" envPrefix:"PRIMARY_"`
	Secondary      EndpointConfig `yaml:"secondary" envPrefix:"SECONDARY_"`
	Reranker       EndpointConfig `yaml:"reranker" envPrefix:"RERANKER_"`
	EmbeddingHost  string         `yaml:"embedding_host" env:"EMBEDDING_HOST"`
	EmbeddingModel string         `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	Timeout        time.Duration  `yaml:"timeout" env:"TIMEOUT"`
	Temperature    float64        `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens      int            `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// DecomposeConfig holds query decomposition settings.
type DecomposeConfig struct {
	MaxSubQueries    int           `yaml:"max_sub_queries" env:"MAX_SUB_QUERIES"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ConfidenceFloor  float64       `yaml:"confidence_floor" env:"CONFIDENCE_FLOOR"`
	ExpandConfidence float64       `yaml:"expand_confidence" env:"EXPAND_CONFIDENCE"`
	CacheSize        int           `yaml:"cache_size" env:"CACHE_SIZE"` // 0 disables the decomposition cache
	CacheTTL         time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// RetrievalConfig holds ensemble retrieval settings.
type RetrievalConfig struct {
	PoolSize      int           `yaml:"pool_size" env:"POOL_SIZE"` // 0 picks a size from the CPU count
	CallTimeout   time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	GlobalTimeout time.Duration `yaml:"global_timeout" env:"GLOBAL_TIMEOUT"`
}

// AdaptersConfig holds backend adapter settings.
type AdaptersConfig struct {
	MinSimilarity float32 `yaml:"min_similarity" env:"MIN_SIMILARITY"`
	NeighborLimit int     `yaml:"neighbor_limit" env:"NEIGHBOR_LIMIT"`
}

// RankConfig holds consolidation weights.
type RankConfig struct {
	Specificity      float64 `yaml:"specificity" env:"SPECIFICITY"`
	Recency          float64 `yaml:"recency" env:"RECENCY"`
	SourceConfidence float64 `yaml:"source_confidence" env:"SOURCE_CONFIDENCE"`
	Usage            float64 `yaml:"usage" env:"USAGE"`
	Validation       float64 `yaml:"validation" env:"VALIDATION"`
	RepeatBoost      float64 `yaml:"repeat_boost" env:"REPEAT_BOOST"`
}

// RerankConfig holds reranker settings.
type RerankConfig struct {
	Threshold       int     `yaml:"threshold" env:"THRESHOLD"`
	MaxCandidates   int     `yaml:"max_candidates" env:"MAX_CANDIDATES"`
	CompositeWeight float64 `yaml:"composite_weight" env:"COMPOSITE_WEIGHT"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend string        `yaml:"backend" env:"BACKEND"` // none, memory, redis
	Size    int           `yaml:"size" env:"SIZE"`
	TTL     time.Duration `yaml:"ttl" env:"TTL"`
	Redis   RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig holds the shared cache connection.
type RedisConfig struct {
	Addrs    []string `yaml:"addrs" env:"ADDRS" envSeparator:","`
	Username string   `yaml:"username" env:"USERNAME"`
	Password string   `yaml:"password" env:"PASSWORD"`
	DB       int      `yaml:"db" env:"DB"`
	Prefix   string   `yaml:"prefix" env:"PREFIX"`
}

// Load reads configuration from path, overlays the environment, applies
// defaults and validates the result. An empty path skips the file. A .env
// file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "recall-data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	def := ai.DefaultConfig()
	if c.AI.Primary.Host == "" {
		c.AI.Primary.Host = def.Primary.Host
	}
	if c.AI.Primary.Model == "" {
		c.AI.Primary.Model = def.Primary.Model
	}
	if c.AI.EmbeddingHost == "" {
		c.AI.EmbeddingHost = def.EmbeddingHost
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = def.EmbeddingModel
	}
	if c.AI.Timeout <= 0 {
		c.AI.Timeout = def.Timeout
	}
	if c.AI.Temperature <= 0 {
		c.AI.Temperature = def.Temperature
	}
	if c.AI.MaxTokens <= 0 {
		c.AI.MaxTokens = def.MaxTokens
	}

	if c.Decompose.MaxSubQueries == 0 {
		c.Decompose.MaxSubQueries = 5
	}
	if c.Decompose.Timeout <= 0 {
		c.Decompose.Timeout = 30 * time.Second
	}
	if c.Decompose.ExpandConfidence == 0 {
		c.Decompose.ExpandConfidence = 0.7
	}
	if c.Decompose.CacheTTL <= 0 {
		c.Decompose.CacheTTL = time.Hour
	}

	if c.Retrieval.CallTimeout <= 0 {
		c.Retrieval.CallTimeout = 5 * time.Second
	}
	if c.Retrieval.GlobalTimeout <= 0 {
		c.Retrieval.GlobalTimeout = 10 * time.Second
	}

	if c.Adapters.MinSimilarity == 0 {
		c.Adapters.MinSimilarity = 0.5
	}
	if c.Adapters.NeighborLimit == 0 {
		c.Adapters.NeighborLimit = 3
	}

	if c.Rank.Specificity+c.Rank.Recency+c.Rank.SourceConfidence+c.Rank.Usage+c.Rank.Validation == 0 {
		w := rank.DefaultWeights()
		c.Rank.Specificity = w.Specificity
		c.Rank.Recency = w.Recency
		c.Rank.SourceConfidence = w.SourceConfidence
		c.Rank.Usage = w.Usage
		c.Rank.Validation = w.Validation
	}
	if c.Rank.RepeatBoost == 0 {
		c.Rank.RepeatBoost = rank.DefaultRepeatBoost
	}

	if c.Rerank.Threshold == 0 {
		c.Rerank.Threshold = 5
	}
	if c.Rerank.MaxCandidates == 0 {
		c.Rerank.MaxCandidates = 20
	}
	if c.Rerank.CompositeWeight == 0 {
		c.Rerank.CompositeWeight = 0.7
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 256
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 10 * time.Minute
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Decompose.MaxSubQueries < 0 {
		return fmt.Errorf("%w: decompose.max_sub_queries must not be negative, got %d", ErrInvalidConfig, c.Decompose.MaxSubQueries)
	}
	if c.Decompose.CacheSize < 0 {
		return fmt.Errorf("%w: decompose.cache_size must not be negative, got %d", ErrInvalidConfig, c.Decompose.CacheSize)
	}
	for name, v := range map[string]float64{
		"decompose.confidence_floor":  c.Decompose.ConfidenceFloor,
		"decompose.expand_confidence": c.Decompose.ExpandConfidence,
		"adapters.min_similarity":     float64(c.Adapters.MinSimilarity),
		"rerank.composite_weight":     c.Rerank.CompositeWeight,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Retrieval.PoolSize < 0 {
		return fmt.Errorf("%w: retrieval.pool_size must not be negative, got %d", ErrInvalidConfig, c.Retrieval.PoolSize)
	}
	if c.Adapters.NeighborLimit < 0 {
		return fmt.Errorf("%w: adapters.neighbor_limit must not be negative, got %d", ErrInvalidConfig, c.Adapters.NeighborLimit)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("%w: rank: %w", ErrInvalidConfig, err)
	}
	if c.Rank.RepeatBoost < 0 {
		return fmt.Errorf("%w: rank.repeat_boost must not be negative, got %v", ErrInvalidConfig, c.Rank.RepeatBoost)
	}
	if c.Rerank.Threshold < 0 || c.Rerank.MaxCandidates < 0 {
		return fmt.Errorf("%w: rerank.threshold and rerank.max_candidates must not be negative", ErrInvalidConfig)
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if len(c.Cache.Redis.Addrs) == 0 {
			return fmt.Errorf("%w: cache.redis.addrs is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: cache.backend must be %q, %q or %q, got %q",
			ErrInvalidConfig, CacheNone, CacheMemory, CacheRedis, c.Cache.Backend)
	}

	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig converts the AI section into provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return &ai.Config{
		Primary:        ai.Endpoint(c.AI.Primary),
		Secondary:      ai.Endpoint(c.AI.Secondary),
		Reranker:       ai.Endpoint(c.AI.Reranker),
		EmbeddingHost:  c.AI.EmbeddingHost,
		EmbeddingModel: c.AI.EmbeddingModel,
		Timeout:        c.AI.Timeout,
		Temperature:    c.AI.Temperature,
		MaxTokens:      c.AI.MaxTokens,
	}
}

// Weights returns the consolidation weights.
func (c *Config) Weights() rank.Weights {
	return rank.Weights{
		Specificity:      c.Rank.Specificity,
		Recency:          c.Rank.Recency,
		SourceConfidence: c.Rank.SourceConfidence,
		Usage:            c.Rank.Usage,
		Validation:       c.Rank.Validation,
	}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, level)
	}
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, fallback, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = fallback
		}
		return []byte(val)
	})
}
