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

// Package recall answers questions from a project's institutional memory by
// decomposing the question, searching several stores at once and merging the
// evidence into one ranked list.
//
// Engine is the entry point: it opens the stores under a data directory,
// builds the language model provider and wires the retrieval pipeline from a
// config.Config.
package recall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/recall/adapters"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/config"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/decompose"
	"github.com/poiesic/recall/indexing"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/rank"
	"github.com/poiesic/recall/rerank"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/sqlite"
)

// Engine owns the stores, the provider and the retrieval pipeline.
type Engine struct {
	cfg        *config.Config
	backend    *badger.Backend
	documents  storage.DocumentRepository
	graph      storage.GraphRepository
	records    storage.RecordRepository
	provider   ai.AIProvider
	retriever  *retrieval.Retriever
	decomposer decompose.QueryDecomposer
	cache      cache.Cache
	pipeline   *pipeline.Pipeline
	logger     *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider         ai.AIProvider
	logger           *slog.Logger
	retrievalMonitor retrieval.Monitor
	pipelineMonitor  pipeline.Monitor
}

// WithProvider uses provider instead of building one from the AI config.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// WithRetrievalMonitor observes every backend fan-out.
func WithRetrievalMonitor(monitor retrieval.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.retrievalMonitor = monitor
	}
}

// WithPipelineMonitor observes every pipeline stage.
func WithPipelineMonitor(monitor pipeline.Monitor) EngineOption {
	return func(o *engineOptions) {
		o.pipelineMonitor = monitor
	}
}

// Open opens or creates the stores under cfg.DataDir and builds the pipeline.
func Open(ctx context.Context, cfg *config.Config, opts ...EngineOption) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	e := &Engine{cfg: cfg, logger: options.logger.With("component", "engine")}
	if err := e.open(ctx, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) open(ctx context.Context, options *engineOptions) error {
	cfg := e.cfg
	logger := options.logger

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	var err error
	if e.backend, err = badger.OpenBackend(filepath.Join(cfg.DataDir, "index"), false); err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	if e.documents, err = badger.NewDocumentRepository(e.backend); err != nil {
		return err
	}
	if e.graph, err = badger.NewGraphRepository(e.backend); err != nil {
		return err
	}
	if e.records, err = sqlite.NewRecordRepository(ctx, filepath.Join(cfg.DataDir, "records.db")); err != nil {
		return fmt.Errorf("failed to open records: %w", err)
	}

	e.provider = options.provider
	if e.provider == nil {
		if e.provider, err = openai.NewProvider(cfg.AIConfig()); err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}
	}

	structured, err := adapters.NewStructured(e.records, adapters.WithLogger(logger))
	if err != nil {
		return err
	}
	vector, err := adapters.NewVector(e.documents, e.provider.Embedder(),
		adapters.WithMinSimilarity(cfg.Adapters.MinSimilarity), adapters.WithLogger(logger))
	if err != nil {
		return err
	}
	graph, err := adapters.NewGraph(e.graph,
		adapters.WithNeighborLimit(cfg.Adapters.NeighborLimit), adapters.WithLogger(logger))
	if err != nil {
		return err
	}

	retrievalOpts := []retrieval.Option{
		retrieval.WithCallTimeout(cfg.Retrieval.CallTimeout),
		retrieval.WithGlobalTimeout(cfg.Retrieval.GlobalTimeout),
		retrieval.WithMonitor(options.retrievalMonitor),
		retrieval.WithLogger(logger),
	}
	if cfg.Retrieval.PoolSize > 0 {
		retrievalOpts = append(retrievalOpts, retrieval.WithPoolSize(cfg.Retrieval.PoolSize))
	}
	if e.retriever, err = retrieval.NewRetriever([]retrieval.Adapter{structured, vector, graph}, retrievalOpts...); err != nil {
		return err
	}

	consolidator, err := rank.NewConsolidator(
		rank.WithWeights(cfg.Weights()),
		rank.WithRepeatBoost(cfg.Rank.RepeatBoost),
		rank.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	decomposer, err := decompose.NewFromProvider(e.provider,
		decompose.WithTimeout(cfg.Decompose.Timeout),
		decompose.WithConfidenceFloor(cfg.Decompose.ConfidenceFloor),
		decompose.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	e.decomposer = decomposer
	if cfg.Decompose.CacheSize > 0 {
		cached, err := decompose.NewCachedDecomposer(decomposer, cfg.Decompose.CacheSize, cfg.Decompose.CacheTTL)
		if err != nil {
			return err
		}
		e.decomposer = cached
	}

	reranker, err := rerank.NewReranker(e.provider.Scorer(),
		rerank.WithMaxCandidates(cfg.Rerank.MaxCandidates),
		rerank.WithCompositeWeight(cfg.Rerank.CompositeWeight),
		rerank.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if e.cache, err = openCache(cfg.Cache, logger); err != nil {
		return err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithDecomposer(e.decomposer),
		pipeline.WithReranker(reranker),
		pipeline.WithMaxSubQueries(cfg.Decompose.MaxSubQueries),
		pipeline.WithExpandConfidence(cfg.Decompose.ExpandConfidence),
		pipeline.WithRerankThreshold(cfg.Rerank.Threshold),
		pipeline.WithMonitor(options.pipelineMonitor),
		pipeline.WithLogger(logger),
	}
	if e.cache != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithCache(e.cache))
	}
	e.pipeline, err = pipeline.NewPipeline(e.retriever, consolidator, pipelineOpts...)
	return err
}

func openCache(cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheMemory:
		memory, err := cache.NewMemory(cfg.Size, cfg.TTL)
		if err != nil {
			return nil, err
		}
		return memory, nil
	case config.CacheRedis:
		redis, err := cache.NewRedis(cache.RedisConfig{
			Addrs:    cfg.Redis.Addrs,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.TTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		return redis, nil
	default:
		return nil, nil
	}
}

// Retrieve runs the retrieval pipeline. See pipeline.Pipeline.Retrieve.
func (e *Engine) Retrieve(ctx context.Context, query, scope string, limit int, opts core.RetrieveOptions) ([]core.ConsolidatedResult, error) {
	return e.pipeline.Retrieve(ctx, query, scope, limit, opts)
}

// Decompose splits query into at most maxSubQueries sub-queries.
func (e *Engine) Decompose(ctx context.Context, query string, maxSubQueries int) *core.DecompositionResult {
	return e.decomposer.Decompose(ctx, query, maxSubQueries)
}

// NewIndexer creates an indexer over the engine's stores.
// The caller must Release it.
func (e *Engine) NewIndexer(opts ...indexing.Option) (*indexing.Indexer, error) {
	opts = append([]indexing.Option{indexing.WithLogger(e.logger)}, opts...)
	return indexing.NewIndexer(e.documents, e.records, e.graph, e.provider.Embedder(), opts...)
}

// NewReindexer creates a reindexer that re-embeds every stored document.
func (e *Engine) NewReindexer(cfg *indexing.ReindexConfig, progress io.Writer) (*indexing.Reindexer, error) {
	return indexing.NewReindexer(e.documents, e.provider.Embedder(), cfg, progress, e.logger)
}

// Config returns the configuration the engine was opened with.
func (e *Engine) Config() *config.Config {
	return e.cfg
}

func (e *Engine) DocumentRepository() storage.DocumentRepository {
	return e.documents
}

func (e *Engine) GraphRepository() storage.GraphRepository {
	return e.graph
}

func (e *Engine) RecordRepository() storage.RecordRepository {
	return e.records
}

// Close releases everything the engine opened. It is safe to call on a
// partially opened engine.
func (e *Engine) Close() error {
	var errs []error
	if e.retriever != nil {
		e.retriever.Release()
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Error("error closing result cache", "err", err)
			errs = append(errs, err)
		}
	}
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
		}
	}
	if e.records != nil {
		if err := e.records.Close(); err != nil {
			e.logger.Error("error closing record repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.graph != nil {
		if err := e.graph.Close(); err != nil {
			e.logger.Error("error closing graph repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.documents != nil {
		if err := e.documents.Close(); err != nil {
			e.logger.Error("error closing document repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing index backend", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
