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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/recall/cache"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/decompose"
	"github.com/poiesic/recall/metrics"
	"github.com/poiesic/recall/rank"
	"github.com/poiesic/recall/rerank"
	"github.com/poiesic/recall/retrieval"
)

// DefaultMaxSubQueries is how many sub-queries a decomposition may produce.
const DefaultMaxSubQueries = 5

// Pipeline wires decomposition, ensemble retrieval, consolidation and
// reranking into a single Retrieve call. A Pipeline is safe for concurrent use.
type Pipeline struct {
	retriever        *retrieval.Retriever
	consolidator     *rank.Consolidator
	decomposer       decompose.QueryDecomposer
	reranker         *rerank.Reranker
	cache            cache.Cache
	monitor          Monitor
	maxSubQueries    int
	expandConfidence float64
	rerankThreshold  int
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithDecomposer enables query decomposition. Without one, every request
// searches with the original query alone.
func WithDecomposer(d decompose.QueryDecomposer) Option {
	return func(p *Pipeline) error {
		p.decomposer = d
		return nil
	}
}

// WithReranker enables reranking for requests that ask for it.
func WithReranker(r *rerank.Reranker) Option {
	return func(p *Pipeline) error {
		p.reranker = r
		return nil
	}
}

// WithCache stores complete results under a key derived from the request.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) error {
		p.cache = c
		return nil
	}
}

// WithMonitor sets a monitor that observes every stage of a request.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithMaxSubQueries caps the sub-queries requested from the decomposer.
// Zero disables decomposition.
func WithMaxSubQueries(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: max sub-queries must not be negative", ErrInvalidOption)
		}
		p.maxSubQueries = n
		return nil
	}
}

// WithExpandConfidence sets the minimum confidence a sub-query needs to be
// searched alongside the original query.
func WithExpandConfidence(c float64) Option {
	return func(p *Pipeline) error {
		if c < 0 || c > 1 {
			return fmt.Errorf("%w: expand confidence must be in [0,1]", ErrInvalidOption)
		}
		p.expandConfidence = c
		return nil
	}
}

// WithRerankThreshold sets the result count above which reranking applies.
func WithRerankThreshold(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: rerank threshold must not be negative", ErrInvalidOption)
		}
		p.rerankThreshold = n
		return nil
	}
}

// NewPipeline creates a new pipeline.
func NewPipeline(retriever *retrieval.Retriever, consolidator *rank.Consolidator, opts ...Option) (*Pipeline, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if consolidator == nil {
		return nil, ErrConsolidatorRequired
	}

	p := &Pipeline{
		retriever:        retriever,
		consolidator:     consolidator,
		monitor:          &noopMonitor{},
		maxSubQueries:    DefaultMaxSubQueries,
		expandConfidence: decompose.DefaultExpandConfidence,
		rerankThreshold:  rerank.DefaultThreshold,
		logger:           slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Retrieve returns up to limit consolidated results for query, best first.
// A non-empty scope narrows retrieval to one project.
//
// The only errors are wrapped core.ErrInvalidArgument values, returned
// before anything runs. Provider and backend failures degrade the result
// instead, and a cancelled or expired ctx yields the partial results
// gathered so far with a nil error.
func (p *Pipeline) Retrieve(ctx context.Context, query, scope string, limit int, opts core.RetrieveOptions) ([]core.ConsolidatedResult, error) {
	enabled, err := core.ValidateRetrieve(query, limit, opts.EnabledBackends)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	query = core.SanitizeQuery(query)
	requestID := uuid.NewString()
	logger := p.logger.With("request_id", requestID)
	p.monitor.Start(requestID, query)
	logger.Debug("retrieve started", "query", query, "scope", scope, "limit", limit,
		"decompose", opts.UseDecomposition, "rerank", opts.EnableRerank, "backends", enabled)

	var key string
	if p.cache != nil {
		key = cache.Key(query, scope, limit, opts)
		cached, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("result cache lookup failed", "err", err)
		case ok:
			logger.Debug("result cache hit", "key", key, "results", len(cached))
			p.monitor.CacheHit(key, cached)
			p.finish(logger, cached, false, start)
			return cached, nil
		}
	}

	subQueries := p.subQueries(ctx, logger, query, opts.UseDecomposition)

	outcome := p.retriever.Collect(ctx, subQueries, scope, limit, enabled)
	hits := outcome.Hits
	p.monitor.AfterRetrieval(hits)

	results := p.consolidator.Consolidate(hits, scope, limit)
	p.monitor.AfterConsolidation(results)

	if opts.EnableRerank && ctx.Err() == nil {
		if p.reranker == nil {
			logger.Warn("rerank requested but no reranker configured")
			metrics.ObserveRerank(metrics.OutcomeFallback)
		} else {
			results = p.reranker.Rerank(ctx, results, query, p.rerankThreshold)
		}
		p.monitor.AfterRerank(results)
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("retrieve interrupted, returning partial results", "results", len(results), "err", err)
		p.finish(logger, results, true, start)
		return results, nil
	}

	if outcome.Partial() {
		logger.Warn("backend calls abandoned at the deadline, results not cached",
			"abandoned", outcome.Abandoned, "calls", outcome.Calls, "results", len(results))
		p.finish(logger, results, true, start)
		return results, nil
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, results); err != nil {
			logger.Warn("result cache store failed", "err", err)
		}
	}
	p.finish(logger, results, false, start)
	return results, nil
}

// subQueries decides what to search for. Decomposition failures fall back
// to the original query as the only sub-query.
func (p *Pipeline) subQueries(ctx context.Context, logger *slog.Logger, query string, useDecomposition bool) []core.SubQuery {
	identity := []core.SubQuery{core.IdentitySubQuery(query)}
	if !useDecomposition {
		return identity
	}
	if p.decomposer == nil {
		logger.Warn("decomposition requested but no decomposer configured")
		p.monitor.AfterDecomposition(nil, identity)
		return identity
	}

	result := p.decomposer.Decompose(ctx, query, p.maxSubQueries)
	if result == nil || result.Failed() || len(result.SubQueries) == 0 {
		if result != nil && result.Failed() {
			logger.Warn("decomposition failed, searching with original query", "err", result.Error)
		} else {
			logger.Debug("decomposition produced no sub-queries, searching with original query")
		}
		p.monitor.AfterDecomposition(result, identity)
		return identity
	}

	expanded := decompose.Expand(result, p.expandConfidence, 0)
	if len(expanded) == 0 {
		expanded = identity
	}
	logger.Debug("query decomposed", "provider", result.ProviderUsed, "sub_queries", len(result.SubQueries),
		"searched", len(expanded), "confidence", result.OverallConfidence)
	p.monitor.AfterDecomposition(result, expanded)
	return expanded
}

func (p *Pipeline) finish(logger *slog.Logger, results []core.ConsolidatedResult, partial bool, start time.Time) {
	elapsed := time.Since(start)
	outcome := metrics.OutcomeOK
	if partial {
		outcome = metrics.OutcomePartial
	}
	metrics.ObserveRetrieve(outcome, elapsed)
	p.monitor.Finish(results, partial, elapsed)
	logger.Debug("retrieve finished", "results", len(results), "partial", partial, "elapsed", elapsed)
}
