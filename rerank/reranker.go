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

package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metrics"
	"github.com/poiesic/recall/rank"
)

const (
	// DefaultThreshold is the result count that must be exceeded before reranking.
	DefaultThreshold = 5

	// DefaultMaxCandidates is how many top results get a pairwise score.
	DefaultMaxCandidates = 20

	// DefaultCompositeWeight is the share of the blended score kept from the
	// composite score; the pairwise score supplies the rest.
	DefaultCompositeWeight = 0.7
)

// Reranker blends a pairwise query-document relevance score into the
// composite score of the top results.
type Reranker struct {
	scorer          ai.RelevanceScorer
	maxCandidates   int
	compositeWeight float64
	logger          *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMaxCandidates sets how many top results are rescored.
// Default is DefaultMaxCandidates.
func WithMaxCandidates(n int) Option {
	return func(r *Reranker) error {
		if n <= 0 {
			return ErrInvalidCandidates
		}
		r.maxCandidates = n
		return nil
	}
}

// WithCompositeWeight sets the composite share of the blended score.
// Default is DefaultCompositeWeight.
func WithCompositeWeight(w float64) Option {
	return func(r *Reranker) error {
		if w < 0 || w > 1 || math.IsNaN(w) {
			return ErrInvalidBlend
		}
		r.compositeWeight = w
		return nil
	}
}

// NewReranker creates a reranker. A nil scorer is allowed; Rerank then
// returns its input unchanged.
func NewReranker(scorer ai.RelevanceScorer, opts ...Option) (*Reranker, error) {
	r := &Reranker{
		scorer:          scorer,
		maxCandidates:   DefaultMaxCandidates,
		compositeWeight: DefaultCompositeWeight,
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "reranker")

	return r, nil
}

// Available reports whether a relevance scorer is configured.
func (r *Reranker) Available() bool {
	return r != nil && r.scorer != nil
}

// Rerank rescores the top results when there are more than threshold of
// them. Results past the candidate window keep their composite scores, and
// the whole list is re-sorted so it stays ordered by score. Any scorer
// problem returns results unchanged.
func (r *Reranker) Rerank(ctx context.Context, results []core.ConsolidatedResult, query string, threshold int) []core.ConsolidatedResult {
	if len(results) <= threshold {
		metrics.ObserveRerank(metrics.OutcomeSkipped)
		return results
	}
	if !r.Available() {
		metrics.ObserveRerank(metrics.OutcomeFallback)
		r.logger.Debug("no relevance scorer configured, keeping composite order")
		return results
	}

	n := min(len(results), r.maxCandidates)
	documents := make([]string, n)
	for i := range n {
		documents[i] = results[i].Content
	}

	scores, err := r.scorer.ScoreRelevance(ctx, query, documents)
	if err == nil && len(scores) != n {
		err = fmt.Errorf("%w: expected %d, received %d", ErrScoreCountMismatch, n, len(scores))
	}
	if err != nil {
		metrics.ObserveRerank(metrics.OutcomeError)
		r.logger.Warn("relevance scoring failed, keeping composite order", "candidates", n, "err", err)
		return results
	}

	reranked := slices.Clone(results)
	for i := range n {
		pairwise := scores[i]
		if math.IsNaN(pairwise) {
			pairwise = 0
		}
		pairwise = min(max(pairwise, 0), 1)

		reranked[i].Components.Pairwise = pairwise
		reranked[i].CompositeScore = r.compositeWeight*reranked[i].CompositeScore + (1-r.compositeWeight)*pairwise
	}
	rank.SortResults(reranked)

	metrics.ObserveRerank(metrics.OutcomeApplied)
	r.logger.Debug("reranked results", "candidates", n, "total", len(results))
	return reranked
}
