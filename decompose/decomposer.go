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
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/metrics"
)

const (
	// DefaultTimeout bounds each provider call.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchConcurrency caps concurrent decompositions in DecomposeBatch.
	DefaultBatchConcurrency = 4
)

// QueryDecomposer splits a query into sub-queries. Implementations never
// return an error; failures are reported in the result.
type QueryDecomposer interface {
	Decompose(ctx context.Context, query string, maxSubQueries int) *core.DecompositionResult
}

// Decomposer asks a primary language model for a decomposition and falls
// back to a secondary one when the primary fails.
type Decomposer struct {
	primary          ai.Completer
	secondary        ai.Completer
	timeout          time.Duration
	confidenceFloor  float64
	batchConcurrency int
	logger           *slog.Logger
}

var _ QueryDecomposer = (*Decomposer)(nil)

type provider struct {
	used      core.ProviderUsed
	completer ai.Completer
}

// Option configures a Decomposer.
type Option func(*Decomposer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decomposer) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// WithTimeout sets the per-provider call timeout.
// Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Decomposer) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidOption)
		}
		d.timeout = timeout
		return nil
	}
}

// WithConfidenceFloor drops sub-queries whose confidence is below floor.
// Default is 0, which keeps everything.
func WithConfidenceFloor(floor float64) Option {
	return func(d *Decomposer) error {
		if floor < 0 || floor > 1 {
			return fmt.Errorf("%w: confidence floor must be within [0,1]", ErrInvalidOption)
		}
		d.confidenceFloor = floor
		return nil
	}
}

// WithBatchConcurrency caps how many queries DecomposeBatch runs at once.
// Default is DefaultBatchConcurrency.
func WithBatchConcurrency(n int) Option {
	return func(d *Decomposer) error {
		if n <= 0 {
			return fmt.Errorf("%w: batch concurrency must be positive", ErrInvalidOption)
		}
		d.batchConcurrency = n
		return nil
	}
}

// NewDecomposer creates a decomposer. Either completer may be nil; with
// neither, every non-identity decomposition fails with ErrNoProvider.
func NewDecomposer(primary, secondary ai.Completer, opts ...Option) (*Decomposer, error) {
	d := &Decomposer{
		primary:          primary,
		secondary:        secondary,
		timeout:          DefaultTimeout,
		batchConcurrency: DefaultBatchConcurrency,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	d.logger = d.logger.With("component", "decomposer")

	return d, nil
}

// NewFromProvider creates a decomposer over the provider's completers.
func NewFromProvider(provider ai.AIProvider, opts ...Option) (*Decomposer, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	return NewDecomposer(provider.Primary(), provider.Secondary(), opts...)
}

// Decompose splits query into at most maxSubQueries typed, weighted
// sub-queries.
//
// A non-positive maxSubQueries skips the providers and returns the query
// itself as the only sub-query. When both providers fail the result has no
// sub-queries, zero confidence and Error set.
func (d *Decomposer) Decompose(ctx context.Context, query string, maxSubQueries int) *core.DecompositionResult {
	start := time.Now()
	query = core.SanitizeQuery(query)

	if maxSubQueries <= 0 {
		return &core.DecompositionResult{
			OriginalQuery:     query,
			SubQueries:        []core.SubQuery{core.IdentitySubQuery(query)},
			OverallConfidence: 1.0,
			ProviderUsed:      core.ProviderNone,
			Elapsed:           time.Since(start),
		}
	}

	if query == "" {
		return d.failed(query, core.ErrEmptyQuery, start)
	}

	attempts := make([]provider, 0, 2)
	if d.primary != nil {
		attempts = append(attempts, provider{core.ProviderPrimary, d.primary})
	}
	if d.secondary != nil {
		attempts = append(attempts, provider{core.ProviderSecondary, d.secondary})
	}

	var lastErr error = ErrNoProvider
	prompt := buildPrompt(query, maxSubQueries)
	for _, attempt := range attempts {
		result, err := d.attempt(ctx, attempt.completer, prompt, maxSubQueries)
		if err != nil {
			d.logger.Warn("decomposition provider failed",
				"provider", attempt.used, "model", attempt.completer.Model(), "err", err)
			lastErr = err
			continue
		}

		result.OriginalQuery = query
		result.ProviderUsed = attempt.used
		result.Model = attempt.completer.Model()
		result.Elapsed = time.Since(start)
		metrics.ObserveDecomposition(string(attempt.used), result.Elapsed)
		d.logger.Debug("decomposed query",
			"provider", attempt.used, "sub_queries", len(result.SubQueries), "elapsed", result.Elapsed)
		return result
	}

	return d.failed(query, lastErr, start)
}

// attempt runs one provider and validates its reply.
func (d *Decomposer) attempt(ctx context.Context, completer ai.Completer, prompt string, maxSubQueries int) (*core.DecompositionResult, error) {
	reply, err := completer.Complete(ctx, prompt, d.timeout)
	if err != nil {
		return nil, err
	}

	p, err := parsePayload(reply)
	if err != nil {
		return nil, err
	}
	subQueries, err := p.validate()
	if err != nil {
		return nil, err
	}

	kept := subQueries[:0]
	for _, sq := range subQueries {
		if sq.Confidence >= d.confidenceFloor {
			kept = append(kept, sq)
		}
	}
	if len(kept) > maxSubQueries {
		kept = kept[:maxSubQueries]
	}

	return &core.DecompositionResult{
		SubQueries:        kept,
		OverallConfidence: p.overallConfidence(kept),
		Reasoning:         p.Reasoning,
	}, nil
}

func (d *Decomposer) failed(query string, err error, start time.Time) *core.DecompositionResult {
	elapsed := time.Since(start)
	metrics.ObserveDecomposition(string(core.ProviderNone), elapsed)
	d.logger.Error("decomposition failed", "err", err)
	return &core.DecompositionResult{
		OriginalQuery:     query,
		SubQueries:        []core.SubQuery{},
		OverallConfidence: 0,
		ProviderUsed:      core.ProviderNone,
		Elapsed:           elapsed,
		Error:             err.Error(),
	}
}
