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

package rank

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/recall/core"
)

// DefaultRepeatBoost is added per independent repeat surfacing of an item.
const DefaultRepeatBoost = 0.1

// Consolidator merges raw hits into deduplicated, scored, ordered results.
type Consolidator struct {
	weights     Weights
	repeatBoost float64
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Consolidator.
type Option func(*Consolidator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Consolidator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithWeights overrides the factor weights.
// Default is DefaultWeights().
func WithWeights(w Weights) Option {
	return func(c *Consolidator) error {
		if err := w.Validate(); err != nil {
			return err
		}
		c.weights = w
		return nil
	}
}

// WithRepeatBoost sets the per-repeat score increment.
// Default is DefaultRepeatBoost.
func WithRepeatBoost(boost float64) Option {
	return func(c *Consolidator) error {
		if boost < 0 {
			return ErrInvalidBoost
		}
		c.repeatBoost = boost
		return nil
	}
}

// WithClock sets the time source used for recency.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Consolidator) error {
		if now != nil {
			c.now = now
		}
		return nil
	}
}

// NewConsolidator creates a consolidator with default weights.
func NewConsolidator(opts ...Option) (*Consolidator, error) {
	c := &Consolidator{
		weights:     DefaultWeights(),
		repeatBoost: DefaultRepeatBoost,
		now:         time.Now,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "consolidator")

	return c, nil
}

type keyedHit struct {
	key string
	hit *core.RawHit
}

// group collects the hits that share a dedup key.
type group struct {
	key  string
	hits []*core.RawHit
}

// Consolidate merges hits by dedup key, scores each merged item against
// scope and returns the best topK. A non-positive topK keeps every item.
// The output does not depend on the order of hits.
func (c *Consolidator) Consolidate(hits []core.RawHit, scope string, topK int) []core.ConsolidatedResult {
	if len(hits) == 0 {
		return []core.ConsolidatedResult{}
	}

	keyed := make([]keyedHit, len(hits))
	for i := range hits {
		keyed[i] = keyedHit{key: DedupKey(&hits[i]), hit: &hits[i]}
	}
	slices.SortFunc(keyed, func(a, b keyedHit) int {
		if n := cmp.Compare(a.key, b.key); n != 0 {
			return n
		}
		return compareHits(a.hit, b.hit)
	})

	var groups []*group
	for _, k := range keyed {
		if n := len(groups); n > 0 && groups[n-1].key == k.key {
			groups[n-1].hits = append(groups[n-1].hits, k.hit)
			continue
		}
		groups = append(groups, &group{key: k.key, hits: []*core.RawHit{k.hit}})
	}

	now := c.now()
	results := make([]core.ConsolidatedResult, 0, len(groups))
	for _, g := range groups {
		result := merge(g)
		c.score(&result, g, scope, now)
		results = append(results, result)
	}

	SortResults(results)
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	c.logger.Debug("consolidated hits", "hits", len(hits), "unique", len(groups), "returned", len(results))
	return results
}

// compareHits orders hits within a group so merging is deterministic.
func compareHits(a, b *core.RawHit) int {
	if c := cmp.Compare(b.RawScore, a.RawScore); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Backend, b.Backend); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SourceID, b.SourceID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SubQuery(), b.SubQuery()); c != 0 {
		return c
	}
	if c := a.ProducedAt.Compare(b.ProducedAt); c != 0 {
		return c
	}
	if c := cmp.Compare(len(a.Metadata), len(b.Metadata)); c != 0 {
		return c
	}
	return cmp.Compare(a.Content, b.Content)
}

// merge unions a group. Hits are sorted best raw score first, so the first
// hit supplies the content.
func merge(g *group) core.ConsolidatedResult {
	first := g.hits[0]
	result := core.ConsolidatedResult{
		DedupKey: g.key,
		Content:  first.Content,
	}

	backends := make(map[core.BackendKind]bool)
	subQueries := make(map[string]bool)
	var richest map[string]string
	for _, hit := range g.hits {
		backends[hit.Backend] = true
		if sq := hit.SubQuery(); sq != "" {
			subQueries[sq] = true
		}
		if hit.ProducedAt.After(result.Timestamp) {
			result.Timestamp = hit.ProducedAt
		}
		if richest == nil || metadataSize(hit.Metadata) > metadataSize(richest) {
			richest = hit.Metadata
		}
	}

	result.Backends = slices.Sorted(maps.Keys(backends))
	result.SubQueries = slices.Sorted(maps.Keys(subQueries))
	result.Metadata = make(map[string]string, len(richest))
	for k, v := range richest {
		if k != core.MetaSubQuery {
			result.Metadata[k] = v
		}
	}
	return result
}

// metadataSize counts keys other than the sub-query stamp.
func metadataSize(m map[string]string) int {
	n := len(m)
	if _, ok := m[core.MetaSubQuery]; ok {
		n--
	}
	return n
}

// repeats counts independent surfacings beyond the first. Each distinct
// (sub-query, backend) pair is one surfacing.
func repeats(g *group) int {
	seen := make(map[string]bool)
	for _, hit := range g.hits {
		seen[hit.SubQuery()+"\x00"+string(hit.Backend)] = true
	}
	return len(seen) - 1
}

func (c *Consolidator) score(result *core.ConsolidatedResult, g *group, scope string, now time.Time) {
	maxRaw := g.hits[0].RawScore
	for _, hit := range g.hits[1:] {
		maxRaw = max(maxRaw, hit.RawScore)
	}

	comp := core.ScoreComponents{
		Specificity:      specificityScore(strings.TrimSpace(result.Metadata[core.MetaProject]), strings.TrimSpace(scope)),
		Recency:          recencyScore(result.Timestamp, now),
		SourceConfidence: clamp01(maxRaw),
		Usage:            usageScore(result.Metadata),
		Validation:       validationScore(result.Metadata),
		RepeatBoost:      c.repeatBoost * float64(repeats(g)),
	}
	w := c.weights
	base := w.Specificity*comp.Specificity +
		w.Recency*comp.Recency +
		w.SourceConfidence*comp.SourceConfidence +
		w.Usage*comp.Usage +
		w.Validation*comp.Validation

	result.Components = comp
	result.CompositeScore = clamp01(base + comp.RepeatBoost)
}

// SortResults orders results by composite score, then backend count, then
// timestamp (newest first), then dedup key.
func SortResults(results []core.ConsolidatedResult) {
	slices.SortFunc(results, compareResults)
}

func compareResults(a, b core.ConsolidatedResult) int {
	if c := cmp.Compare(b.CompositeScore, a.CompositeScore); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.Backends), len(a.Backends)); c != 0 {
		return c
	}
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return cmp.Compare(a.DedupKey, b.DedupKey)
}
