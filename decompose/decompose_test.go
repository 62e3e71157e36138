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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	t.Run("fenced", func(t *testing.T) {
		span, err := extractObject("```json\n{\"a\": 1}\n```")
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, span)
	})

	t.Run("surrounded by prose", func(t *testing.T) {
		span, err := extractObject(`Here you go: {"a": {"b": 2}} enjoy`)
		require.NoError(t, err)
		assert.Equal(t, `{"a": {"b": 2}}`, span)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := extractObject("no braces here")
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("too large", func(t *testing.T) {
		huge := `{"reasoning": "` + strings.Repeat("x", MaxExtractBytes) + `"}`
		_, err := extractObject("prefix " + huge)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)
	})
}

func TestParsePayload_DirectAndExtracted(t *testing.T) {
	p, err := parsePayload(`{"sub_queries":[{"query":"x"}]}`)
	require.NoError(t, err)
	assert.Len(t, p.SubQueries, 1)

	p, err = parsePayload("Result:\n" + `{"sub_queries":[{"query":"x"},{"query":"y"}]}`)
	require.NoError(t, err)
	assert.Len(t, p.SubQueries, 2)

	_, err = parsePayload(`{"sub_queries": [`)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestExpand(t *testing.T) {
	result := &core.DecompositionResult{
		OriginalQuery: "Why Redis?",
		SubQueries: []core.SubQuery{
			{Text: "redis caching decision", Kind: core.KindSemantic, Confidence: 0.9, Weight: 1},
			{Text: "why redis?", Kind: core.KindSemantic, Confidence: 0.95, Weight: 1},
			{Text: "cache timeline", Kind: core.KindTemporal, Confidence: 0.4, Weight: 1},
			{Text: "Redis", Kind: core.KindEntity, Confidence: 0.7, Weight: 1},
		},
		ProviderUsed: core.ProviderPrimary,
	}

	expanded := Expand(result, DefaultExpandConfidence, 0)
	texts := make([]string, len(expanded))
	for i, sq := range expanded {
		texts[i] = sq.Text
	}
	assert.Equal(t, []string{"Why Redis?", "redis caching decision", "Redis"}, texts)
	assert.Equal(t, 1.0, expanded[0].Confidence)

	assert.Len(t, Expand(result, DefaultExpandConfidence, 2), 2)
	assert.Empty(t, Expand(nil, 0.7, 0))

	failed := &core.DecompositionResult{OriginalQuery: "redis", SubQueries: []core.SubQuery{}, Error: "down"}
	only := Expand(failed, 0.7, 0)
	require.Len(t, only, 1)
	assert.Equal(t, "redis", only[0].Text)
}

func TestRankSubQueries(t *testing.T) {
	result := &core.DecompositionResult{
		SubQueries: []core.SubQuery{
			{Text: "when", Kind: core.KindTemporal, Confidence: 1.0, Weight: 1.0},
			{Text: "what", Kind: core.KindSemantic, Confidence: 0.5, Weight: 1.0},
			{Text: "who", Kind: core.KindEntity, Confidence: 0.9, Weight: 2.0},
		},
	}

	ranked := RankSubQueries(result, DefaultConfidenceWeight, nil)
	require.Len(t, ranked, 3)
	assert.Equal(t, "who", ranked[0].Text)
	assert.InDelta(t, (0.9*0.6+2.0)*1.0, ranked[0].Score, 1e-9)
	assert.Equal(t, "what", ranked[1].Text)
	assert.InDelta(t, (0.5*0.6+1.0)*1.2, ranked[1].Score, 1e-9)
	assert.Equal(t, "when", ranked[2].Text)
	assert.InDelta(t, (1.0*0.6+1.0)*0.8, ranked[2].Score, 1e-9)

	custom := RankSubQueries(result, 0, map[core.SubQueryKind]float64{core.KindTemporal: 10})
	assert.Equal(t, "when", custom[0].Text)
}

func TestCachedDecomposer(t *testing.T) {
	primary := mock.NewMockCompleter("primary", validReply)
	d := newTestDecomposer(t, primary, nil)
	cached, err := NewCachedDecomposer(d, 10, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	first := cached.Decompose(ctx, "redis caching", 5)
	second := cached.Decompose(ctx, "  redis   caching ", 5)
	assert.Equal(t, 1, primary.CallCount(), "equivalent queries share an entry")
	assert.Equal(t, first.SubQueries, second.SubQueries)

	second.SubQueries[0].Text = "mutated"
	third := cached.Decompose(ctx, "redis caching", 5)
	assert.Equal(t, "redis caching decision", third.SubQueries[0].Text, "callers get copies")

	cached.Decompose(ctx, "redis caching", 2)
	assert.Equal(t, 2, primary.CallCount(), "the sub-query cap is part of the key")

	stats := cached.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Size)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)

	cached.Purge()
	assert.Equal(t, CacheStats{}, cached.Stats())
}

func TestCachedDecomposer_SkipsFailures(t *testing.T) {
	primary := mock.NewMockCompleter("primary")
	d := newTestDecomposer(t, primary, nil)
	cached, err := NewCachedDecomposer(d, 10, time.Minute)
	require.NoError(t, err)

	cached.Decompose(context.Background(), "redis", 5)
	cached.Decompose(context.Background(), "redis", 5)
	assert.Equal(t, 2, primary.CallCount())
	assert.Zero(t, cached.Stats().Size)

	cached.Decompose(context.Background(), "redis", 0)
	assert.Zero(t, cached.Stats().Size, "identity results are not cached")
}

func TestNewCachedDecomposer_Invalid(t *testing.T) {
	d := newTestDecomposer(t, nil, nil)

	_, err := NewCachedDecomposer(nil, 10, time.Minute)
	assert.ErrorIs(t, err, ErrNoProvider)
	_, err = NewCachedDecomposer(d, 0, time.Minute)
	assert.ErrorIs(t, err, ErrInvalidOption)
	_, err = NewCachedDecomposer(d, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestAnalyze(t *testing.T) {
	results := []*core.DecompositionResult{
		{
			SubQueries: []core.SubQuery{
				{Kind: core.KindSemantic}, {Kind: core.KindEntity}, {Kind: core.KindSemantic},
			},
			OverallConfidence: 0.9, ProviderUsed: core.ProviderPrimary, Elapsed: 300 * time.Millisecond,
		},
		{
			SubQueries:        []core.SubQuery{{Kind: core.KindTemporal}},
			OverallConfidence: 0.6, ProviderUsed: core.ProviderSecondary, Elapsed: 100 * time.Millisecond,
		},
		{ProviderUsed: core.ProviderNone, Error: "both failed", Elapsed: 200 * time.Millisecond},
		nil,
	}

	stats := Analyze(results)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Errors)
	assert.InDelta(t, 1.0/3, stats.ErrorRate, 1e-9)
	assert.Equal(t, 4, stats.TotalSubQueries)
	assert.InDelta(t, 4.0/3, stats.AvgSubQueries, 1e-9)
	assert.InDelta(t, 0.5, stats.AvgConfidence, 1e-9)
	assert.Equal(t, 200*time.Millisecond, stats.AvgElapsed)
	assert.Equal(t, map[core.ProviderUsed]int{
		core.ProviderPrimary: 1, core.ProviderSecondary: 1, core.ProviderNone: 1,
	}, stats.ByProvider)
	assert.Equal(t, 2, stats.ByKind[core.KindSemantic])
	assert.Equal(t, 1, stats.ByKind[core.KindTemporal])

	empty := Analyze(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.ErrorRate)
}

func TestWriteJSONL(t *testing.T) {
	results := []*core.DecompositionResult{
		{
			OriginalQuery: "redis",
			SubQueries:    []core.SubQuery{{Text: "redis", Kind: core.KindEntity, Confidence: 0.8, Weight: 1}},
			ProviderUsed:  core.ProviderPrimary, Model: "m", Elapsed: 1500 * time.Microsecond,
		},
		{OriginalQuery: "ttl", ProviderUsed: core.ProviderNone, Error: "down"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, results))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "redis", first["original_query"])
	assert.Equal(t, "primary", first["provider"])
	assert.Equal(t, 1.5, first["elapsed_ms"])
	assert.NotContains(t, first, "error")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "down", second["error"])
}
