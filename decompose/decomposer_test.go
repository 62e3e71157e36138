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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validReply = `{
  "sub_queries": [
    {"query": "redis caching decision", "type": "semantic", "confidence": 0.9, "weight": 1.5, "tags": ["cache"]},
    {"query": "Redis", "type": "entity", "confidence": 0.8, "weight": 1.0},
    {"query": "cache changes last month", "type": "temporal", "confidence": 0.4, "weight": 0.5}
  ],
  "decomposition_confidence": 0.85,
  "reasoning": "split by concept, entity and time"
}`

func newTestDecomposer(t *testing.T, primary, secondary *mock.MockCompleter, opts ...Option) *Decomposer {
	t.Helper()
	var d *Decomposer
	var err error
	switch {
	case primary != nil && secondary != nil:
		d, err = NewDecomposer(primary, secondary, opts...)
	case primary != nil:
		d, err = NewDecomposer(primary, nil, opts...)
	case secondary != nil:
		d, err = NewDecomposer(nil, secondary, opts...)
	default:
		d, err = NewDecomposer(nil, nil, opts...)
	}
	require.NoError(t, err)
	return d
}

func TestDecompose_Identity(t *testing.T) {
	primary := mock.NewMockCompleter("primary", validReply)
	d := newTestDecomposer(t, primary, nil)

	for _, n := range []int{0, -3} {
		result := d.Decompose(context.Background(), "  why   redis? ", n)
		require.Len(t, result.SubQueries, 1)
		assert.Equal(t, "why redis?", result.SubQueries[0].Text)
		assert.Equal(t, core.KindSemantic, result.SubQueries[0].Kind)
		assert.Equal(t, 1.0, result.SubQueries[0].Confidence)
		assert.Equal(t, 1.0, result.SubQueries[0].Weight)
		assert.Equal(t, core.ProviderNone, result.ProviderUsed)
		assert.Equal(t, 1.0, result.OverallConfidence)
		assert.False(t, result.Failed())
	}
	assert.Zero(t, primary.CallCount(), "identity decomposition must not call a provider")
}

func TestDecompose_PrimarySuccess(t *testing.T) {
	primary := mock.NewMockCompleter("primary-model", validReply)
	secondary := mock.NewMockCompleter("secondary-model", validReply)
	d := newTestDecomposer(t, primary, secondary)

	result := d.Decompose(context.Background(), "Why did we pick Redis for caching?", 5)
	require.False(t, result.Failed(), result.Error)
	assert.Equal(t, core.ProviderPrimary, result.ProviderUsed)
	assert.Equal(t, "primary-model", result.Model)
	assert.Equal(t, 0.85, result.OverallConfidence)
	assert.Equal(t, "split by concept, entity and time", result.Reasoning)
	require.Len(t, result.SubQueries, 3)
	assert.Equal(t, core.SubQuery{
		Text: "redis caching decision", Kind: core.KindSemantic,
		Confidence: 0.9, Weight: 1.5, Tags: []string{"cache"},
	}, result.SubQueries[0])
	assert.Equal(t, core.KindEntity, result.SubQueries[1].Kind)
	assert.Zero(t, secondary.CallCount())

	prompts := primary.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "QUERY: Why did we pick Redis for caching?")
	assert.Contains(t, prompts[0], "At most 5 sub-queries")
}

func TestDecompose_ExtractsFromChattyReply(t *testing.T) {
	reply := "Sure! Here is the decomposition:\n```json\n" + validReply + "\n```\nHope this helps."
	d := newTestDecomposer(t, mock.NewMockCompleter("primary", reply), nil)

	result := d.Decompose(context.Background(), "redis caching", 5)
	require.False(t, result.Failed(), result.Error)
	assert.Len(t, result.SubQueries, 3)
}

func TestDecompose_Fallback(t *testing.T) {
	tests := []struct {
		name    string
		primary *mock.MockCompleter
	}{
		{"primary error", mock.NewFailingCompleter("primary", errors.New("rate limited"))},
		{"primary not json", mock.NewMockCompleter("primary", "I cannot help with that")},
		{"primary unknown type", mock.NewMockCompleter("primary", `{"sub_queries":[{"query":"x","type":"spatial"}]}`)},
		{"primary empty query", mock.NewMockCompleter("primary", `{"sub_queries":[{"query":"  "}]}`)},
		{"primary confidence out of range", mock.NewMockCompleter("primary", `{"sub_queries":[{"query":"x","confidence":1.5}]}`)},
		{"primary negative weight", mock.NewMockCompleter("primary", `{"sub_queries":[{"query":"x","weight":-1}]}`)},
		{"primary no sub-queries", mock.NewMockCompleter("primary", `{"sub_queries":[]}`)},
		{"primary wrong field type", mock.NewMockCompleter("primary", `{"sub_queries":[{"query":"x","confidence":"high"}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := mock.NewMockCompleter("secondary-model", validReply)
			d := newTestDecomposer(t, tt.primary, secondary)

			result := d.Decompose(context.Background(), "redis caching", 5)
			require.False(t, result.Failed(), result.Error)
			assert.Equal(t, core.ProviderSecondary, result.ProviderUsed)
			assert.Equal(t, "secondary-model", result.Model)
			assert.Equal(t, 1, tt.primary.CallCount())
			assert.Equal(t, 1, secondary.CallCount())
		})
	}
}

func TestDecompose_BothFail(t *testing.T) {
	primary := mock.NewFailingCompleter("primary", errors.New("primary down"))
	secondary := mock.NewFailingCompleter("secondary", errors.New("secondary down"))
	d := newTestDecomposer(t, primary, secondary)

	result := d.Decompose(context.Background(), "redis caching", 5)
	assert.True(t, result.Failed())
	assert.Equal(t, "secondary down", result.Error)
	assert.Empty(t, result.SubQueries)
	assert.Zero(t, result.OverallConfidence)
	assert.Equal(t, core.ProviderNone, result.ProviderUsed)
}

func TestDecompose_NoProvider(t *testing.T) {
	d := newTestDecomposer(t, nil, nil)

	result := d.Decompose(context.Background(), "redis caching", 5)
	assert.True(t, result.Failed())
	assert.Equal(t, ErrNoProvider.Error(), result.Error)
}

func TestDecompose_SecondaryOnly(t *testing.T) {
	d := newTestDecomposer(t, nil, mock.NewMockCompleter("secondary", validReply))

	result := d.Decompose(context.Background(), "redis caching", 5)
	require.False(t, result.Failed())
	assert.Equal(t, core.ProviderSecondary, result.ProviderUsed)
}

func TestDecompose_EmptyQuery(t *testing.T) {
	primary := mock.NewMockCompleter("primary", validReply)
	d := newTestDecomposer(t, primary, nil)

	result := d.Decompose(context.Background(), " \t\n ", 5)
	assert.True(t, result.Failed())
	assert.Zero(t, primary.CallCount())
}

func TestDecompose_TruncatesToMax(t *testing.T) {
	d := newTestDecomposer(t, mock.NewMockCompleter("primary", validReply), nil)

	result := d.Decompose(context.Background(), "redis caching", 2)
	require.Len(t, result.SubQueries, 2)
	assert.Equal(t, "redis caching decision", result.SubQueries[0].Text)
	assert.Equal(t, "Redis", result.SubQueries[1].Text)
}

func TestDecompose_ConfidenceFloor(t *testing.T) {
	d := newTestDecomposer(t, mock.NewMockCompleter("primary", validReply), nil, WithConfidenceFloor(0.5))

	result := d.Decompose(context.Background(), "redis caching", 5)
	require.Len(t, result.SubQueries, 2)
	for _, sq := range result.SubQueries {
		assert.GreaterOrEqual(t, sq.Confidence, 0.5)
	}
}

func TestDecompose_DefaultsAndMeanConfidence(t *testing.T) {
	reply := `{"sub_queries":[{"query":"redis"},{"query":"ttl","type":"TEMPORAL","confidence":0.9}],"decomposition_confidence":3}`
	d := newTestDecomposer(t, mock.NewMockCompleter("primary", reply), nil)

	result := d.Decompose(context.Background(), "redis ttl", 5)
	require.False(t, result.Failed(), result.Error)
	require.Len(t, result.SubQueries, 2)
	assert.Equal(t, core.KindSemantic, result.SubQueries[0].Kind)
	assert.Equal(t, 0.5, result.SubQueries[0].Confidence)
	assert.Equal(t, 1.0, result.SubQueries[0].Weight)
	assert.Equal(t, core.KindTemporal, result.SubQueries[1].Kind)
	assert.InDelta(t, 0.7, result.OverallConfidence, 1e-9, "invalid payload confidence falls back to the mean")
}

func TestDecompose_PassesTimeout(t *testing.T) {
	var got time.Duration
	primary := &mock.MockCompleter{
		ModelName: "primary",
		CompleteFunc: func(_ context.Context, _ string, timeout time.Duration) (string, error) {
			got = timeout
			return validReply, nil
		},
	}
	d := newTestDecomposer(t, primary, nil, WithTimeout(3*time.Second))

	d.Decompose(context.Background(), "redis", 5)
	assert.Equal(t, 3*time.Second, got)
}

func TestDecompose_CapsQueryLength(t *testing.T) {
	primary := mock.NewMockCompleter("primary", validReply)
	d := newTestDecomposer(t, primary, nil)

	result := d.Decompose(context.Background(), strings.Repeat("a", core.MaxQueryLength+100), 5)
	assert.Len(t, []rune(result.OriginalQuery), core.MaxQueryLength)
}

func TestNewDecomposer_InvalidOptions(t *testing.T) {
	_, err := NewDecomposer(nil, nil, WithTimeout(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewDecomposer(nil, nil, WithConfidenceFloor(1.2))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewDecomposer(nil, nil, WithBatchConcurrency(0))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewFromProvider(nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestNewFromProvider(t *testing.T) {
	primary := mock.NewMockCompleter("primary", validReply)
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), primary, nil, nil)

	d, err := NewFromProvider(provider)
	require.NoError(t, err)
	result := d.Decompose(context.Background(), "redis", 5)
	assert.Equal(t, core.ProviderPrimary, result.ProviderUsed)
}

func TestDecomposeBatch_PreservesOrder(t *testing.T) {
	primary := &mock.MockCompleter{
		ModelName: "primary",
		CompleteFunc: func(_ context.Context, prompt string, _ time.Duration) (string, error) {
			if strings.Contains(prompt, "QUERY: slow") {
				time.Sleep(20 * time.Millisecond)
			}
			return validReply, nil
		},
	}
	d := newTestDecomposer(t, primary, nil, WithBatchConcurrency(2))

	queries := []string{"slow", "fast one", "fast two"}
	results := d.DecomposeBatch(context.Background(), queries, 3)
	require.Len(t, results, 3)
	for i, q := range queries {
		assert.Equal(t, q, results[i].OriginalQuery)
	}
	assert.Equal(t, 3, primary.CallCount())
}
