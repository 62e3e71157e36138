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

package openai

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestParseRelevanceScores(t *testing.T) {
	t.Run("scores in order", func(t *testing.T) {
		scores, err := parseRelevanceScores(`{"scores": [{"doc_index": 0, "score": 0.9}, {"doc_index": 1, "score": 0.2}]}`, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.9, 0.2}, scores)
	})

	t.Run("missing documents get default", func(t *testing.T) {
		scores, err := parseRelevanceScores(`{"scores": [{"doc_index": 1, "score": 0.8}]}`, 3)
		require.NoError(t, err)
		assert.Equal(t, []float64{defaultScore, 0.8, defaultScore}, scores)
	})

	t.Run("out of range values are clamped", func(t *testing.T) {
		scores, err := parseRelevanceScores(`{"scores": [{"doc_index": 0, "score": 1.7}, {"doc_index": 1, "score": -0.3}]}`, 2)
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 0}, scores)
	})

	t.Run("unknown indexes ignored", func(t *testing.T) {
		scores, err := parseRelevanceScores(`{"scores": [{"doc_index": 7, "score": 0.1}, {"doc_index": -1, "score": 0.1}]}`, 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{defaultScore}, scores)
	})

	t.Run("fenced and sloppy json", func(t *testing.T) {
		scores, err := parseRelevanceScores("```json\n{\"scores\": [{doc_index\": 0, \"score\": 0.6},]}\n```", 1)
		require.NoError(t, err)
		assert.Equal(t, []float64{0.6}, scores)
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := parseRelevanceScores("I think the first one is best", 2)
		assert.ErrorIs(t, err, ErrMalformedScores)
	})
}

func TestRelevanceScorer_ScoreRelevance(t *testing.T) {
	llm := fake.NewFakeLLM([]string{`{"scores": [{"doc_index": 0, "score": 0.25}, {"doc_index": 1, "score": 0.75}]}`})
	scorer := newRelevanceScorerWithClient(llm, time.Second)

	scores, err := scorer.ScoreRelevance(context.Background(), "redis ttl", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.75}, scores)

	empty, err := scorer.ScoreRelevance(context.Background(), "redis ttl", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCompleter_Complete(t *testing.T) {
	config := ai.DefaultConfig()

	t.Run("returns model reply", func(t *testing.T) {
		llm := fake.NewFakeLLM([]string{`{"sub_queries": []}`})
		completer := newCompleterWithClient(llm, "test-model", config)

		reply, err := completer.Complete(context.Background(), "decompose this", time.Second)
		require.NoError(t, err)
		assert.Equal(t, `{"sub_queries": []}`, reply)
		assert.Equal(t, "test-model", completer.Model())
	})

	t.Run("propagates client errors", func(t *testing.T) {
		llm := fake.NewFakeLLM(nil)
		completer := newCompleterWithClient(llm, "test-model", config)

		_, err := completer.Complete(context.Background(), "decompose this", time.Second)
		assert.Error(t, err)
	})
}

func TestBuildRelevancePrompt(t *testing.T) {
	prompt := buildRelevancePrompt("redis ttl", []string{"Use a TTL on cache keys", "Unrelated\n\ttext"})
	assert.Contains(t, prompt, "redis ttl")
	assert.Contains(t, prompt, "[0] Use a TTL on cache keys")
	assert.Contains(t, prompt, "[1] Unrelated text")
}
