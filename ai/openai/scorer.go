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
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// defaultScore is assigned to documents the model did not rate.
const defaultScore = 0.5

// RelevanceScorer implements ai.RelevanceScorer by asking a chat model to
// rate every document against the query in a single request.
type RelevanceScorer struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

var _ ai.RelevanceScorer = (*RelevanceScorer)(nil)

// relevanceScore is an internal type used for JSON unmarshaling.
type relevanceScore struct {
	DocIndex int     `json:"doc_index"`
	Score    float64 `json:"score"`
}

// relevanceResponse is the wrapper structure for the LLM's JSON response.
type relevanceResponse struct {
	Scores []relevanceScore `json:"scores"`
}

// newRelevanceScorer is an internal constructor that returns the concrete type.
func newRelevanceScorer(config *ai.Config) (*RelevanceScorer, error) {
	if !config.Reranker.Configured() {
		return nil, ErrEndpointNotConfigured
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Reranker.Host),
		openai.WithToken(config.Reranker.Token),
		openai.WithModel(config.Reranker.Model),
	)
	if err != nil {
		return nil, err
	}

	return newRelevanceScorerWithClient(client, config.Timeout), nil
}

func newRelevanceScorerWithClient(client llms.Model, timeout time.Duration) *RelevanceScorer {
	return &RelevanceScorer{
		client:  client,
		timeout: timeout,
		logger:  slog.Default().With("component", "openai-scorer"),
	}
}

// NewRelevanceScorer creates a scorer backed by the configured reranker endpoint.
//
// Returns ai.RelevanceScorer interface to enforce abstraction.
func NewRelevanceScorer(config *ai.Config) (ai.RelevanceScorer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newRelevanceScorer(config)
}

// ScoreRelevance rates each document against query. Documents the model
// skips get a neutral score; scores are clamped to [0,1].
func (s *RelevanceScorer) ScoreRelevance(ctx context.Context, query string, documents []string) ([]float64, error) {
	if len(documents) == 0 {
		return []float64{}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, relevanceSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, buildRelevancePrompt(query, documents)),
	}

	response, err := s.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		s.logger.Warn("relevance request failed", "documents", len(documents), "err", err)
		return nil, err
	}
	if len(response.Choices) < 1 {
		return nil, ErrEmptyResponse
	}

	return parseRelevanceScores(response.Choices[0].Content, len(documents))
}

// parseRelevanceScores decodes the model's reply into one score per document.
func parseRelevanceScores(text string, count int) ([]float64, error) {
	// Try to repair common JSON issues
	text = repairJSON(stripCodeFences(text))

	var parsed relevanceResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedScores, err)
	}

	scores := make([]float64, count)
	for i := range scores {
		scores[i] = defaultScore
	}
	for _, s := range parsed.Scores {
		if s.DocIndex < 0 || s.DocIndex >= count {
			continue
		}
		scores[s.DocIndex] = min(max(s.Score, 0), 1)
	}
	return scores, nil
}
