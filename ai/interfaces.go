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

package ai

import (
	"context"
	"time"
)

// Embedder generates vector embeddings for text.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer sends a prompt to a language model and returns its raw output.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete returns the model's text response to prompt. The call is
	// abandoned with an error once timeout elapses or ctx is done.
	Complete(ctx context.Context, prompt string, timeout time.Duration) (string, error)

	// Model returns the identifier of the model behind this completer.
	Model() string
}

// RelevanceScorer rates how relevant each document is to a query.
type RelevanceScorer interface {
	// ScoreRelevance returns one score in [0,1] per document, in input order.
	ScoreRelevance(ctx context.Context, query string, documents []string) ([]float64, error)
}

// AIProvider aggregates the AI services used by the pipeline.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Primary returns the first decomposition provider.
	Primary() Completer

	// Secondary returns the fallback decomposition provider, or nil
	// when none is configured.
	Secondary() Completer

	// Scorer returns the reranking relevance scorer, or nil when none
	// is configured.
	Scorer() RelevanceScorer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
