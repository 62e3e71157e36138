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
	"log/slog"

	"github.com/poiesic/recall/ai"
)

// Provider implements ai.AIProvider using OpenAI-compatible services.
// It manages the embedder, the decomposition completers and the optional
// relevance scorer.
type Provider struct {
	config    *ai.Config
	embedder  *Embedder
	primary   *Completer
	secondary *Completer
	scorer    *RelevanceScorer
	logger    *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use. The secondary
// completer and the scorer are only created when their endpoints are
// configured.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	primary, err := newCompleter(config.Primary, config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		config:   config,
		embedder: embedder,
		primary:  primary,
		logger:   slog.Default().With("component", "openai-provider"),
	}

	if config.Secondary.Configured() {
		if p.secondary, err = newCompleter(config.Secondary, config); err != nil {
			return nil, err
		}
	}

	if config.Reranker.Configured() {
		if p.scorer, err = newRelevanceScorer(config); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Primary returns the primary decomposition completer.
func (p *Provider) Primary() ai.Completer {
	return p.primary
}

// Secondary returns the fallback completer, or nil.
func (p *Provider) Secondary() ai.Completer {
	if p.secondary == nil {
		return nil
	}
	return p.secondary
}

// Scorer returns the relevance scorer, or nil.
func (p *Provider) Scorer() ai.RelevanceScorer {
	if p.scorer == nil {
		return nil
	}
	return p.scorer
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
