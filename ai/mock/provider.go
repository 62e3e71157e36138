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

package mock

import "github.com/poiesic/recall/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, completer and scorer instances.
type MockProvider struct {
	embedder  *MockEmbedder
	primary   *MockCompleter
	secondary *MockCompleter
	scorer    *MockScorer
}

// NewMockProvider creates a new mock provider with default mock services.
// The primary completer has no replies, so decomposition through it falls
// back to the identity result. There is no secondary and no scorer.
//
// Returns ai.AIProvider interface for consistency with production constructors.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder: NewMockEmbedder(),
		primary:  NewMockCompleter("mock-primary"),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// primary, secondary and scorer may be nil.
func NewMockProviderWithServices(embedder *MockEmbedder, primary, secondary *MockCompleter, scorer *MockScorer) ai.AIProvider {
	return &MockProvider{
		embedder:  embedder,
		primary:   primary,
		secondary: secondary,
		scorer:    scorer,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// Primary returns the mock primary completer, or nil.
func (p *MockProvider) Primary() ai.Completer {
	if p.primary == nil {
		return nil
	}
	return p.primary
}

// Secondary returns the mock secondary completer, or nil.
func (p *MockProvider) Secondary() ai.Completer {
	if p.secondary == nil {
		return nil
	}
	return p.secondary
}

// Scorer returns the mock scorer, or nil.
func (p *MockProvider) Scorer() ai.RelevanceScorer {
	if p.scorer == nil {
		return nil
	}
	return p.scorer
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockPrimary returns the underlying primary completer for test assertions.
func (p *MockProvider) GetMockPrimary() *MockCompleter {
	return p.primary
}
