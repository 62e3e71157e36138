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

import (
	"context"
	"strings"
	"sync"
)

// MockScorer is a test double for ai.RelevanceScorer.
// By default it scores each document by the fraction of query words it
// contains.
type MockScorer struct {
	// ScoreFunc is called by ScoreRelevance if set.
	ScoreFunc func(ctx context.Context, query string, documents []string) ([]float64, error)

	mu        sync.Mutex
	callCount int
}

// NewMockScorer creates a scorer with word-overlap behavior.
func NewMockScorer() *MockScorer {
	return &MockScorer{}
}

// ScoreRelevance returns one score per document.
func (m *MockScorer) ScoreRelevance(ctx context.Context, query string, documents []string) ([]float64, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ScoreFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, query, documents)
	}

	words := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(documents))
	if len(words) == 0 {
		return scores, nil
	}
	for i, doc := range documents {
		lower := strings.ToLower(doc)
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(words))
	}
	return scores, nil
}

// CallCount returns the number of times ScoreRelevance was called.
func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom behavior.
func (m *MockScorer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ScoreFunc = nil
}
