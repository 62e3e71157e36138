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

// Package mock provides test doubles for the ai package interfaces.
//
// # Usage
//
//	primary := mock.NewFailingCompleter("primary", errors.New("rate limited"))
//	secondary := mock.NewMockCompleter("secondary", `{"sub_queries": [...]}`)
//	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), primary, secondary, nil)
//
//	// Inject custom behavior
//	embedder := mock.NewMockEmbedder()
//	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{0.1, 0.2, 0.3}, nil
//	}
//
//	// Check call counts
//	count := secondary.CallCount()
//
// # Default Behavior
//
// The mock implementations provide sensible defaults:
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Returns scripted replies in order, repeating the last
//   - MockScorer: Scores documents by query word overlap
//   - MockProvider: Aggregates the above
//
// All mocks are safe for concurrent use.
package mock
