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

// Package ai provides abstractions for AI services used by recall.
//
// The package defines the interfaces the retrieval pipeline depends on:
//
//   - Completer: sends a prompt to a chat model (used for query decomposition)
//   - Embedder: generates vector embeddings from text (vector search, indexing)
//   - RelevanceScorer: rates query/document pairs (optional reranking)
//   - AIProvider: aggregates the services above for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external dependencies
//
// Public constructors in ai/openai return interface types. Mock constructors
// return concrete types so tests can inject behavior and assert call counts.
//
// # Usage Example
//
//	config := ai.NewConfig(
//	    ai.WithPrimary("https://openrouter.ai/api/v1", "qwen/qwen-2.5-7b-instruct"),
//	    ai.WithSecondary("http://localhost:11434", "qwen2.5:3b"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	text, err := provider.Primary().Complete(ctx, prompt, config.Timeout)
package ai
