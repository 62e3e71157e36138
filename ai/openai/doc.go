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

// Package openai implements ai.AIProvider on top of langchaingo's OpenAI
// client, which speaks to any OpenAI-compatible server (OpenRouter, Ollama,
// vLLM, LocalAI).
//
// The provider bundles:
//   - Embedder for query and document vectors.
//   - Completer for the primary and secondary decomposition models. Replies
//     are requested in JSON mode and bounded by a per-call timeout.
//   - RelevanceScorer, which asks a chat model for one 0..1 score per
//     candidate and repairs slightly malformed JSON before parsing.
//
// Endpoints left unconfigured are reported as nil by the provider so callers
// can fall back.
//
//	config := ai.NewConfig(
//	    ai.WithPrimary("https://openrouter.ai/api/v1", "qwen/qwen-2.5-7b-instruct"),
//	    ai.WithSecondary("http://localhost:11434", "qwen2.5:3b"), // /v1 added automatically
//	    ai.WithReranker("http://localhost:11434", "qwen2.5:7b"),
//	)
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	reply, err := provider.Primary().Complete(ctx, prompt, config.Timeout)
//	scores, err := provider.Scorer().ScoreRelevance(ctx, "redis ttl", docs)
package openai
