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

// Package decompose splits natural-language queries into typed, weighted
// sub-queries using a primary language model with a secondary fallback.
//
// Decompose never returns an error. A reply that is not valid JSON gets one
// bounded extraction pass; a reply that parses but breaks the schema counts
// as a provider failure and moves on to the next provider. When both fail
// the result carries Error and no sub-queries.
//
// # Usage
//
//	d, err := decompose.NewFromProvider(provider, decompose.WithTimeout(10*time.Second))
//	if err != nil {
//	    return err
//	}
//	result := d.Decompose(ctx, "why did we choose redis for caching", 5)
//	subQueries := decompose.Expand(result, decompose.DefaultExpandConfidence, 0)
//
// CachedDecomposer memoizes successful decompositions, and Analyze and
// WriteJSONL summarize or export a batch of results.
package decompose
