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

// Package rerank optionally refines a ranked list with a pairwise relevance
// model.
//
// Reranking only runs when the list is longer than a threshold. The top
// candidates are scored against the query in a single scorer call and
// their composite scores become 0.7*composite + 0.3*pairwise. Reranking is
// an enhancement: with no scorer, or when the scorer fails, the input is
// returned as is.
package rerank
