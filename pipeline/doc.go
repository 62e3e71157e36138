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

// Package pipeline runs decomposed ensemble retrieval end to end.
//
// A Pipeline validates the request, consults an optional result cache,
// decomposes the query when asked, fans the sub-queries out across the
// registered backend adapters, consolidates the raw hits into a ranked list
// and optionally reranks the head of that list.
//
// Retrieve only fails on invalid arguments. Provider failures fall back to
// the original query, backend failures shrink the result set, and
// cancellation returns whatever was consolidated so far.
package pipeline
