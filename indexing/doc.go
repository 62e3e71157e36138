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

// Package indexing loads content into the stores the retrieval adapters
// search.
//
// The Indexer embeds documents on a worker pool and writes records, graph
// entities and relations to their repositories. The Reindexer re-embeds every
// stored document in batches, which is needed after switching embedding
// models. Embedding calls are retried with exponential backoff.
package indexing
