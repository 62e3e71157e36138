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

// Package adapters implements retrieval.Adapter over the bundled stores.
//
// Structured searches the sqlite record store, Vector runs cosine search over
// badger documents, and Graph matches entities and walks one hop of
// relations. Adapters are read-only and stateless beyond their store
// handles, so one instance can serve concurrent calls.
package adapters
