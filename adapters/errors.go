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

package adapters

import "errors"

var (
	// ErrRepositoryRequired indicates an adapter was built without its store.
	ErrRepositoryRequired = errors.New("repository is required")

	// ErrEmbedderRequired indicates the vector adapter has no embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidSimilarity indicates a minimum similarity outside [0,1].
	ErrInvalidSimilarity = errors.New("minimum similarity must be within [0,1]")

	// ErrInvalidNeighborLimit indicates a negative neighbor limit.
	ErrInvalidNeighborLimit = errors.New("neighbor limit cannot be negative")
)
