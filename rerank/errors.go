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

package rerank

import "errors"

var (
	// ErrInvalidCandidates indicates a non-positive candidate count.
	ErrInvalidCandidates = errors.New("candidate count must be positive")

	// ErrInvalidBlend indicates a composite weight outside [0,1].
	ErrInvalidBlend = errors.New("composite weight must be within [0,1]")

	// ErrScoreCountMismatch indicates the scorer returned the wrong number of scores.
	ErrScoreCountMismatch = errors.New("relevance score count mismatch")
)
