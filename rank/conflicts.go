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

package rank

import (
	"math"

	"github.com/poiesic/recall/core"
)

// DefaultConflictThreshold is the score gap below which adjacent results
// are reported as ambiguous.
const DefaultConflictThreshold = 0.10

// Conflict is a pair of adjacent results whose scores are too close to
// call. Higher precedes Lower in the ranked list.
type Conflict struct {
	Higher core.ConsolidatedResult
	Lower  core.ConsolidatedResult
	Gap    float64
}

// DetectConflicts reports every adjacent pair in ranked whose composite
// scores differ by less than threshold.
func DetectConflicts(ranked []core.ConsolidatedResult, threshold float64) []Conflict {
	var conflicts []Conflict
	for i := 0; i+1 < len(ranked); i++ {
		gap := math.Abs(ranked[i].CompositeScore - ranked[i+1].CompositeScore)
		if gap < threshold {
			conflicts = append(conflicts, Conflict{Higher: ranked[i], Lower: ranked[i+1], Gap: gap})
		}
	}
	return conflicts
}
