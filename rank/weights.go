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
	"fmt"
	"math"
)

// weightTolerance absorbs float rounding when checking that weights sum to 1.
const weightTolerance = 1e-6

// Weights are the coefficients of the composite score. They must be
// non-negative and sum to 1.
type Weights struct {
	Specificity      float64
	Recency          float64
	SourceConfidence float64
	Usage            float64
	Validation       float64
}

// DefaultWeights returns the standard factor weights.
func DefaultWeights() Weights {
	return Weights{
		Specificity:      0.25,
		Recency:          0.20,
		SourceConfidence: 0.25,
		Usage:            0.15,
		Validation:       0.15,
	}
}

// Validate checks the weights form a convex combination.
func (w Weights) Validate() error {
	sum := 0.0
	for _, v := range []float64{w.Specificity, w.Recency, w.SourceConfidence, w.Usage, w.Validation} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: negative weight %v", ErrInvalidWeights, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidWeights, sum)
	}
	return nil
}
