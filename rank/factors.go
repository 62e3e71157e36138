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
	"strconv"
	"time"

	"github.com/poiesic/recall/core"
)

// Specificity scores.
const (
	scopeMatch    = 1.0
	scopeGeneral  = 0.5
	scopeMismatch = 0.3
)

// recencyBands maps maximum age to score, checked in order.
var recencyBands = []struct {
	maxAge time.Duration
	score  float64
}{
	{7 * 24 * time.Hour, 1.0},
	{30 * 24 * time.Hour, 0.8},
	{90 * 24 * time.Hour, 0.6},
	{180 * 24 * time.Hour, 0.4},
}

const (
	recencyFloor   = 0.2
	recencyUnknown = 0.5
)

// usageSaturation is the use count at which the usage factor reaches 1.
const usageSaturation = 10.0

// unvalidated is the validation score of items with no validation signal.
const unvalidated = 0.4

var statusScores = map[core.MaturityStatus]float64{
	core.StatusConfirmed:    1.0,
	core.StatusTesting:      0.6,
	core.StatusHypothesis:   0.4,
	core.StatusDeprecated:   0.2,
	core.StatusContradicted: 0.0,
}

// specificityScore favours items from the query's project. Items without a
// project are general knowledge. A project-scoped item scores as a mismatch
// when the query names another project or none.
func specificityScore(itemScope, queryScope string) float64 {
	switch {
	case itemScope == "":
		return scopeGeneral
	case itemScope == queryScope:
		return scopeMatch
	default:
		return scopeMismatch
	}
}

func recencyScore(ts, now time.Time) float64 {
	if ts.IsZero() {
		return recencyUnknown
	}
	age := now.Sub(ts)
	for _, band := range recencyBands {
		if age <= band.maxAge {
			return band.score
		}
	}
	return recencyFloor
}

func usageScore(metadata map[string]string) float64 {
	used, ok := intMeta(metadata, core.MetaTimesUsed)
	if !ok || used <= 0 {
		return 0
	}
	return min(float64(used)/usageSaturation, 1)
}

// validationScore prefers the maturity status; without one it falls back
// to the confirmed/contradicted ratio, and without either to unvalidated.
func validationScore(metadata map[string]string) float64 {
	if status, ok := metadata[core.MetaMaturityStatus]; ok {
		if score, known := statusScores[core.MaturityStatus(status)]; known {
			return score
		}
	}

	confirmed, _ := intMeta(metadata, core.MetaConfirmed)
	contradicted, _ := intMeta(metadata, core.MetaContradicted)
	if confirmed <= 0 && contradicted <= 0 {
		return unvalidated
	}
	confirmed, contradicted = max(confirmed, 0), max(contradicted, 0)
	return float64(confirmed) / float64(confirmed+contradicted+1)
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

func intMeta(metadata map[string]string, key string) (int, bool) {
	raw, ok := metadata[key]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
