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

package decompose

import (
	"time"

	"github.com/poiesic/recall/core"
)

// Stats summarizes a set of decompositions.
type Stats struct {
	Total           int
	Errors          int
	ErrorRate       float64 // [0,1]
	TotalSubQueries int
	AvgSubQueries   float64
	AvgConfidence   float64
	AvgElapsed      time.Duration
	ByProvider      map[core.ProviderUsed]int
	ByKind          map[core.SubQueryKind]int
}

// Analyze aggregates results. Averages are taken over every result,
// failed ones included.
func Analyze(results []*core.DecompositionResult) Stats {
	stats := Stats{
		ByProvider: make(map[core.ProviderUsed]int),
		ByKind:     make(map[core.SubQueryKind]int),
	}

	var confidence float64
	var elapsed time.Duration
	for _, r := range results {
		if r == nil {
			continue
		}
		stats.Total++
		if r.Failed() {
			stats.Errors++
		}
		stats.ByProvider[r.ProviderUsed]++
		stats.TotalSubQueries += len(r.SubQueries)
		for _, sq := range r.SubQueries {
			stats.ByKind[sq.Kind]++
		}
		confidence += r.OverallConfidence
		elapsed += r.Elapsed
	}

	if stats.Total == 0 {
		return stats
	}
	n := float64(stats.Total)
	stats.ErrorRate = float64(stats.Errors) / n
	stats.AvgSubQueries = float64(stats.TotalSubQueries) / n
	stats.AvgConfidence = confidence / n
	stats.AvgElapsed = elapsed / time.Duration(stats.Total)
	return stats
}
