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
	"cmp"
	"slices"
	"strings"

	"github.com/poiesic/recall/core"
)

// DefaultExpandConfidence is the confidence a sub-query needs to be used
// alongside the original query.
const DefaultExpandConfidence = 0.7

// DefaultConfidenceWeight scales sub-query confidence in RankSubQueries.
const DefaultConfidenceWeight = 0.6

// DefaultKindWeights favor semantic sub-queries and discount temporal ones.
var DefaultKindWeights = map[core.SubQueryKind]float64{
	core.KindSemantic:   1.2,
	core.KindEntity:     1.0,
	core.KindRelational: 0.9,
	core.KindTemporal:   0.8,
}

// Expand returns the original query followed by every sub-query with at
// least minConfidence, dropping case-insensitive duplicates. A positive limit
// caps the total. A failed result expands to the original query alone.
func Expand(result *core.DecompositionResult, minConfidence float64, limit int) []core.SubQuery {
	if result == nil {
		return []core.SubQuery{}
	}

	seen := make(map[string]bool)
	expanded := make([]core.SubQuery, 0, len(result.SubQueries)+1)
	add := func(sq core.SubQuery) {
		key := strings.ToLower(strings.TrimSpace(sq.Text))
		if key == "" || seen[key] {
			return
		}
		if limit > 0 && len(expanded) >= limit {
			return
		}
		seen[key] = true
		expanded = append(expanded, sq)
	}

	add(core.IdentitySubQuery(result.OriginalQuery))
	for _, sq := range result.SubQueries {
		if sq.Confidence >= minConfidence {
			add(sq)
		}
	}
	return expanded
}

// RankedSubQuery pairs a sub-query with its priority score.
type RankedSubQuery struct {
	core.SubQuery
	Score float64
}

// RankSubQueries orders sub-queries by
// (confidence*confidenceWeight + weight) * kindWeight, best first.
// A nil kindWeights uses DefaultKindWeights; kinds missing from the map
// weigh 1.0.
func RankSubQueries(result *core.DecompositionResult, confidenceWeight float64, kindWeights map[core.SubQueryKind]float64) []RankedSubQuery {
	if result == nil {
		return []RankedSubQuery{}
	}
	if kindWeights == nil {
		kindWeights = DefaultKindWeights
	}

	ranked := make([]RankedSubQuery, 0, len(result.SubQueries))
	for _, sq := range result.SubQueries {
		kindWeight, ok := kindWeights[sq.Kind]
		if !ok {
			kindWeight = 1.0
		}
		ranked = append(ranked, RankedSubQuery{
			SubQuery: sq,
			Score:    (sq.Confidence*confidenceWeight + sq.Weight) * kindWeight,
		})
	}

	slices.SortStableFunc(ranked, func(a, b RankedSubQuery) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}
