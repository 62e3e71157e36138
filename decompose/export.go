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
	"encoding/json"
	"io"
	"time"

	"github.com/poiesic/recall/core"
)

type exportedSubQuery struct {
	Query      string   `json:"query"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Weight     float64  `json:"weight"`
	Tags       []string `json:"tags,omitempty"`
}

type exportedResult struct {
	OriginalQuery     string             `json:"original_query"`
	SubQueries        []exportedSubQuery `json:"sub_queries"`
	OverallConfidence float64            `json:"decomposition_confidence"`
	Provider          string             `json:"provider"`
	Model             string             `json:"model,omitempty"`
	Reasoning         string             `json:"reasoning,omitempty"`
	ElapsedMillis     float64            `json:"elapsed_ms"`
	Error             string             `json:"error,omitempty"`
}

// WriteJSONL writes one JSON object per result, one per line.
func WriteJSONL(w io.Writer, results []*core.DecompositionResult) error {
	enc := json.NewEncoder(w)
	for _, r := range results {
		if r == nil {
			continue
		}
		out := exportedResult{
			OriginalQuery:     r.OriginalQuery,
			SubQueries:        make([]exportedSubQuery, len(r.SubQueries)),
			OverallConfidence: r.OverallConfidence,
			Provider:          string(r.ProviderUsed),
			Model:             r.Model,
			Reasoning:         r.Reasoning,
			ElapsedMillis:     float64(r.Elapsed) / float64(time.Millisecond),
			Error:             r.Error,
		}
		for i, sq := range r.SubQueries {
			out.SubQueries[i] = exportedSubQuery{
				Query:      sq.Text,
				Type:       string(sq.Kind),
				Confidence: sq.Confidence,
				Weight:     sq.Weight,
				Tags:       sq.Tags,
			}
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
