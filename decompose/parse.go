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
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/recall/core"
)

// MaxExtractBytes bounds the JSON span pulled out of a chatty reply.
const MaxExtractBytes = 64 << 10

// Defaults for fields a model may omit.
const (
	defaultKind       = core.KindSemantic
	defaultConfidence = 0.5
	defaultWeight     = 1.0
)

type payload struct {
	SubQueries []rawSubQuery `json:"sub_queries"`
	Confidence *float64      `json:"decomposition_confidence"`
	Reasoning  string        `json:"reasoning"`
}

type rawSubQuery struct {
	Query      string   `json:"query"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
	Weight     *float64 `json:"weight"`
	Tags       []string `json:"tags"`
}

// parsePayload decodes a model reply. A direct parse is tried first, then a
// single extraction of the outermost {...} span after stripping code fences.
func parsePayload(reply string) (*payload, error) {
	var p payload
	direct := json.Unmarshal([]byte(reply), &p)
	if direct == nil {
		return &p, nil
	}

	span, err := extractObject(reply)
	if err != nil {
		return nil, err
	}
	p = payload{}
	if err := json.Unmarshal([]byte(span), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return &p, nil
}

// extractObject returns the outermost brace-delimited span of text.
func extractObject(text string) (string, error) {
	text = stripCodeFences(text)
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedPayload)
	}
	if end-start+1 > MaxExtractBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, end-start+1)
	}
	return text[start : end+1], nil
}

// stripCodeFences removes a surrounding markdown fence such as ```json ... ```.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// validate converts a payload into sub-queries, applying defaults and
// rejecting anything outside the schema.
func (p *payload) validate() ([]core.SubQuery, error) {
	if len(p.SubQueries) == 0 {
		return nil, ErrNoSubQueries
	}

	subQueries := make([]core.SubQuery, 0, len(p.SubQueries))
	for i, raw := range p.SubQueries {
		text := strings.TrimSpace(raw.Query)
		if text == "" {
			return nil, fmt.Errorf("%w: sub-query %d has empty query", ErrInvalidSubQuery, i)
		}

		kind := defaultKind
		if raw.Type != "" {
			kind = core.SubQueryKind(strings.ToLower(strings.TrimSpace(raw.Type)))
			if !kind.Valid() {
				return nil, fmt.Errorf("%w: sub-query %d has unknown type %q", ErrInvalidSubQuery, i, raw.Type)
			}
		}

		confidence := defaultConfidence
		if raw.Confidence != nil {
			confidence = *raw.Confidence
			if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
				return nil, fmt.Errorf("%w: sub-query %d confidence %v out of range", ErrInvalidSubQuery, i, confidence)
			}
		}

		weight := defaultWeight
		if raw.Weight != nil {
			weight = *raw.Weight
			if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
				return nil, fmt.Errorf("%w: sub-query %d weight %v invalid", ErrInvalidSubQuery, i, weight)
			}
		}

		subQueries = append(subQueries, core.SubQuery{
			Text:       text,
			Kind:       kind,
			Confidence: confidence,
			Weight:     weight,
			Tags:       append([]string(nil), raw.Tags...),
		})
	}
	return subQueries, nil
}

// overallConfidence returns the payload's own confidence when it is a valid
// probability, else the mean confidence of subQueries.
func (p *payload) overallConfidence(subQueries []core.SubQuery) float64 {
	if p.Confidence != nil {
		c := *p.Confidence
		if !math.IsNaN(c) && c >= 0 && c <= 1 {
			return c
		}
	}
	if len(subQueries) == 0 {
		return 0
	}
	var sum float64
	for _, sq := range subQueries {
		sum += sq.Confidence
	}
	return sum / float64(len(subQueries))
}
