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

package core

import (
	"encoding/binary"
	"slices"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived or sequence-allocated identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Metadata keys shared between adapters and the ranker.
const (
	MetaSubQuery       = "sub_query"
	MetaProject        = "project"
	MetaTimesUsed      = "times_used"
	MetaMaturityStatus = "maturity_status"
	MetaConfirmed      = "times_confirmed"
	MetaContradicted   = "times_contradicted"
	MetaTable          = "table"
	MetaDocType        = "doc_type"
	MetaSource         = "source"
	MetaNodeType       = "node_type"
	MetaRelation       = "relation"
)

// SubQueryKind classifies what a sub-query is looking for.
type SubQueryKind string

const (
	KindSemantic   SubQueryKind = "semantic"
	KindEntity     SubQueryKind = "entity"
	KindTemporal   SubQueryKind = "temporal"
	KindRelational SubQueryKind = "relational"
)

// SubQueryKinds lists every valid kind in a stable order.
var SubQueryKinds = []SubQueryKind{KindSemantic, KindEntity, KindTemporal, KindRelational}

// Valid reports whether k is one of the known kinds.
func (k SubQueryKind) Valid() bool {
	return slices.Contains(SubQueryKinds, k)
}

// SubQuery is one independently searchable fragment of a query.
type SubQuery struct {
	Text       string
	Kind       SubQueryKind
	Confidence float64 // [0,1]
	Weight     float64 // >= 0
	Tags       []string
}

// IdentitySubQuery wraps the original query text as its own sole sub-query.
func IdentitySubQuery(text string) SubQuery {
	return SubQuery{
		Text:       text,
		Kind:       KindSemantic,
		Confidence: 1.0,
		Weight:     1.0,
	}
}

// ProviderUsed records which language model provider produced a decomposition.
type ProviderUsed string

const (
	ProviderPrimary   ProviderUsed = "primary"
	ProviderSecondary ProviderUsed = "secondary"
	// ProviderNone marks a failed decomposition, or the identity result of
	// a call with no sub-query budget, which carries the original query as
	// its single sub-query.
	ProviderNone      ProviderUsed = "none"
)

// DecompositionResult is the outcome of one decomposition call.
// Failures are encoded in Error rather than returned.
type DecompositionResult struct {
	OriginalQuery     string
	SubQueries        []SubQuery
	OverallConfidence float64
	ProviderUsed      ProviderUsed
	Model             string
	Reasoning         string
	Elapsed           time.Duration
	Error             string
}

// Failed reports whether both providers failed.
func (r *DecompositionResult) Failed() bool {
	return r.Error != ""
}

// BackendKind identifies a retrieval backend.
type BackendKind string

const (
	BackendStructured BackendKind = "structured"
	BackendVector     BackendKind = "vector"
	BackendGraph      BackendKind = "graph"
)

// BackendKinds lists every known backend in a stable order.
var BackendKinds = []BackendKind{BackendStructured, BackendVector, BackendGraph}

// RawHit is a single backend-specific search result.
type RawHit struct {
	SourceID   string
	Content    string
	Backend    BackendKind
	RawScore   float64
	Metadata   map[string]string
	ProducedAt time.Time
}

// SubQuery returns the text of the sub-query that produced the hit.
func (h *RawHit) SubQuery() string {
	return h.Metadata[MetaSubQuery]
}

// ScoreComponents is the per-factor breakdown of a composite score.
type ScoreComponents struct {
	Specificity      float64
	Recency          float64
	SourceConfidence float64
	Usage            float64
	Validation       float64
	RepeatBoost      float64
	Pairwise         float64 // set only when the reranker scored the item
}

// ConsolidatedResult merges every raw hit sharing a dedup key.
// Backends and SubQueries are kept sorted.
type ConsolidatedResult struct {
	DedupKey       string
	Content        string
	Backends       []BackendKind
	SubQueries     []string
	CompositeScore float64
	Metadata       map[string]string
	Timestamp      time.Time
	Components     ScoreComponents
}

// HasBackend reports whether kind contributed to the result.
func (r *ConsolidatedResult) HasBackend(kind BackendKind) bool {
	return slices.Contains(r.Backends, kind)
}

// RetrieveOptions controls one pipeline run.
type RetrieveOptions struct {
	UseDecomposition bool
	// EnabledBackends names the backends to query. Empty means all.
	EnabledBackends []string
	EnableRerank    bool
}
