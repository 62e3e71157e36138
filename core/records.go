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
	"strings"
	"time"
)

// RecordTable names the structured table a Record lives in.
type RecordTable string

const (
	TableDecisions RecordTable = "decisions"
	TableLearnings RecordTable = "learnings"
)

// MaturityStatus tracks how well a record has held up over time.
type MaturityStatus string

const (
	StatusConfirmed    MaturityStatus = "confirmed"
	StatusTesting      MaturityStatus = "testing"
	StatusHypothesis   MaturityStatus = "hypothesis"
	StatusDeprecated   MaturityStatus = "deprecated"
	StatusContradicted MaturityStatus = "contradicted"
)

// Record is a row from the structured store: an architectural decision
// or a learning distilled from an error.
type Record struct {
	ID                int64
	Table             RecordTable
	Project           string
	Content           string // decision text or learning solution
	Context           string
	Detail            string // reasoning for decisions, error message for learnings
	ErrorType         string // learnings only
	MaturityStatus    MaturityStatus
	Confidence        float64
	TimesUsed         int
	TimesConfirmed    int
	TimesContradicted int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Document is an embedded chunk of text held by the vector index.
type Document struct {
	Id        ID
	Source    string
	DocType   string
	Project   string
	Content   string
	Vector    []float32
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DocumentID derives a document ID from its source and content.
func DocumentID(source, content string) ID {
	return IDFromContent(source + "\x00" + content)
}

// Entity is a node in the relationship graph. Names are unique
// case-insensitively.
type Entity struct {
	Name        string
	Type        string
	Description string
	Project     string
	Properties  map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Key returns the normalized lookup key for the entity.
func (e *Entity) Key() string {
	return EntityKey(e.Name)
}

// EntityKey normalizes an entity name for lookup.
func EntityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Relation is a directed, weighted edge between two entities.
type Relation struct {
	From      string
	To        string
	Type      string
	Weight    float64
	CreatedAt time.Time
}
