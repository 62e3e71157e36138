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
	"fmt"
	"strings"
)

// MaxQueryLength is the longest query, in runes, passed to a language model.
const MaxQueryLength = 500

// SanitizeQuery trims the query, collapses internal whitespace and control
// characters to single spaces, and caps the result at MaxQueryLength runes.
func SanitizeQuery(query string) string {
	query = strings.Join(strings.Fields(query), " ")
	runes := []rune(query)
	if len(runes) > MaxQueryLength {
		query = strings.TrimSpace(string(runes[:MaxQueryLength]))
	}
	return query
}

// ValidateRetrieve checks pipeline input and resolves backend names.
//
// Validation rules:
//   - query must contain non-whitespace text
//   - limit must be positive
//   - every backend name must be known (case-insensitive)
//
// An empty backends slice resolves to nil, meaning all backends.
func ValidateRetrieve(query string, limit int, backends []string) ([]BackendKind, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrEmptyQuery)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %w: %d", ErrInvalidArgument, ErrInvalidLimit, limit)
	}
	if len(backends) == 0 {
		return nil, nil
	}
	kinds := make([]BackendKind, 0, len(backends))
	for _, name := range backends {
		kind, err := ParseBackendKind(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// ParseBackendKind maps a backend name to its kind.
func ParseBackendKind(name string) (BackendKind, error) {
	kind := BackendKind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range BackendKinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}

// ValidateRecord validates a structured Record.
//
// Validation rules:
//   - Table must be decisions or learnings
//   - Content must not be empty
//   - Confidence must be within [0,1]
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	if record.Table != TableDecisions && record.Table != TableLearnings {
		return fmt.Errorf("%w: unknown table %q", ErrInvalidRecord, record.Table)
	}
	if strings.TrimSpace(record.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyContent)
	}
	if record.Confidence < 0 || record.Confidence > 1 {
		return fmt.Errorf("%w: confidence %f out of range", ErrInvalidRecord, record.Confidence)
	}
	return nil
}

// ValidateDocument validates a Document.
//
// Vector is not validated; documents may be stored before they are embedded.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyContent)
	}
	return nil
}

// ValidateEntity validates a graph Entity.
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntity)
	}
	if entity.Key() == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidEntity)
	}
	if entity.Type == "" {
		return fmt.Errorf("%w: type cannot be empty", ErrInvalidEntity)
	}
	return nil
}

// ValidateRelation validates a graph Relation.
func ValidateRelation(rel *Relation) error {
	if rel == nil {
		return fmt.Errorf("%w: relation is nil", ErrInvalidRelation)
	}
	if EntityKey(rel.From) == "" || EntityKey(rel.To) == "" {
		return fmt.Errorf("%w: endpoints cannot be empty", ErrInvalidRelation)
	}
	if rel.Type == "" {
		return fmt.Errorf("%w: type cannot be empty", ErrInvalidRelation)
	}
	if rel.Weight < 0 {
		return fmt.Errorf("%w: negative weight", ErrInvalidRelation)
	}
	return nil
}
