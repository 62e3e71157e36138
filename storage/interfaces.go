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

package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// Repository is the base interface for all repository types.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// ScoredDocument pairs a document with its similarity to a query vector.
type ScoredDocument struct {
	Document *core.Document
	Score    float32
}

// DocumentRepository stores embedded documents for vector search.
type DocumentRepository interface {
	Repository

	// AddDocuments stores documents, replacing any with the same ID.
	// Documents with ID=0 get a content-derived ID.
	// Sets CreatedAt if not already set and always refreshes UpdatedAt.
	AddDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error)

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.ID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.ID) ([]*core.Document, error)

	// DeleteDocuments removes documents by their IDs.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, ids ...core.ID) error

	// UpdateVectors replaces the embedding of each listed document.
	// Returns ErrNotFound if any document doesn't exist.
	UpdateVectors(ctx context.Context, vectors map[core.ID][]float32) error

	// ListDocumentIDs returns every stored document ID in key order.
	ListDocumentIDs(ctx context.Context) ([]core.ID, error)

	// FindSimilar returns documents whose cosine similarity to vector is at
	// least minSimilarity, best first. A non-empty project restricts the
	// search to that project.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, project string, limit int) ([]*ScoredDocument, error)
}

// EntityMatch is an entity found by term search, with the number of
// distinct terms it matched.
type EntityMatch struct {
	Entity  *core.Entity
	Matched int
}

// Neighbor is an entity one hop away from another, with the connecting edge.
type Neighbor struct {
	Entity   *core.Entity
	Relation *core.Relation
	// Outgoing is true when the relation points away from the origin entity.
	Outgoing bool
}

// GraphRepository stores entities and the relations between them.
type GraphRepository interface {
	Repository

	// UpsertEntities stores entities keyed by normalized name.
	// Existing entities keep their CreatedAt.
	UpsertEntities(ctx context.Context, entities ...*core.Entity) error

	// AddRelations stores directed edges. Both endpoints must exist.
	// Returns ErrNotFound if an endpoint is missing.
	AddRelations(ctx context.Context, relations ...*core.Relation) error

	// GetEntity retrieves an entity by name, case-insensitively.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, name string) (*core.Entity, error)

	// FindEntities returns entities whose name, type or description contain
	// any of terms, ordered by matched term count then name.
	// A non-empty project restricts the search to that project.
	FindEntities(ctx context.Context, terms []string, project string, limit int) ([]*EntityMatch, error)

	// Neighbors returns entities connected to name by a relation in either
	// direction, strongest relation first.
	Neighbors(ctx context.Context, name string, limit int) ([]*Neighbor, error)
}

// RecordRepository stores decisions and learnings.
type RecordRepository interface {
	Repository

	// AddRecords inserts records and returns them with IDs populated.
	// Sets CreatedAt and UpdatedAt if not already set.
	AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error)

	// SearchRecords returns records whose text fields contain query as a
	// phrase. A non-empty project restricts matches to that project. Each
	// table contributes at most half of limit, rounded up.
	SearchRecords(ctx context.Context, query, project string, limit int) ([]*core.Record, error)

	// CountRecords returns the number of stored records.
	CountRecords(ctx context.Context) (int, error)
}
