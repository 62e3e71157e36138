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

package badger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// GraphRepository implements storage.GraphRepository using BadgerDB.
// Every relation is indexed twice, once under each endpoint, so a
// neighborhood is two prefix scans.
type GraphRepository struct {
	backend *Backend
}

var _ storage.GraphRepository = (*GraphRepository)(nil)

// NewGraphRepository creates a new GraphRepository.
func NewGraphRepository(backend *Backend) (storage.GraphRepository, error) {
	return newGraphRepository(backend), nil
}

func newGraphRepository(backend *Backend) *GraphRepository {
	return &GraphRepository{backend: backend}
}

// Close releases resources. GraphRepository has no resources to release.
func (r *GraphRepository) Close() error {
	return nil
}

// UpsertEntities stores entities keyed by normalized name.
func (r *GraphRepository) UpsertEntities(ctx context.Context, entities ...*core.Entity) error {
	for _, entity := range entities {
		if err := core.ValidateEntity(entity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			key := makeEntityKey(entity.Name)
			old, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			switch {
			case old != nil:
				entity.CreatedAt = old.CreatedAt
			case entity.CreatedAt.IsZero():
				entity.CreatedAt = now
			}
			entity.UpdatedAt = now

			if err := tx.Set(key, storage.MarshalEntity(entity)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// AddRelations stores directed edges under both endpoints.
func (r *GraphRepository) AddRelations(ctx context.Context, relations ...*core.Relation) error {
	for _, rel := range relations {
		if err := core.ValidateRelation(rel); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, rel := range relations {
			for _, name := range []string{rel.From, rel.To} {
				if _, err := tx.Get(makeEntityKey(name)); err != nil {
					if err == badger.ErrKeyNotFound {
						return fmt.Errorf("%w: entity %q", storage.ErrNotFound, name)
					}
					return err
				}
			}
			if rel.CreatedAt.IsZero() {
				rel.CreatedAt = now
			}

			value := storage.MarshalRelation(rel)
			out, in := makeRelationKeys(rel)
			if err := tx.Set(out, value); err != nil {
				return err
			}
			if err := tx.Set(in, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetEntity retrieves an entity by name, case-insensitively.
func (r *GraphRepository) GetEntity(ctx context.Context, name string) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, makeEntityKey(name))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindEntities scans all entities and counts how many terms each contains.
func (r *GraphRepository) FindEntities(ctx context.Context, terms []string, project string, limit int) ([]*storage.EntityMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	var matches []*storage.EntityMatch
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(ctx, tx, []byte(entityPrefix), func(_, val []byte) error {
			entity, err := storage.UnmarshalEntity(val)
			if err != nil {
				return err
			}
			if project != "" && entity.Project != "" && entity.Project != project {
				return nil
			}

			haystack := strings.ToLower(entity.Name + " " + entity.Type + " " + entity.Description)
			matched := 0
			for _, term := range terms {
				if strings.Contains(haystack, strings.ToLower(term)) {
					matched++
				}
			}
			if matched > 0 {
				matches = append(matches, &storage.EntityMatch{Entity: entity, Matched: matched})
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b *storage.EntityMatch) int {
		if c := cmp.Compare(b.Matched, a.Matched); c != 0 {
			return c
		}
		return cmp.Compare(a.Entity.Key(), b.Entity.Key())
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Neighbors returns entities one hop from name, strongest relation first.
func (r *GraphRepository) Neighbors(ctx context.Context, name string, limit int) ([]*storage.Neighbor, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var neighbors []*storage.Neighbor
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, dir := range []struct {
			prefix   string
			outgoing bool
		}{
			{relationOutPrefix, true},
			{relationInPrefix, false},
		} {
			err := scanPrefix(ctx, tx, makePartialRelationKey(dir.prefix, name), func(_, val []byte) error {
				rel, err := storage.UnmarshalRelation(val)
				if err != nil {
					return err
				}
				other := rel.To
				if !dir.outgoing {
					other = rel.From
				}
				entity, err := readEntity(tx, makeEntityKey(other))
				if err != nil {
					return err
				}
				if entity == nil {
					// Dangling edge; the entity was removed out of band
					return nil
				}
				neighbors = append(neighbors, &storage.Neighbor{Entity: entity, Relation: rel, Outgoing: dir.outgoing})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(neighbors, func(a, b *storage.Neighbor) int {
		if c := cmp.Compare(b.Relation.Weight, a.Relation.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.Entity.Key(), b.Entity.Key())
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// readEntity reads an entity from the transaction.
// Returns nil, nil if the entity doesn't exist.
func readEntity(tx *badger.Txn, key []byte) (*core.Entity, error) {
	val, err := getValue(tx, key)
	if err != nil || val == nil {
		return nil, err
	}
	return storage.UnmarshalEntity(val)
}
