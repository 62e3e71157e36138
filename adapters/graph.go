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

package adapters

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
)

// Graph matches query terms against entities and follows one hop of
// relations from each match.
//
// A matched entity scores the fraction of query terms it contains. A
// neighbor reached through a relation scores its origin's score times the
// relation weight, capped at 1.
type Graph struct {
	repo          storage.GraphRepository
	neighborLimit int
	logger        *slog.Logger
}

var _ retrieval.Adapter = (*Graph)(nil)

// NewGraph creates an adapter over repo.
func NewGraph(repo storage.GraphRepository, opts ...Option) (*Graph, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Graph{
		repo:          repo,
		neighborLimit: o.neighborLimit,
		logger:        o.logger.With("component", "graph-adapter"),
	}, nil
}

// Kind returns core.BackendGraph.
func (g *Graph) Kind() core.BackendKind {
	return core.BackendGraph
}

// Search returns matched entities and their relations, best first.
func (g *Graph) Search(ctx context.Context, query, scope string, limit int) ([]core.RawHit, error) {
	terms := core.Terms(query)
	if len(terms) == 0 || limit <= 0 {
		return []core.RawHit{}, nil
	}

	matches, err := g.repo.FindEntities(ctx, terms, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("finding entities: %w", err)
	}

	seen := make(map[string]bool)
	hits := make([]core.RawHit, 0, len(matches))
	for _, match := range matches {
		score := float64(match.Matched) / float64(len(terms))
		hit := entityHit(match.Entity, score)
		seen[hit.SourceID] = true
		hits = append(hits, hit)
	}

	if g.neighborLimit > 0 {
		for _, match := range matches {
			origin := float64(match.Matched) / float64(len(terms))
			neighbors, err := g.repo.Neighbors(ctx, match.Entity.Name, g.neighborLimit)
			if err != nil {
				// Expansion is best effort; the direct matches still stand
				g.logger.Warn("neighbor lookup failed", "entity", match.Entity.Name, "err", err)
				continue
			}
			for _, n := range neighbors {
				if scope != "" && n.Entity.Project != "" && n.Entity.Project != scope {
					continue
				}
				hit := relationHit(n, origin)
				if seen[hit.SourceID] {
					continue
				}
				seen[hit.SourceID] = true
				hits = append(hits, hit)
			}
		}
	}

	slices.SortStableFunc(hits, func(a, b core.RawHit) int {
		return cmp.Compare(b.RawScore, a.RawScore)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	g.logger.Debug("graph search", "query", query, "terms", len(terms), "hits", len(hits))
	return hits, nil
}

func entityHit(e *core.Entity, score float64) core.RawHit {
	content := e.Name
	if e.Description != "" {
		content = e.Name + ": " + e.Description
	}
	metadata := map[string]string{core.MetaNodeType: e.Type}
	if e.Project != "" {
		metadata[core.MetaProject] = e.Project
	}
	return core.RawHit{
		SourceID:   "entity:" + e.Key(),
		Content:    content,
		Backend:    core.BackendGraph,
		RawScore:   min(score, 1),
		Metadata:   metadata,
		ProducedAt: lastTouched(e.UpdatedAt, e.CreatedAt),
	}
}

func relationHit(n *storage.Neighbor, origin float64) core.RawHit {
	rel := n.Relation
	content := fmt.Sprintf("%s %s %s", rel.From, rel.Type, rel.To)
	if n.Entity.Description != "" {
		content += ": " + n.Entity.Description
	}
	metadata := map[string]string{
		core.MetaNodeType: n.Entity.Type,
		core.MetaRelation: rel.Type,
		"weight":          strconv.FormatFloat(rel.Weight, 'f', -1, 64),
	}
	if n.Entity.Project != "" {
		metadata[core.MetaProject] = n.Entity.Project
	}
	return core.RawHit{
		SourceID:   fmt.Sprintf("relation:%s>%s>%s", core.EntityKey(rel.From), rel.Type, core.EntityKey(rel.To)),
		Content:    content,
		Backend:    core.BackendGraph,
		RawScore:   min(origin*rel.Weight, 1),
		Metadata:   metadata,
		ProducedAt: lastTouched(rel.CreatedAt, n.Entity.UpdatedAt),
	}
}
