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
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
)

// Vector embeds the query and returns the most similar stored documents.
type Vector struct {
	repo          storage.DocumentRepository
	embedder      ai.Embedder
	minSimilarity float32
	logger        *slog.Logger
}

var _ retrieval.Adapter = (*Vector)(nil)

// NewVector creates an adapter over repo using embedder for queries.
func NewVector(repo storage.DocumentRepository, embedder ai.Embedder, opts ...Option) (*Vector, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Vector{
		repo:          repo,
		embedder:      embedder,
		minSimilarity: o.minSimilarity,
		logger:        o.logger.With("component", "vector-adapter"),
	}, nil
}

// Kind returns core.BackendVector.
func (v *Vector) Kind() core.BackendKind {
	return core.BackendVector
}

// Search returns documents whose similarity to query clears the floor.
func (v *Vector) Search(ctx context.Context, query, scope string, limit int) ([]core.RawHit, error) {
	vector, err := v.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := v.repo.FindSimilar(ctx, vector, v.minSimilarity, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("finding similar documents: %w", err)
	}

	hits := make([]core.RawHit, 0, len(matches))
	for _, match := range matches {
		hits = append(hits, documentHit(match))
	}
	v.logger.Debug("vector search", "query", query, "hits", len(hits))
	return hits, nil
}

func documentHit(match *storage.ScoredDocument) core.RawHit {
	doc := match.Document
	metadata := make(map[string]string, len(doc.Metadata)+3)
	maps.Copy(metadata, doc.Metadata)
	if doc.Source != "" {
		metadata[core.MetaSource] = doc.Source
	}
	if doc.DocType != "" {
		metadata[core.MetaDocType] = doc.DocType
	}
	if doc.Project != "" {
		metadata[core.MetaProject] = doc.Project
	}

	return core.RawHit{
		SourceID:   strconv.FormatUint(uint64(doc.Id), 16),
		Content:    doc.Content,
		Backend:    core.BackendVector,
		RawScore:   float64(match.Score),
		Metadata:   metadata,
		ProducedAt: lastTouched(doc.UpdatedAt, doc.CreatedAt),
	}
}
