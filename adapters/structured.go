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
	"strconv"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/retrieval"
	"github.com/poiesic/recall/storage"
)

// Structured searches decisions and learnings in the record store.
// Each hit is scored by the record's stored confidence.
type Structured struct {
	repo   storage.RecordRepository
	logger *slog.Logger
}

var _ retrieval.Adapter = (*Structured)(nil)

// NewStructured creates an adapter over repo.
func NewStructured(repo storage.RecordRepository, opts ...Option) (*Structured, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Structured{
		repo:   repo,
		logger: o.logger.With("component", "structured-adapter"),
	}, nil
}

// Kind returns core.BackendStructured.
func (s *Structured) Kind() core.BackendKind {
	return core.BackendStructured
}

// Search returns records containing query, restricted to scope when set.
func (s *Structured) Search(ctx context.Context, query, scope string, limit int) ([]core.RawHit, error) {
	records, err := s.repo.SearchRecords(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}

	hits := make([]core.RawHit, 0, len(records))
	for _, r := range records {
		hits = append(hits, recordHit(r))
	}
	s.logger.Debug("structured search", "query", query, "hits", len(hits))
	return hits, nil
}

func recordHit(r *core.Record) core.RawHit {
	metadata := map[string]string{
		core.MetaTable:        string(r.Table),
		core.MetaTimesUsed:    strconv.Itoa(r.TimesUsed),
		core.MetaConfirmed:    strconv.Itoa(r.TimesConfirmed),
		core.MetaContradicted: strconv.Itoa(r.TimesContradicted),
		"record_id":           strconv.FormatInt(r.ID, 10),
	}
	if r.Project != "" {
		metadata[core.MetaProject] = r.Project
	}
	if r.MaturityStatus != "" {
		metadata[core.MetaMaturityStatus] = string(r.MaturityStatus)
	}
	if r.ErrorType != "" {
		metadata["error_type"] = r.ErrorType
	}

	return core.RawHit{
		SourceID:   fmt.Sprintf("%s:%d", r.Table, r.ID),
		Content:    r.Content,
		Backend:    core.BackendStructured,
		RawScore:   r.Confidence,
		Metadata:   metadata,
		ProducedAt: lastTouched(r.UpdatedAt, r.CreatedAt),
	}
}
