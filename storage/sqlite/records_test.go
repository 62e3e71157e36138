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

package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *RecordRepository {
	t.Helper()
	repo, err := newRecordRepository(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedRecords(t *testing.T, repo *RecordRepository) {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err := repo.AddRecords(context.Background(),
		&core.Record{
			Table: core.TableDecisions, Project: "recall",
			Content: "Use Redis with a one hour TTL for the result cache",
			Detail:  "Shared across instances", Context: "caching",
			MaturityStatus: core.StatusConfirmed, Confidence: 0.9, TimesUsed: 4,
			CreatedAt: base,
		},
		&core.Record{
			Table: core.TableDecisions, Project: "other",
			Content: "Adopt Postgres for billing", Detail: "Needs transactions, not redis",
			Confidence: 0.7, CreatedAt: base.Add(time.Hour),
		},
		&core.Record{
			Table: core.TableLearnings, Project: "recall",
			ErrorType: "ConnectionError", Detail: "redis: connection refused",
			Content: "Retry with backoff when Redis restarts", Context: "cache warmup",
			MaturityStatus: core.StatusTesting, Confidence: 0.6, TimesConfirmed: 2, TimesContradicted: 1,
			CreatedAt: base, UpdatedAt: base.Add(48 * time.Hour),
		},
		&core.Record{
			Table: core.TableLearnings, Project: "recall",
			ErrorType: "TypeError", Detail: "nil map", Content: "Initialize maps before use",
			Confidence: 0.5, CreatedAt: base,
		},
	)
	require.NoError(t, err)
}

func TestAddRecords(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	added, err := repo.AddRecords(ctx,
		&core.Record{Table: core.TableDecisions, Content: "first"},
		&core.Record{Table: core.TableLearnings, Content: "second"},
	)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.NotZero(t, added[0].ID)
	assert.NotZero(t, added[1].ID)
	assert.False(t, added[0].CreatedAt.IsZero())
	assert.Equal(t, added[0].CreatedAt, added[0].UpdatedAt)

	count, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAddRecords_InvalidInsertsNothing(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.AddRecords(ctx,
		&core.Record{Table: core.TableDecisions, Content: "valid"},
		&core.Record{Table: "notes", Content: "invalid table"},
	)
	assert.ErrorIs(t, err, core.ErrInvalidRecord)

	count, err := repo.CountRecords(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearchRecords(t *testing.T) {
	repo := newTestRepository(t)
	seedRecords(t, repo)
	ctx := context.Background()

	t.Run("phrase matches across tables", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "redis", "", 10)
		require.NoError(t, err)
		require.Len(t, records, 3)

		// Decisions first, newest first
		assert.Equal(t, core.TableDecisions, records[0].Table)
		assert.Equal(t, "Adopt Postgres for billing", records[0].Content)
		assert.Equal(t, core.TableDecisions, records[1].Table)
		assert.Equal(t, core.TableLearnings, records[2].Table)
	})

	t.Run("project filter is exact", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "redis", "recall", 10)
		require.NoError(t, err)
		require.Len(t, records, 2)
		for _, rec := range records {
			assert.Equal(t, "recall", rec.Project)
		}
	})

	t.Run("fields round trip", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "backoff", "", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)

		rec := records[0]
		assert.Equal(t, "ConnectionError", rec.ErrorType)
		assert.Equal(t, "redis: connection refused", rec.Detail)
		assert.Equal(t, core.StatusTesting, rec.MaturityStatus)
		assert.Equal(t, 2, rec.TimesConfirmed)
		assert.Equal(t, 1, rec.TimesContradicted)
		assert.InDelta(t, 0.6, rec.Confidence, 1e-9)
		assert.Equal(t, time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC), rec.UpdatedAt)
	})

	t.Run("per table limit rounds up", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "redis", "", 1)
		require.NoError(t, err)
		assert.Len(t, records, 2, "one decision and one learning")
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "%", "", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("no match", func(t *testing.T) {
		records, err := repo.SearchRecords(ctx, "kubernetes", "", 10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		_, err := repo.SearchRecords(ctx, "  ", "", 10)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
		_, err = repo.SearchRecords(ctx, "redis", "", 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}
