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

package indexing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stores struct {
	documents storage.DocumentRepository
	graph     storage.GraphRepository
	records   storage.RecordRepository
}

func newStores(t *testing.T) *stores {
	t.Helper()
	docs, graph, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	records, err := sqlite.NewRecordRepository(context.Background(), filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })

	return &stores{documents: docs, graph: graph, records: records}
}

func newTestIndexer(t *testing.T, s *stores, embedder *mock.MockEmbedder, opts ...Option) *Indexer {
	t.Helper()
	opts = append([]Option{WithRetry(3, time.Millisecond)}, opts...)
	ix, err := NewIndexer(s.documents, s.records, s.graph, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(ix.Release)
	return ix
}

func TestNewIndexer(t *testing.T) {
	s := newStores(t)
	embedder := mock.NewMockEmbedder()

	t.Run("valid configuration", func(t *testing.T) {
		ix, err := NewIndexer(s.documents, s.records, s.graph, embedder, WithPoolSize(2), WithBatchSize(8), WithLogger(nil))
		require.NoError(t, err)
		defer ix.Release()
		assert.Equal(t, 8, ix.batchSize)
	})

	t.Run("missing dependencies", func(t *testing.T) {
		_, err := NewIndexer(nil, s.records, s.graph, embedder)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
		_, err = NewIndexer(s.documents, nil, s.graph, embedder)
		assert.Equal(t, ErrRecordRepositoryRequired, err)
		_, err = NewIndexer(s.documents, s.records, nil, embedder)
		assert.Equal(t, ErrGraphRepositoryRequired, err)
		_, err = NewIndexer(s.documents, s.records, s.graph, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid retry", func(t *testing.T) {
		_, err := NewIndexer(s.documents, s.records, s.graph, embedder, WithRetry(0, time.Second))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})
}

func TestIndexDocuments(t *testing.T) {
	s := newStores(t)
	embedder := mock.NewMockEmbedder()
	embedder.Dimensions = 16
	ix := newTestIndexer(t, s, embedder, WithBatchSize(2), WithPoolSize(3))
	ctx := context.Background()

	var docs []*core.Document
	for i := range 5 {
		docs = append(docs, &core.Document{Source: "notes.md", Project: "recall", Content: fmt.Sprintf("note %d about redis", i)})
	}
	preset := &core.Document{Source: "notes.md", Content: "already embedded", Vector: []float32{1, 0, 0}}
	docs = append(docs, preset)

	stored, err := ix.IndexDocuments(ctx, docs...)
	require.NoError(t, err)
	require.Len(t, stored, 6)
	for i, doc := range stored {
		assert.Same(t, docs[i], doc, "input order is kept")
	}
	assert.Equal(t, 3, embedder.CallCount(), "one embedding call per batch")

	got, err := s.documents.GetDocument(ctx, docs[0].Id)
	require.NoError(t, err)
	assert.Len(t, got.Vector, 16)

	got, err = s.documents.GetDocument(ctx, preset.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, got.Vector, "existing vectors are not re-embedded")
}

func TestIndexDocuments_Validation(t *testing.T) {
	s := newStores(t)
	embedder := mock.NewMockEmbedder()
	ix := newTestIndexer(t, s, embedder)

	stored, err := ix.IndexDocuments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = ix.IndexDocuments(context.Background(), &core.Document{Content: "ok"}, &core.Document{Content: "  "})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
	assert.Zero(t, embedder.CallCount())
}

func TestIndexDocuments_RetriesEmbedding(t *testing.T) {
	s := newStores(t)
	embedder := mock.NewMockEmbedder()
	var calls atomic.Int32
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("503 service unavailable")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.DeterministicVector(text, 8)
		}
		return out, nil
	}
	ix := newTestIndexer(t, s, embedder)

	stored, err := ix.IndexDocuments(context.Background(), &core.Document{Content: "redis ttl"})
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIndexDocuments_Failures(t *testing.T) {
	s := newStores(t)

	t.Run("embedder keeps failing", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("connection refused")
		}
		ix := newTestIndexer(t, s, embedder)

		stored, err := ix.IndexDocuments(context.Background(), &core.Document{Content: "redis ttl"})
		assert.Error(t, err)
		assert.Empty(t, stored)
		assert.Equal(t, 3, embedder.CallCount())
	})

	t.Run("wrong vector count", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		}
		ix := newTestIndexer(t, s, embedder)

		_, err := ix.IndexDocuments(context.Background(), &core.Document{Content: "a"}, &core.Document{Content: "b"})
		assert.ErrorIs(t, err, ErrEmbeddingMismatch)
	})

	t.Run("one failing batch keeps the others", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			if strings.Contains(texts[0], "poison") {
				return nil, errors.New("bad input")
			}
			return [][]float32{mock.DeterministicVector(texts[0], 8)}, nil
		}
		ix := newTestIndexer(t, s, embedder, WithBatchSize(1))

		stored, err := ix.IndexDocuments(context.Background(),
			&core.Document{Content: "fine"}, &core.Document{Content: "poison"}, &core.Document{Content: "also fine"})
		assert.Error(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, "fine", stored[0].Content)
		assert.Equal(t, "also fine", stored[1].Content)
	})
}

func TestIndexRecordsAndGraph(t *testing.T) {
	s := newStores(t)
	ix := newTestIndexer(t, s, mock.NewMockEmbedder())
	ctx := context.Background()

	added, err := ix.IndexRecords(ctx, &core.Record{Table: core.TableDecisions, Project: "recall", Content: "Use Redis", Confidence: 0.8})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotZero(t, added[0].ID)

	err = ix.IndexGraph(ctx,
		[]*core.Entity{{Name: "Redis", Type: "technology"}, {Name: "API Gateway", Type: "service"}},
		[]*core.Relation{{From: "API Gateway", To: "Redis", Type: "uses", Weight: 0.9}},
	)
	require.NoError(t, err)

	neighbors, err := s.graph.Neighbors(ctx, "redis", 5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "API Gateway", neighbors[0].Entity.Name)

	err = ix.IndexGraph(ctx, nil, []*core.Relation{{From: "Redis", To: "Missing", Type: "uses", Weight: 1}})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

const seedYAML = `
project: recall
records:
  - table: decisions
    content: Use Redis with a one hour TTL for the result cache
    status: confirmed
    confidence: 0.9
  - table: learnings
    project: billing
    content: Retry when Postgres fails over
    error_type: ConnectionError
documents:
  - source: adr/0007.md
    doc_type: adr
    content: The result cache lives in Redis and expires after one hour.
entities:
  - name: Redis
    type: technology
    description: In-memory data store
  - name: Session Store
    type: service
relations:
  - from: Session Store
    to: Redis
    type: backed_by
`

func TestSeed(t *testing.T) {
	seed, err := LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	require.Len(t, seed.Records, 2)

	s := newStores(t)
	ix := newTestIndexer(t, s, mock.NewMockEmbedder())
	ctx := context.Background()

	stats, err := ix.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, SeedStats{Records: 2, Documents: 1, Entities: 2, Relations: 1}, stats)

	count, err := s.records.CountRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	hits, err := s.records.SearchRecords(ctx, "postgres", "billing", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0.5, hits[0].Confidence, "missing confidence defaults to 0.5")

	entity, err := s.graph.GetEntity(ctx, "session store")
	require.NoError(t, err)
	assert.Equal(t, "recall", entity.Project, "seed project is the default")

	neighbors, err := s.graph.Neighbors(ctx, "Redis", 5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, 1.0, neighbors[0].Relation.Weight)
}

func TestLoadSeed_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":      "records: [",
		"unknown table":  "records:\n  - table: incidents\n    content: x\n",
		"empty document": "documents:\n  - source: a.md\n",
		"untyped entity": "entities:\n  - name: Redis\n",
		"bad relation":   "relations:\n  - from: A\n    to: B\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeed(strings.NewReader(body))
			assert.Error(t, err)
		})
	}

	seed, err := LoadSeed(strings.NewReader(""))
	require.NoError(t, err, "an empty seed is valid")
	assert.Empty(t, seed.Records)
}

func TestReindexer(t *testing.T) {
	s := newStores(t)
	ctx := context.Background()
	ix := newTestIndexer(t, s, mock.NewMockEmbedder())

	var docs []*core.Document
	for i := range 5 {
		docs = append(docs, &core.Document{Source: "notes.md", Content: fmt.Sprintf("note %d", i)})
	}
	_, err := ix.IndexDocuments(ctx, docs...)
	require.NoError(t, err)

	replacement := mock.NewMockEmbedder()
	replacement.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{3, 4}
		}
		return out, nil
	}

	var buf bytes.Buffer
	r, err := NewReindexer(s.documents, replacement, &ReindexConfig{BatchSize: 2, ReportInterval: 1, MaxAttempts: 2, RetryDelay: time.Millisecond}, &buf, nil)
	require.NoError(t, err)

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 3, replacement.CallCount())
	assert.Contains(t, buf.String(), "Reindex complete. Processed 5 documents")

	for _, doc := range docs {
		got, err := s.documents.GetDocument(ctx, doc.Id)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, got.Vector, 1e-6)
	}
}

func TestReindexer_Edges(t *testing.T) {
	s := newStores(t)

	t.Run("validation", func(t *testing.T) {
		_, err := NewReindexer(nil, mock.NewMockEmbedder(), nil, nil, nil)
		assert.Equal(t, ErrDocumentRepositoryRequired, err)
		_, err = NewReindexer(s.documents, nil, nil, nil, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
		_, err = NewReindexer(s.documents, mock.NewMockEmbedder(), &ReindexConfig{BatchSize: 10}, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})

	t.Run("empty store", func(t *testing.T) {
		var buf bytes.Buffer
		r, err := NewReindexer(s.documents, mock.NewMockEmbedder(), nil, &buf, nil)
		require.NoError(t, err)
		n, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Contains(t, buf.String(), "No documents found")
	})

	t.Run("cancelled", func(t *testing.T) {
		ix := newTestIndexer(t, s, mock.NewMockEmbedder())
		_, err := ix.IndexDocuments(context.Background(), &core.Document{Content: "note"})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r, err := NewReindexer(s.documents, mock.NewMockEmbedder(), nil, nil, nil)
		require.NoError(t, err)
		_, err = r.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
