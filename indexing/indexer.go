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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultBatchSize is the number of texts sent to the embedder at once.
	DefaultBatchSize = 32

	// DefaultMaxAttempts bounds embedding attempts per batch.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the delay before the first retry.
	DefaultRetryDelay = time.Second
)

// Indexer writes content into the document, record and graph stores.
// Documents are embedded in batches on a worker pool.
type Indexer struct {
	documents   storage.DocumentRepository
	records     storage.RecordRepository
	graph       storage.GraphRepository
	embedder    ai.Embedder
	pool        *ants.Pool
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	logger      *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets how many batches are embedded concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		ix.pool = pool
		return nil
	}
}

// WithBatchSize sets how many documents are embedded per call.
func WithBatchSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		ix.batchSize = size
		return nil
	}
}

// WithRetry sets the embedding retry policy.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(ix *Indexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		ix.maxAttempts = maxAttempts
		ix.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates a new indexer.
func NewIndexer(
	documents storage.DocumentRepository,
	records storage.RecordRepository,
	graph storage.GraphRepository,
	embedder ai.Embedder,
	opts ...Option,
) (*Indexer, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if records == nil {
		return nil, ErrRecordRepositoryRequired
	}
	if graph == nil {
		return nil, ErrGraphRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	ix := &Indexer{
		documents:   documents,
		records:     records,
		graph:       graph,
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			ix.Release()
			return nil, err
		}
	}

	if ix.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU()/2, 1))
		if err != nil {
			return nil, err
		}
		ix.pool = pool
	}
	ix.logger = ix.logger.With("component", "indexer")

	return ix, nil
}

// IndexDocuments embeds documents that have no vector and stores them all.
// Batches are embedded concurrently; the call returns once every batch has
// been stored or has failed. Stored documents are returned in input order,
// followed by the errors of any failed batches.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs ...*core.Document) ([]*core.Document, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	batches := chunk(docs, ix.batchSize)
	stored := make([][]*core.Document, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		err := ix.pool.Submit(func() {
			defer wg.Done()
			stored[i], errs[i] = ix.indexBatch(ctx, batch)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to schedule batch: %w", err)
		}
	}
	wg.Wait()

	var out []*core.Document
	for _, group := range stored {
		out = append(out, group...)
	}
	if err := errors.Join(errs...); err != nil {
		ix.logger.Error("document indexing incomplete", "stored", len(out), "requested", len(docs), "err", err)
		return out, err
	}
	ix.logger.Info("documents indexed", "count", len(out))
	return out, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, batch []*core.Document) ([]*core.Document, error) {
	var pending []*core.Document
	for _, doc := range batch {
		if len(doc.Vector) == 0 {
			pending = append(pending, doc)
		}
	}

	if len(pending) > 0 {
		texts := make([]string, len(pending))
		for i, doc := range pending {
			texts[i] = doc.Content
		}
		vectors, err := ix.embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, doc := range pending {
			doc.Vector = vectors[i]
		}
	}

	stored, err := ix.documents.AddDocuments(ctx, batch...)
	if err != nil {
		return nil, fmt.Errorf("failed to store documents: %w", err)
	}
	return stored, nil
}

// embed embeds texts under the retry policy.
func (ix *Indexer) embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedWithRetry(ctx, ix.logger, ix.embedder, texts, ix.maxAttempts, ix.retryDelay)
}

// IndexRecords stores structured records.
func (ix *Indexer) IndexRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error) {
	if len(records) == 0 {
		return nil, nil
	}
	added, err := ix.records.AddRecords(ctx, records...)
	if err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}
	ix.logger.Info("records indexed", "count", len(added))
	return added, nil
}

// IndexGraph stores entities and then the relations between them.
func (ix *Indexer) IndexGraph(ctx context.Context, entities []*core.Entity, relations []*core.Relation) error {
	if len(entities) > 0 {
		if err := ix.graph.UpsertEntities(ctx, entities...); err != nil {
			return fmt.Errorf("failed to store entities: %w", err)
		}
	}
	if len(relations) > 0 {
		if err := ix.graph.AddRelations(ctx, relations...); err != nil {
			return fmt.Errorf("failed to store relations: %w", err)
		}
	}
	ix.logger.Info("graph indexed", "entities", len(entities), "relations", len(relations))
	return nil
}

// Release releases the worker pool.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}

func embedWithRetry(ctx context.Context, logger *slog.Logger, embedder ai.Embedder, texts []string, maxAttempts int, delay time.Duration) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, logger, func() error {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		return err
	}, maxAttempts, delay)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", maxAttempts, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(texts), len(vectors))
	}
	return vectors, nil
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}
