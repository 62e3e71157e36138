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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// ReindexConfig holds configuration for a reindexing run.
type ReindexConfig struct {
	// BatchSize is the number of documents embedded per call.
	BatchSize int

	// ReportInterval is how often to report progress, in documents.
	ReportInterval int

	// MaxAttempts bounds embedding attempts per batch.
	MaxAttempts int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultReindexConfig returns a ReindexConfig with sensible defaults.
func DefaultReindexConfig() *ReindexConfig {
	return &ReindexConfig{
		BatchSize:      100,
		ReportInterval: 100,
		MaxAttempts:    DefaultMaxAttempts,
		RetryDelay:     DefaultRetryDelay,
	}
}

// Reindexer re-embeds every stored document with the configured embedder.
type Reindexer struct {
	documents storage.DocumentRepository
	embedder  ai.Embedder
	config    *ReindexConfig
	progress  io.Writer
	logger    *slog.Logger
}

// NewReindexer creates a new reindexer.
// progress receives human-readable progress output and may be nil.
func NewReindexer(documents storage.DocumentRepository, embedder ai.Embedder, config *ReindexConfig, progress io.Writer, logger *slog.Logger) (*Reindexer, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultReindexConfig()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReindexConfig().BatchSize
	}
	if config.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reindexer{
		documents: documents,
		embedder:  embedder,
		config:    config,
		progress:  progress,
		logger:    logger.With("component", "reindexer"),
	}, nil
}

// Run re-embeds all documents and returns how many were updated.
// Cancellation is checked between batches; documents already updated keep
// their new vectors.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	ids, err := r.documents.ListDocumentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintf(r.progress, "No documents found (0 documents)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents (batch size: %d)\n", len(ids), r.config.BatchSize)
	tracker := NewProgressTracker(r.progress, "documents", len(ids), r.config.ReportInterval)
	tracker.Start()

	updated := 0
	for _, batch := range chunk(ids, r.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		n, err := r.reindexBatch(ctx, batch)
		if err != nil {
			return updated, fmt.Errorf("failed to process batch: %w", err)
		}
		updated += n
		tracker.Add(len(batch))
	}

	tracker.Finish()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d documents in %v\n", updated, elapsed.Round(time.Millisecond))
	r.logger.Info("reindex complete", "documents", updated, "elapsed", elapsed)
	return updated, nil
}

func (r *Reindexer) reindexBatch(ctx context.Context, ids []core.ID) (int, error) {
	docs, err := r.documents.GetDocuments(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := embedWithRetry(ctx, r.logger, r.embedder, texts, r.config.MaxAttempts, r.config.RetryDelay)
	if err != nil {
		return 0, err
	}

	update := make(map[core.ID][]float32, len(docs))
	for i, doc := range docs {
		update[doc.Id] = vectors[i]
	}
	if err := r.documents.UpdateVectors(ctx, update); err != nil {
		return 0, fmt.Errorf("failed to update vectors: %w", err)
	}
	return len(docs), nil
}
