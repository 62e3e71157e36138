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
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"

	// Pure Go driver; no cgo toolchain required.
	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// RecordRepository implements storage.RecordRepository on SQLite.
type RecordRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.RecordRepository = (*RecordRepository)(nil)

// openDatabase opens a SQLite database with appropriate settings.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// A single connection keeps ":memory:" databases shared and avoids
	// writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewRecordRepository opens (creating if needed) the record database at dbPath.
// Use ":memory:" for a throwaway database.
func NewRecordRepository(ctx context.Context, dbPath string) (storage.RecordRepository, error) {
	return newRecordRepository(ctx, dbPath)
}

func newRecordRepository(ctx context.Context, dbPath string) (*RecordRepository, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RecordRepository{
		db:     db,
		logger: slog.Default().With("component", "sqlite-records"),
	}, nil
}

// Close closes the database connection.
func (r *RecordRepository) Close() error {
	return r.db.Close()
}

// AddRecords inserts records into their tables in one transaction.
func (r *RecordRepository) AddRecords(ctx context.Context, records ...*core.Record) ([]*core.Record, error) {
	for _, record := range records {
		if err := core.ValidateRecord(record); err != nil {
			return nil, err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, record := range records {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = record.CreatedAt
		}

		var result sql.Result
		switch record.Table {
		case core.TableDecisions:
			result, err = tx.ExecContext(ctx, `
				INSERT INTO decisions (project, context, decision, reasoning, maturity_status,
					confidence_score, times_used, times_confirmed, times_contradicted, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				record.Project, record.Context, record.Content, record.Detail, string(record.MaturityStatus),
				record.Confidence, record.TimesUsed, record.TimesConfirmed, record.TimesContradicted,
				record.CreatedAt.UnixMicro(), record.UpdatedAt.UnixMicro())
		case core.TableLearnings:
			result, err = tx.ExecContext(ctx, `
				INSERT INTO learnings (project, error_type, error_message, solution, context, maturity_status,
					confidence_score, times_used, times_confirmed, times_contradicted, created_at, last_occurred)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				record.Project, record.ErrorType, record.Detail, record.Content, record.Context, string(record.MaturityStatus),
				record.Confidence, record.TimesUsed, record.TimesConfirmed, record.TimesContradicted,
				record.CreatedAt.UnixMicro(), record.UpdatedAt.UnixMicro())
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s record: %w", record.Table, err)
		}
		if record.ID, err = result.LastInsertId(); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return records, nil
}

// SearchRecords runs a phrase LIKE search over decisions then learnings,
// newest first within each table.
func (r *RecordRepository) SearchRecords(ctx context.Context, query, project string, limit int) ([]*core.Record, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return nil, fmt.Errorf("%w: query and positive limit required", storage.ErrInvalidQuery)
	}
	perTable := (limit + 1) / 2
	pattern := "%" + escapeLike(query) + "%"

	decisions, err := r.searchDecisions(ctx, pattern, project, perTable)
	if err != nil {
		return nil, err
	}
	learnings, err := r.searchLearnings(ctx, pattern, project, perTable)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("record search", "decisions", len(decisions), "learnings", len(learnings))
	return append(decisions, learnings...), nil
}

func (r *RecordRepository) searchDecisions(ctx context.Context, pattern, project string, limit int) ([]*core.Record, error) {
	sqlQuery := `
		SELECT id, project, context, decision, reasoning, maturity_status,
			confidence_score, times_used, times_confirmed, times_contradicted, created_at, updated_at
		FROM decisions
		WHERE (decision LIKE ? ESCAPE '\' OR reasoning LIKE ? ESCAPE '\' OR context LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern, pattern}
	if project != "" {
		sqlQuery += " AND project = ?"
		args = append(args, project)
	}
	sqlQuery += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search decisions: %w", err)
	}
	defer rows.Close()

	var records []*core.Record
	for rows.Next() {
		rec := &core.Record{Table: core.TableDecisions}
		var status string
		var created, updated int64
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.Context, &rec.Content, &rec.Detail, &status,
			&rec.Confidence, &rec.TimesUsed, &rec.TimesConfirmed, &rec.TimesContradicted, &created, &updated); err != nil {
			return nil, err
		}
		rec.MaturityStatus = core.MaturityStatus(status)
		rec.CreatedAt = time.UnixMicro(created).UTC()
		rec.UpdatedAt = time.UnixMicro(updated).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *RecordRepository) searchLearnings(ctx context.Context, pattern, project string, limit int) ([]*core.Record, error) {
	sqlQuery := `
		SELECT id, project, error_type, error_message, solution, context, maturity_status,
			confidence_score, times_used, times_confirmed, times_contradicted, created_at, last_occurred
		FROM learnings
		WHERE (error_type LIKE ? ESCAPE '\' OR error_message LIKE ? ESCAPE '\'
			OR solution LIKE ? ESCAPE '\' OR context LIKE ? ESCAPE '\')`
	args := []any{pattern, pattern, pattern, pattern}
	if project != "" {
		sqlQuery += " AND project = ?"
		args = append(args, project)
	}
	sqlQuery += " ORDER BY last_occurred DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search learnings: %w", err)
	}
	defer rows.Close()

	var records []*core.Record
	for rows.Next() {
		rec := &core.Record{Table: core.TableLearnings}
		var status string
		var created, lastOccurred int64
		if err := rows.Scan(&rec.ID, &rec.Project, &rec.ErrorType, &rec.Detail, &rec.Content, &rec.Context, &status,
			&rec.Confidence, &rec.TimesUsed, &rec.TimesConfirmed, &rec.TimesContradicted, &created, &lastOccurred); err != nil {
			return nil, err
		}
		rec.MaturityStatus = core.MaturityStatus(status)
		rec.CreatedAt = time.UnixMicro(created).UTC()
		rec.UpdatedAt = time.UnixMicro(lastOccurred).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountRecords returns the number of decisions plus learnings.
func (r *RecordRepository) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT (SELECT COUNT(*) FROM decisions) + (SELECT COUNT(*) FROM learnings)").Scan(&count)
	return count, err
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
