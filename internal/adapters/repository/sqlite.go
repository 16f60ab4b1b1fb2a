package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ndiyar/vigil/internal/domain/model"
	"github.com/ndiyar/vigil/pkg/metrics"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if necessary initializes) a SQLite-backed store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// migrate creates the schema when absent.
func (s *SQLiteStore) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS areas (
    id TEXT PRIMARY KEY,
    capacity INTEGER NOT NULL CHECK(capacity > 0)
);

CREATE TABLE IF NOT EXISTS results (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    count INTEGER,
    status TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_results_subject ON results(kind, subject_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// InsertResult appends a classified result and returns the record id.
func (s *SQLiteStore) InsertResult(ctx context.Context, res model.ClassifiedResult) (string, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	}()

	id := uuid.NewString()

	var count any
	if res.Subject.Kind == model.KindCrowd {
		count = res.Count
	}

	query := `
		INSERT INTO results (id, kind, subject_id, count, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		id,
		string(res.Subject.Kind),
		res.Subject.ID,
		count,
		res.Status,
		res.Timestamp,
	)
	if err != nil {
		metrics.RecordStoreError()
		return "", fmt.Errorf("%w: insert result: %v", ErrUnavailable, err)
	}

	metrics.RecordStoreWrite()
	return id, nil
}

// Capacity returns the configured capacity for an area.
func (s *SQLiteStore) Capacity(ctx context.Context, areaID string) (int, error) {
	var capacity int
	err := s.db.QueryRowContext(ctx, `SELECT capacity FROM areas WHERE id = ?`, areaID).Scan(&capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: area %s", ErrNotFound, areaID)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: capacity lookup: %v", ErrUnavailable, err)
	}
	return capacity, nil
}

// Count returns the number of persisted results.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM results`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// SeedArea upserts an area capacity.
func (s *SQLiteStore) SeedArea(ctx context.Context, areaID string, capacity int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO areas (id, capacity) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET capacity = excluded.capacity`,
		areaID, capacity,
	)
	if err != nil {
		return fmt.Errorf("%w: seed area: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
