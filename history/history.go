// Package history records past analysis runs in a local SQLite database so
// repeat work on the same footage is visible.
package history

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"lukechampine.com/blake3"
	_ "modernc.org/sqlite"
)

// ErrNotFound reports a lookup that matched no run.
var ErrNotFound = errors.New("history: run not found")

// Run is one recorded analysis.
type Run struct {
	ID           string
	VideoPath    string
	VideoHash    string
	CreatedAt    time.Time
	Duration     float64
	SplitCount   int
	SegmentCount int
	ExportPath   string
}

// Store wraps the runs database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		video_path TEXT NOT NULL,
		video_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		duration REAL NOT NULL,
		split_count INTEGER NOT NULL,
		segment_count INTEGER NOT NULL,
		export_path TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_hash ON runs(video_hash);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts the run, assigning an id and timestamp when missing, and
// returns the stored row.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, video_path, video_hash, created_at, duration, split_count, segment_count, export_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.VideoPath, r.VideoHash, r.CreatedAt, r.Duration, r.SplitCount, r.SegmentCount, r.ExportPath,
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run: %w", err)
	}
	return r, nil
}

// FindByHash returns the most recent run for a video content hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_path, video_hash, created_at, duration, split_count, segment_count, export_path
		FROM runs WHERE video_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("looking up run by hash: %w", err)
	}
	return r, nil
}

// Recent lists the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_path, video_hash, created_at, duration, split_count, segment_count, export_path
		FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var export sql.NullString
	err := row.Scan(&r.ID, &r.VideoPath, &r.VideoHash, &r.CreatedAt,
		&r.Duration, &r.SplitCount, &r.SegmentCount, &export)
	if err != nil {
		return Run{}, err
	}
	r.ExportPath = export.String
	return r, nil
}

// HashFile computes the blake3 hex digest of a file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
