// Package cache persists analysis reports keyed by the sha256 of the
// analyzed file, so re-running the pipeline over an unchanged installer
// skips the parse entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quantmind-br/pkgprobe/internal/manifest"
)

// Entry is one cached analysis report. Icons are not cached: they are
// cheap to re-extract and dominate the row size otherwise.
type Entry struct {
	FileName    string                     `json:"file_name"`
	Records     []manifest.InstallerRecord `json:"records"`
	PackageName string                     `json:"package_name,omitempty"`
	Publisher   string                     `json:"publisher,omitempty"`
	Copyright   string                     `json:"copyright,omitempty"`
	AnalyzedAt  time.Time                  `json:"analyzed_at"`
}

// Store is the sqlite-backed report cache with separate read/write pools
type Store struct {
	write *sql.DB
	read  *sql.DB
	path  string
}

// Open opens (creating if needed) the cache database at dbPath
func Open(ctx context.Context, dbPath string) (*Store, error) {
	// Connection string with pragmas
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)

	// Write pool: MUST be 1 connection only
	write, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open write connection: %w", err)
	}
	write.SetMaxOpenConns(1)
	write.SetMaxIdleConns(1)
	write.SetConnMaxIdleTime(time.Minute)
	write.SetConnMaxLifetime(time.Hour)

	read, err := sql.Open("sqlite", connStr)
	if err != nil {
		write.Close()
		return nil, fmt.Errorf("open read connection: %w", err)
	}
	read.SetMaxOpenConns(10)
	read.SetMaxIdleConns(5)
	read.SetConnMaxIdleTime(time.Minute)
	read.SetConnMaxLifetime(time.Hour)

	store := &Store{
		write: write,
		read:  read,
		path:  dbPath,
	}

	if err := store.initSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// Close closes both database connections
func (s *Store) Close() error {
	writeErr := s.write.Close()
	readErr := s.read.Close()
	if writeErr != nil {
		return writeErr
	}
	return readErr
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS reports (
    sha256 TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    report TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_file_name ON reports(file_name);
	`

	_, err := s.write.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Digest returns the hex sha256 cache key of an installer payload
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores or replaces the entry for one digest
func (s *Store) Put(ctx context.Context, digest string, entry Entry) error {
	if entry.AnalyzedAt.IsZero() {
		entry.AnalyzedAt = time.Now().UTC()
	}
	reportJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	query := `
INSERT INTO reports (sha256, file_name, analyzed_at, report)
VALUES (?, ?, ?, ?)
ON CONFLICT(sha256) DO UPDATE SET
    file_name = excluded.file_name,
    analyzed_at = excluded.analyzed_at,
    report = excluded.report
	`

	_, err = s.write.ExecContext(ctx, query,
		digest,
		entry.FileName,
		entry.AnalyzedAt,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	return nil
}

// Get retrieves the cached entry for a digest. The second return value
// reports whether the digest was present.
func (s *Store) Get(ctx context.Context, digest string) (Entry, bool, error) {
	query := "SELECT report FROM reports WHERE sha256 = ?"

	var reportJSON string
	err := s.read.QueryRowContext(ctx, query, digest).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query report: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal([]byte(reportJSON), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("unmarshal report: %w", err)
	}

	return entry, true, nil
}

// List returns every cached entry, newest first
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	query := "SELECT report FROM reports ORDER BY analyzed_at DESC"

	rows, err := s.read.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var entry Entry
		if err := json.Unmarshal([]byte(reportJSON), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

// Delete removes the entry for one digest
func (s *Store) Delete(ctx context.Context, digest string) error {
	result, err := s.write.ExecContext(ctx, "DELETE FROM reports WHERE sha256 = ?", digest)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("report not found: %s", digest)
	}

	return nil
}

// Purge removes every cached report and returns how many were dropped
func (s *Store) Purge(ctx context.Context) (int64, error) {
	result, err := s.write.ExecContext(ctx, "DELETE FROM reports")
	if err != nil {
		return 0, fmt.Errorf("purge reports: %w", err)
	}
	return result.RowsAffected()
}
