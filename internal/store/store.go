// ABOUTME: SQLite persistence for abnormality records, runtime settings, and summary history.
// ABOUTME: Owns the dedup uniqueness constraint on (container_id, log_snippet).

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/logwarden/logwarden/internal/types"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an operation targets a missing record
var ErrNotFound = errors.New("record not found")

type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open opens (creating if necessary) the database at path and ensures the
// schema and default settings exist.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}
	if err := s.seedDefaultSettings(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.WithField("component", "store").WithField("path", path).Info("Database ready")
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS abnormalities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	container_id TEXT NOT NULL,
	container_name TEXT NOT NULL,
	log_snippet TEXT NOT NULL,
	analysis_text TEXT NOT NULL,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'unresolved',
	resolution_notes TEXT NOT NULL DEFAULT '',
	UNIQUE(container_id, log_snippet)
);
CREATE INDEX IF NOT EXISTS idx_abnormalities_container_status ON abnormalities(container_id, status);
CREATE INDEX IF NOT EXISTS idx_abnormalities_last_seen ON abnormalities(last_seen);
CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS summary_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	summary_text TEXT NOT NULL DEFAULT '',
	error_text TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_summary_history_created_at ON summary_history(created_at);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Upsert records a detection. A new (container_id, snippet) pair creates a
// row with first_seen = last_seen = seenAt; a repeat refreshes last_seen,
// analysis_text, and the display name while first_seen stays immutable.
// Returns the row id.
func (s *Store) Upsert(ctx context.Context, containerID, containerName, snippet, analysis string, seenAt time.Time) (int64, error) {
	ts := formatTime(seenAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO abnormalities (container_id, container_name, log_snippet, analysis_text, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(container_id, log_snippet) DO UPDATE SET
		 container_name = excluded.container_name,
		 analysis_text = excluded.analysis_text,
		 last_seen = excluded.last_seen`,
		containerID, containerName, snippet, analysis, ts, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert abnormality: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM abnormalities WHERE container_id = ? AND log_snippet = ?`,
		containerID, snippet,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("look up upserted abnormality: %w", err)
	}
	return id, nil
}

// FindStatus returns the lifecycle status and id of the record for the
// given dedup key, if one exists.
func (s *Store) FindStatus(ctx context.Context, containerID, snippet string) (types.AbnormalityStatus, int64, bool, error) {
	var status string
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status FROM abnormalities WHERE container_id = ? AND log_snippet = ?`,
		containerID, snippet,
	).Scan(&id, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("query abnormality status: %w", err)
	}
	return types.AbnormalityStatus(status), id, true, nil
}

// SetStatus transitions a record to the given lifecycle status, replacing
// its resolution notes.
func (s *Store) SetStatus(ctx context.Context, id int64, status types.AbnormalityStatus, notes string) error {
	if !types.ValidAbnormalityStatus(string(status)) {
		return fmt.Errorf("invalid abnormality status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE abnormalities SET status = ?, resolution_notes = ? WHERE id = ?`,
		string(status), notes, id,
	)
	if err != nil {
		return fmt.Errorf("update abnormality status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check abnormality update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAbnormality fetches a single record by id
func (s *Store) GetAbnormality(ctx context.Context, id int64) (types.Abnormality, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, container_id, container_name, log_snippet, analysis_text, first_seen, last_seen, status, resolution_notes
		 FROM abnormalities WHERE id = ?`, id)

	rec, err := scanAbnormality(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Abnormality{}, false, nil
		}
		return types.Abnormality{}, false, fmt.Errorf("query abnormality %d: %w", id, err)
	}
	return rec, true, nil
}

// ListByStatus returns records with the given status ("all" for every
// status), most recently seen first.
func (s *Store) ListByStatus(ctx context.Context, status string, limit int) ([]types.Abnormality, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, container_id, container_name, log_snippet, analysis_text, first_seen, last_seen, status, resolution_notes
		 FROM abnormalities`
	args := []any{}
	if status != "all" {
		if !types.ValidAbnormalityStatus(status) {
			return nil, fmt.Errorf("invalid abnormality status %q", status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY last_seen DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list abnormalities: %w", err)
	}
	defer rows.Close()

	return collectAbnormalities(rows)
}

// RecentUnresolved returns unresolved records last seen within the trailing
// window, most recent first.
func (s *Store) RecentUnresolved(ctx context.Context, window time.Duration) ([]types.Abnormality, error) {
	cutoff := formatTime(time.Now().Add(-window))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, container_id, container_name, log_snippet, analysis_text, first_seen, last_seen, status, resolution_notes
		 FROM abnormalities
		 WHERE status = ? AND last_seen >= ?
		 ORDER BY last_seen DESC`,
		string(types.StatusUnresolved), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent abnormalities: %w", err)
	}
	defer rows.Close()

	return collectAbnormalities(rows)
}

// CountByStatus returns the number of records per lifecycle status
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM abnormalities GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count abnormalities: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan abnormality count: %w", err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate abnormality counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAbnormality(row rowScanner) (types.Abnormality, error) {
	var rec types.Abnormality
	var status, firstSeen, lastSeen string
	if err := row.Scan(&rec.ID, &rec.ContainerID, &rec.ContainerName, &rec.LogSnippet,
		&rec.AnalysisText, &firstSeen, &lastSeen, &status, &rec.ResolutionNotes); err != nil {
		return types.Abnormality{}, err
	}
	rec.Status = types.AbnormalityStatus(status)
	rec.FirstSeen = parseTime(firstSeen)
	rec.LastSeen = parseTime(lastSeen)
	return rec, nil
}

func collectAbnormalities(rows *sql.Rows) ([]types.Abnormality, error) {
	out := make([]types.Abnormality, 0)
	for rows.Next() {
		rec, err := scanAbnormality(rows)
		if err != nil {
			return nil, fmt.Errorf("scan abnormality row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate abnormality rows: %w", err)
	}
	return out, nil
}

// Timestamps are stored as RFC3339 UTC text so lexical order matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
