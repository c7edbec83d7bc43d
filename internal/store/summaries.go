// ABOUTME: Append-only history of health summary runs.
// ABOUTME: Each run records its text or error plus a success/error/skipped status.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/logwarden/logwarden/internal/types"
)

// Summary history statuses
const (
	SummaryStatusSuccess = "success"
	SummaryStatusError   = "error"
	SummaryStatusSkipped = "skipped"
)

// AppendSummary records the outcome of one summary run
func (s *Store) AppendSummary(ctx context.Context, summaryText, errorText, status string) error {
	switch status {
	case SummaryStatusSuccess, SummaryStatusError, SummaryStatusSkipped:
	default:
		return fmt.Errorf("invalid summary status %q", status)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO summary_history (created_at, summary_text, error_text, status) VALUES (?, ?, ?, ?)`,
		formatTime(time.Now()), summaryText, errorText, status); err != nil {
		return fmt.Errorf("append summary history: %w", err)
	}
	return nil
}

// RecentSummaries returns the newest history rows, most recent first
func (s *Store) RecentSummaries(ctx context.Context, limit int) ([]types.SummaryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, summary_text, error_text, status
		 FROM summary_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query summary history: %w", err)
	}
	defer rows.Close()

	out := make([]types.SummaryRecord, 0)
	for rows.Next() {
		rec, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary rows: %w", err)
	}
	return out, nil
}

// LatestSummary returns the most recent history row, if any
func (s *Store) LatestSummary(ctx context.Context) (types.SummaryRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, summary_text, error_text, status
		 FROM summary_history ORDER BY id DESC LIMIT 1`)

	rec, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SummaryRecord{}, false, nil
		}
		return types.SummaryRecord{}, false, fmt.Errorf("query latest summary: %w", err)
	}
	return rec, true, nil
}

func scanSummary(row rowScanner) (types.SummaryRecord, error) {
	var rec types.SummaryRecord
	var createdAt string
	if err := row.Scan(&rec.ID, &createdAt, &rec.SummaryText, &rec.ErrorText, &rec.Status); err != nil {
		return types.SummaryRecord{}, err
	}
	rec.CreatedAt = parseTime(createdAt)
	return rec, nil
}
