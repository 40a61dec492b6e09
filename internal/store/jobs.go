package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

// PendingJob returns the most recent non-terminal job for pageID, if any.
func (s *Store) PendingJob(ctx context.Context, pageID string) (*model.CaptureJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, status, current_viewport, viewports_completed, viewports_total,
		       error_message, started_at, completed_at, created_at
		FROM capture_jobs
		WHERE page_id = $1 AND status IN ('pending', 'capturing')
		ORDER BY created_at DESC
		LIMIT 1
	`, pageID)
	return scanOptionalJob(row)
}

// LastTerminalJob returns the most recently completed or failed job for
// pageID, used as the cooldown baseline.
func (s *Store) LastTerminalJob(ctx context.Context, pageID string) (*model.CaptureJob, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, status, current_viewport, viewports_completed, viewports_total,
		       error_message, started_at, completed_at, created_at
		FROM capture_jobs
		WHERE page_id = $1 AND status IN ('completed', 'failed')
		ORDER BY completed_at DESC NULLS LAST
		LIMIT 1
	`, pageID)
	return scanOptionalJob(row)
}

func scanOptionalJob(row *sql.Row) (*model.CaptureJob, error) {
	var j model.CaptureJob
	var currentViewport sql.NullString
	var errorMessage sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &j.PageID, &j.Status, &currentViewport, &j.ViewportsCompleted, &j.ViewportsTotal,
		&errorMessage, &startedAt, &completedAt, &j.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan capture job: %w", err)
	}
	j.CurrentViewport = currentViewport.String
	j.ErrorMessage = errorMessage.String
	j.StartedAt = timePtr(startedAt)
	j.CompletedAt = timePtr(completedAt)
	return &j, nil
}

// ConsecutiveFailures counts failed jobs for pageID since the last non-failed
// job (or since the beginning of history).
func (s *Store) ConsecutiveFailures(ctx context.Context, pageID string) (int, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM capture_jobs
		WHERE page_id = $1
		  AND status = 'failed'
		  AND created_at > COALESCE((
		      SELECT MAX(created_at) FROM capture_jobs
		      WHERE page_id = $1 AND status <> 'failed'
		  ), to_timestamp(0))
	`, pageID)

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count consecutive failures for page %q: %w", pageID, err)
	}
	return n, nil
}

// CreateJob inserts a new capture job row.
func (s *Store) CreateJob(ctx context.Context, job model.CaptureJob) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capture_jobs
			(id, page_id, status, current_viewport, viewports_completed, viewports_total,
			 error_message, started_at, completed_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		job.ID, job.PageID, job.Status, nullString(job.CurrentViewport), job.ViewportsCompleted, job.ViewportsTotal,
		nullString(job.ErrorMessage), nullTime(job.StartedAt), nullTime(job.CompletedAt), job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: create capture job: %w", err)
	}
	return nil
}

// UpdateJob persists the full state of an existing capture job.
func (s *Store) UpdateJob(ctx context.Context, job model.CaptureJob) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE capture_jobs
		SET status = $2, current_viewport = $3, viewports_completed = $4, viewports_total = $5,
		    error_message = $6, started_at = $7, completed_at = $8
		WHERE id = $1
	`,
		job.ID, job.Status, nullString(job.CurrentViewport), job.ViewportsCompleted, job.ViewportsTotal,
		nullString(job.ErrorMessage), nullTime(job.StartedAt), nullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("store: update capture job %q: %w", job.ID, err)
	}
	return nil
}

// ResetStaleJobs fails every capturing job whose started_at is older than
// olderThan and returns how many were reset.
func (s *Store) ResetStaleJobs(ctx context.Context, olderThan time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE capture_jobs
		SET status = 'failed', error_message = 'capture timed out', completed_at = now()
		WHERE status = 'capturing' AND started_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("store: reset stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: reset stale jobs rows affected: %w", err)
	}
	return int(n), nil
}
