package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

// InsertScreenshot inserts a new, immutable screenshot row.
func (s *Store) InsertScreenshot(ctx context.Context, sc model.Screenshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO screenshots
			(id, page_id, viewport_tag, viewport_width, storage_path, thumbnail_path,
			 byte_size, image_width, image_height, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		sc.ID, sc.PageID, string(sc.ViewportTag), sc.ViewportWidth, sc.StoragePath, sc.ThumbnailPath,
		sc.ByteSize, sc.ImageWidth, sc.ImageHeight, sc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert screenshot: %w", err)
	}
	return nil
}

// ListScreenshots returns every screenshot for a page, most recent first.
func (s *Store) ListScreenshots(ctx context.Context, pageID string) ([]model.Screenshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, viewport_tag, viewport_width, storage_path, thumbnail_path,
		       byte_size, image_width, image_height, created_at
		FROM screenshots
		WHERE page_id = $1
		ORDER BY created_at DESC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("store: list screenshots for page %q: %w", pageID, err)
	}
	defer rows.Close()

	var out []model.Screenshot
	for rows.Next() {
		var sc model.Screenshot
		var tag string
		if err := rows.Scan(&sc.ID, &sc.PageID, &tag, &sc.ViewportWidth, &sc.StoragePath, &sc.ThumbnailPath,
			&sc.ByteSize, &sc.ImageWidth, &sc.ImageHeight, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan screenshot: %w", err)
		}
		sc.ViewportTag = model.ViewportTag(tag)
		out = append(out, sc)
	}
	return out, rows.Err()
}

// GetScreenshot fetches a single screenshot by ID.
func (s *Store) GetScreenshot(ctx context.Context, screenshotID string) (model.Screenshot, error) {
	var sc model.Screenshot
	var tag string
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, viewport_tag, viewport_width, storage_path, thumbnail_path,
		       byte_size, image_width, image_height, created_at
		FROM screenshots
		WHERE id = $1
	`, screenshotID)
	if err := row.Scan(&sc.ID, &sc.PageID, &tag, &sc.ViewportWidth, &sc.StoragePath, &sc.ThumbnailPath,
		&sc.ByteSize, &sc.ImageWidth, &sc.ImageHeight, &sc.CreatedAt); err != nil {
		return model.Screenshot{}, fmt.Errorf("store: get screenshot %q: %w", screenshotID, err)
	}
	sc.ViewportTag = model.ViewportTag(tag)
	return sc, nil
}

// DeleteScreenshot removes a screenshot row along with its dependent errors
// and test results.
func (s *Store) DeleteScreenshot(ctx context.Context, screenshotID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete screenshot %q: begin tx: %w", screenshotID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM screenshot_errors WHERE screenshot_id = $1`, screenshotID); err != nil {
		return fmt.Errorf("store: delete screenshot_errors for %q: %w", screenshotID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM test_results WHERE screenshot_id = $1`, screenshotID); err != nil {
		return fmt.Errorf("store: delete test_results for %q: %w", screenshotID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM screenshots WHERE id = $1`, screenshotID); err != nil {
		return fmt.Errorf("store: delete screenshot %q: %w", screenshotID, err)
	}

	return tx.Commit()
}

// InsertScreenshotError records a captured JS exception or network failure.
func (s *Store) InsertScreenshotError(ctx context.Context, e model.ScreenshotError) error {
	var statusCode sql.NullInt64
	if e.StatusCode != 0 {
		statusCode = sql.NullInt64{Int64: int64(e.StatusCode), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO screenshot_errors (id, screenshot_id, kind, message, source, status_code, occurred_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.ScreenshotID, string(e.Kind), e.Message, e.Source, statusCode, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("store: insert screenshot error: %w", err)
	}
	return nil
}

// InsertTestResult records the outcome of a single test run against a
// screenshot.
func (s *Store) InsertTestResult(ctx context.Context, r model.TestResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_results (id, test_id, screenshot_id, passed, message, execution_time_ms, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, r.ID, r.TestID, r.ScreenshotID, r.Passed, r.Message, r.ExecutionTimeMS, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert test result: %w", err)
	}
	return nil
}

// RecordInstructionOutcome updates an instruction's rolling health fields
// after an execution attempt.
func (s *Store) RecordInstructionOutcome(ctx context.Context, instructionID string, success bool, message string, at time.Time) error {
	var err error
	if success {
		_, err = s.db.ExecContext(ctx, `
			UPDATE instructions
			SET last_success_at = $2, last_error = '', error_count = 0
			WHERE id = $1
		`, instructionID, at)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE instructions
			SET last_error = $2, last_error_at = $3, error_count = error_count + 1
			WHERE id = $1
		`, instructionID, message, at)
	}
	if err != nil {
		return fmt.Errorf("store: record instruction outcome for %q: %w", instructionID, err)
	}
	return nil
}
