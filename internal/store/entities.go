package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tomasbasham/pageshot/internal/model"
)

// GetPage fetches a single page by ID.
func (s *Store) GetPage(ctx context.Context, pageID string) (model.Page, error) {
	var p model.Page
	var viewportWidths pq.Int64Array
	row := s.db.QueryRowContext(ctx, `
		SELECT id, site_id, url, name, is_active, last_screenshot_at, interval_minutes, viewport_widths
		FROM pages
		WHERE id = $1
	`, pageID)
	if err := row.Scan(&p.ID, &p.SiteID, &p.URL, &p.Name, &p.IsActive, &p.LastScreenshotAt, &p.IntervalMinutes, &viewportWidths); err != nil {
		return model.Page{}, fmt.Errorf("store: get page %q: %w", pageID, err)
	}
	p.ViewportWidths = int64ArrayToInts(viewportWidths)
	return p, nil
}

// ListPagesForSite returns every page belonging to a site, used by page
// discovery to avoid recreating pages that already exist.
func (s *Store) ListPagesForSite(ctx context.Context, siteID string) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, url, name, is_active, last_screenshot_at, interval_minutes, viewport_widths
		FROM pages
		WHERE site_id = $1
	`, siteID)
	if err != nil {
		return nil, fmt.Errorf("store: list pages for site %q: %w", siteID, err)
	}
	defer rows.Close()
	return scanPages(rows)
}

// CreatePage inserts a new page discovered for a site.
func (s *Store) CreatePage(ctx context.Context, p model.Page) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (id, site_id, url, name, is_active, last_screenshot_at, interval_minutes, viewport_widths)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, p.ID, p.SiteID, p.URL, p.Name, p.IsActive, nullTime(p.LastScreenshotAt), nullInt(p.IntervalMinutes), intsToInt64Array(p.ViewportWidths))
	if err != nil {
		return fmt.Errorf("store: create page: %w", err)
	}
	return nil
}

// GetInstruction fetches a single instruction by ID.
func (s *Store) GetInstruction(ctx context.Context, id string) (model.Instruction, error) {
	var in model.Instruction
	var scriptType string
	var lastErrorAt, lastSuccessAt sql.NullTime
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, name, prompt, script, script_type, execution_order, is_active,
		       last_error, last_error_at, last_success_at, error_count
		FROM instructions
		WHERE id = $1
	`, id)
	if err := row.Scan(&in.ID, &in.PageID, &in.Name, &in.Prompt, &in.Script, &scriptType, &in.ExecutionOrder,
		&in.IsActive, &in.LastError, &lastErrorAt, &lastSuccessAt, &in.ErrorCount); err != nil {
		return model.Instruction{}, fmt.Errorf("store: get instruction %q: %w", id, err)
	}
	in.ScriptType = model.ScriptType(scriptType)
	in.LastErrorAt = timePtr(lastErrorAt)
	in.LastSuccessAt = timePtr(lastSuccessAt)
	return in, nil
}

// CreateInstruction inserts a new instruction, typically the validated
// output of the script-generation collaborator.
func (s *Store) CreateInstruction(ctx context.Context, in model.Instruction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO instructions
			(id, page_id, name, prompt, script, script_type, execution_order, is_active,
			 last_error, last_error_at, last_success_at, error_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, in.ID, in.PageID, in.Name, in.Prompt, in.Script, string(in.ScriptType), in.ExecutionOrder, in.IsActive,
		in.LastError, nullTime(in.LastErrorAt), nullTime(in.LastSuccessAt), in.ErrorCount)
	if err != nil {
		return fmt.Errorf("store: create instruction: %w", err)
	}
	return nil
}

// GetTest fetches a single test by ID.
func (s *Store) GetTest(ctx context.Context, id string) (model.Test, error) {
	var t model.Test
	var scriptType string
	var viewportFilter pq.StringArray
	var lastErrorAt, lastSuccessAt sql.NullTime
	row := s.db.QueryRowContext(ctx, `
		SELECT id, page_id, name, prompt, script, script_type, is_active, viewport_filter,
		       last_error, last_error_at, last_success_at, error_count
		FROM tests
		WHERE id = $1
	`, id)
	if err := row.Scan(&t.ID, &t.PageID, &t.Name, &t.Prompt, &t.Script, &scriptType, &t.IsActive, &viewportFilter,
		&t.LastError, &lastErrorAt, &lastSuccessAt, &t.ErrorCount); err != nil {
		return model.Test{}, fmt.Errorf("store: get test %q: %w", id, err)
	}
	t.ScriptType = model.ScriptType(scriptType)
	t.LastErrorAt = timePtr(lastErrorAt)
	t.LastSuccessAt = timePtr(lastSuccessAt)
	for _, v := range viewportFilter {
		t.ViewportFilter = append(t.ViewportFilter, model.ViewportTag(v))
	}
	return t, nil
}

// CreateTest inserts a new test, typically the validated output of the
// script-generation collaborator.
func (s *Store) CreateTest(ctx context.Context, t model.Test) error {
	filter := make(pq.StringArray, len(t.ViewportFilter))
	for i, v := range t.ViewportFilter {
		filter[i] = string(v)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tests
			(id, page_id, name, prompt, script, script_type, is_active, viewport_filter,
			 last_error, last_error_at, last_success_at, error_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, t.ID, t.PageID, t.Name, t.Prompt, t.Script, string(t.ScriptType), t.IsActive, filter,
		t.LastError, nullTime(t.LastErrorAt), nullTime(t.LastSuccessAt), t.ErrorCount)
	if err != nil {
		return fmt.Errorf("store: create test: %w", err)
	}
	return nil
}

func intsToInt64Array(vals []int) pq.Int64Array {
	out := make(pq.Int64Array, len(vals))
	for i, v := range vals {
		out[i] = int64(v)
	}
	return out
}
