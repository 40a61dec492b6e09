package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/tomasbasham/pageshot/internal/model"
)

// ListInstructions returns every instruction for a page, ordered for
// execution.
func (s *Store) ListInstructions(ctx context.Context, pageID string) ([]model.Instruction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, name, prompt, script, script_type, execution_order, is_active,
		       last_error, last_error_at, last_success_at, error_count
		FROM instructions
		WHERE page_id = $1
		ORDER BY execution_order ASC
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("store: list instructions for page %q: %w", pageID, err)
	}
	defer rows.Close()

	var out []model.Instruction
	for rows.Next() {
		var in model.Instruction
		var scriptType string
		var lastErrorAt, lastSuccessAt sql.NullTime
		if err := rows.Scan(&in.ID, &in.PageID, &in.Name, &in.Prompt, &in.Script, &scriptType, &in.ExecutionOrder,
			&in.IsActive, &in.LastError, &lastErrorAt, &lastSuccessAt, &in.ErrorCount); err != nil {
			return nil, fmt.Errorf("store: scan instruction: %w", err)
		}
		in.ScriptType = model.ScriptType(scriptType)
		in.LastErrorAt = timePtr(lastErrorAt)
		in.LastSuccessAt = timePtr(lastSuccessAt)
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListTests returns every test for a page.
func (s *Store) ListTests(ctx context.Context, pageID string) ([]model.Test, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, name, prompt, script, script_type, is_active, viewport_filter,
		       last_error, last_error_at, last_success_at, error_count
		FROM tests
		WHERE page_id = $1
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("store: list tests for page %q: %w", pageID, err)
	}
	defer rows.Close()

	var out []model.Test
	for rows.Next() {
		var t model.Test
		var scriptType string
		var viewportFilter pq.StringArray
		var lastErrorAt, lastSuccessAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.PageID, &t.Name, &t.Prompt, &t.Script, &scriptType, &t.IsActive, &viewportFilter,
			&t.LastError, &lastErrorAt, &lastSuccessAt, &t.ErrorCount); err != nil {
			return nil, fmt.Errorf("store: scan test: %w", err)
		}
		t.ScriptType = model.ScriptType(scriptType)
		t.LastErrorAt = timePtr(lastErrorAt)
		t.LastSuccessAt = timePtr(lastSuccessAt)
		for _, v := range viewportFilter {
			t.ViewportFilter = append(t.ViewportFilter, model.ViewportTag(v))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
