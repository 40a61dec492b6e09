package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tomasbasham/pageshot/internal/model"
)

// ListActivePages returns every page with is_active = true across all sites.
func (s *Store) ListActivePages(ctx context.Context) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, site_id, url, name, is_active, last_screenshot_at, interval_minutes, viewport_widths
		FROM pages
		WHERE is_active = true
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list active pages: %w", err)
	}
	defer rows.Close()

	return scanPages(rows)
}

// ListRetentionEnabledPages returns every active page belonging to a user
// with retention enabled.
func (s *Store) ListRetentionEnabledPages(ctx context.Context) ([]model.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.site_id, p.url, p.name, p.is_active, p.last_screenshot_at, p.interval_minutes, p.viewport_widths
		FROM pages p
		JOIN sites s ON s.id = p.site_id
		JOIN user_settings us ON us.user_id = s.user_id
		WHERE p.is_active = true AND us.retention_enabled = true
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list retention-enabled pages: %w", err)
	}
	defer rows.Close()

	return scanPages(rows)
}

func scanPages(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
},
) ([]model.Page, error) {
	var pages []model.Page
	for rows.Next() {
		var p model.Page
		var viewportWidths pq.Int64Array
		var intervalMinutes *int
		if err := rows.Scan(&p.ID, &p.SiteID, &p.URL, &p.Name, &p.IsActive, &p.LastScreenshotAt, &intervalMinutes, &viewportWidths); err != nil {
			return nil, fmt.Errorf("store: scan page: %w", err)
		}
		p.IntervalMinutes = intervalMinutes
		p.ViewportWidths = int64ArrayToInts(viewportWidths)
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetSite fetches a single site by ID.
func (s *Store) GetSite(ctx context.Context, siteID string) (model.Site, error) {
	var site model.Site
	var viewportWidths pq.Int64Array
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, domain, name, interval_minutes, viewport_widths
		FROM sites
		WHERE id = $1
	`, siteID)
	if err := row.Scan(&site.ID, &site.UserID, &site.Domain, &site.Name, &site.IntervalMinutes, &viewportWidths); err != nil {
		return model.Site{}, fmt.Errorf("store: get site %q: %w", siteID, err)
	}
	site.ViewportWidths = int64ArrayToInts(viewportWidths)
	return site, nil
}

// GetUserSettings fetches a user's settings, or nil if none have been
// created yet (the caller falls back to hardcoded defaults).
func (s *Store) GetUserSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	settings, err := s.getUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// GetUserSettingsForPage resolves the settings for the user who owns pageID,
// walking page -> site -> user.
func (s *Store) GetUserSettingsForPage(ctx context.Context, pageID string) (model.UserSettings, error) {
	var userID string
	row := s.db.QueryRowContext(ctx, `
		SELECT s.user_id
		FROM pages p
		JOIN sites s ON s.id = p.site_id
		WHERE p.id = $1
	`, pageID)
	if err := row.Scan(&userID); err != nil {
		return model.UserSettings{}, fmt.Errorf("store: resolve owner of page %q: %w", pageID, err)
	}

	settings, err := s.getUserSettings(ctx, userID)
	if err != nil {
		return model.UserSettings{}, err
	}
	if settings == nil {
		return model.UserSettings{UserID: userID}, nil
	}
	return *settings, nil
}

func (s *Store) getUserSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	var settings model.UserSettings
	var viewportWidths pq.Int64Array
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, default_interval_minutes, default_viewport_widths, retention_enabled,
		       max_screenshots_per_page, max_age_days, keep_per_day, keep_per_week, keep_per_month, keep_per_year
		FROM user_settings
		WHERE user_id = $1
	`, userID)

	var maxScreenshots, maxAgeDays *int
	err := row.Scan(
		&settings.UserID, &settings.DefaultIntervalMinutes, &viewportWidths, &settings.RetentionEnabled,
		&maxScreenshots, &maxAgeDays, &settings.KeepPerDay, &settings.KeepPerWeek, &settings.KeepPerMonth, &settings.KeepPerYear,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user settings %q: %w", userID, err)
	}
	settings.DefaultViewportWidths = int64ArrayToInts(viewportWidths)
	settings.MaxScreenshotsPerPage = maxScreenshots
	settings.MaxAgeDays = maxAgeDays
	return &settings, nil
}

// TouchPageLastScreenshot sets a page's last_screenshot_at timestamp.
func (s *Store) TouchPageLastScreenshot(ctx context.Context, pageID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pages SET last_screenshot_at = $2 WHERE id = $1`, pageID, at)
	if err != nil {
		return fmt.Errorf("store: touch page %q last_screenshot_at: %w", pageID, err)
	}
	return nil
}

func int64ArrayToInts(a pq.Int64Array) []int {
	if len(a) == 0 {
		return nil
	}
	out := make([]int, len(a))
	for i, v := range a {
		out[i] = int(v)
	}
	return out
}
