package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
	"github.com/tomasbasham/pageshot/internal/storage"
)

// Store is everything the retention sweep needs from persistence.
type Store interface {
	ListRetentionEnabledPages(ctx context.Context) ([]model.Page, error)
	GetUserSettingsForPage(ctx context.Context, pageID string) (model.UserSettings, error)
	ListScreenshots(ctx context.Context, pageID string) ([]model.Screenshot, error)
	DeleteScreenshot(ctx context.Context, screenshotID string) error
}

// Sweeper runs the retention policy across every retention-enabled page.
type Sweeper struct {
	store  Store
	files  storage.Store
	logger *slog.Logger
}

// NewSweeper constructs a Sweeper.
func NewSweeper(store Store, files storage.Store, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: store, files: files, logger: logger}
}

// Sweep evaluates and applies the retention policy for every
// retention-enabled page, deleting both the backing files and the database
// rows for anything the policy drops. Best-effort: a missing file is
// tolerated, and failure on one page does not stop the others.
func (sw *Sweeper) Sweep(ctx context.Context, now time.Time) (deleted int, err error) {
	pages, err := sw.store.ListRetentionEnabledPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("retention: list pages: %w", err)
	}

	for _, page := range pages {
		n, err := sw.sweepPage(ctx, page, now)
		if err != nil {
			sw.logger.Error("retention sweep failed for page", "page", page.ID, "err", err)
			continue
		}
		deleted += n
	}
	return deleted, nil
}

func (sw *Sweeper) sweepPage(ctx context.Context, page model.Page, now time.Time) (int, error) {
	settings, err := sw.store.GetUserSettingsForPage(ctx, page.ID)
	if err != nil {
		return 0, fmt.Errorf("settings: %w", err)
	}

	// Snapshot screenshots before evaluating so a screenshot created by a
	// concurrent capture mid-sweep is simply invisible to this pass rather
	// than racily included or excluded.
	screenshots, err := sw.store.ListScreenshots(ctx, page.ID)
	if err != nil {
		return 0, fmt.Errorf("list screenshots: %w", err)
	}

	plan := Evaluate(screenshots, settings, now)

	deleted := 0
	for _, s := range plan.Delete {
		if err := sw.files.Delete(ctx, s.StoragePath); err != nil {
			sw.logger.Warn("failed to delete screenshot file", "screenshot", s.ID, "err", err)
		}
		if s.ThumbnailPath != "" {
			if err := sw.files.Delete(ctx, s.ThumbnailPath); err != nil {
				sw.logger.Warn("failed to delete thumbnail file", "screenshot", s.ID, "err", err)
			}
		}
		if err := sw.store.DeleteScreenshot(ctx, s.ID); err != nil {
			sw.logger.Error("failed to delete screenshot row", "screenshot", s.ID, "err", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}
