package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

// DueReason records why SelectDuePages picked a page.
type DueReason string

const (
	DueReasonPendingJob      DueReason = "pending_job"
	DueReasonIntervalElapsed DueReason = "interval_elapsed"
)

// DuePage is one page selected for capture by SelectDuePages.
type DuePage struct {
	Page        model.Page
	Reason      DueReason
	ExistingJob *model.CaptureJob
}

// SelectDuePages returns every active page that should be captured right
// now: either because a pending job already exists for it (a pending job
// always claims, even through an auto-retry cooldown or consecutive-failure
// block), or because its effective interval has elapsed and it is neither
// blocked nor cooling down.
//
// Pending-job pages sort first (by page ID descending), then
// interval-elapsed pages sort by LastScreenshotAt ascending (oldest first).
func SelectDuePages(ctx context.Context, store Store, cfg Config, now time.Time) ([]DuePage, error) {
	pages, err := store.ListActivePages(ctx)
	if err != nil {
		return nil, fmt.Errorf("scheduler: list active pages: %w", err)
	}

	var pending, interval []DuePage

	for _, page := range pages {
		job, err := store.PendingJob(ctx, page.ID)
		if err != nil {
			return nil, fmt.Errorf("scheduler: pending job for page %s: %w", page.ID, err)
		}
		if job != nil {
			pending = append(pending, DuePage{Page: page, Reason: DueReasonPendingJob, ExistingJob: job})
			continue
		}

		if !page.IsActive {
			continue
		}

		due, err := intervalElapsed(ctx, store, cfg, page, now)
		if err != nil {
			return nil, err
		}
		if due {
			interval = append(interval, DuePage{Page: page, Reason: DueReasonIntervalElapsed})
		}
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].Page.ID > pending[j].Page.ID })
	sort.Slice(interval, func(i, j int) bool {
		a, b := interval[i].Page.LastScreenshotAt, interval[j].Page.LastScreenshotAt
		if a == nil {
			return b != nil || interval[i].Page.ID < interval[j].Page.ID
		}
		if b == nil {
			return false
		}
		if a.Equal(*b) {
			return interval[i].Page.ID < interval[j].Page.ID
		}
		return a.Before(*b)
	})

	return append(pending, interval...), nil
}

func intervalElapsed(ctx context.Context, store Store, cfg Config, page model.Page, now time.Time) (bool, error) {
	site, err := store.GetSite(ctx, page.SiteID)
	if err != nil {
		return false, fmt.Errorf("scheduler: site for page %s: %w", page.ID, err)
	}
	settings, err := store.GetUserSettings(ctx, site.UserID)
	if err != nil {
		return false, fmt.Errorf("scheduler: settings for user %s: %w", site.UserID, err)
	}

	interval := time.Duration(model.EffectiveInterval(page, site, settings, cfg.DefaultIntervalMinutes)) * time.Minute
	if page.LastScreenshotAt != nil && now.Sub(*page.LastScreenshotAt) < interval {
		return false, nil
	}

	failures, err := store.ConsecutiveFailures(ctx, page.ID)
	if err != nil {
		return false, fmt.Errorf("scheduler: consecutive failures for page %s: %w", page.ID, err)
	}
	if failures >= cfg.MaxConsecutiveFailures {
		return false, nil
	}
	if failures == 0 {
		return true, nil
	}

	lastTerminal, err := store.LastTerminalJob(ctx, page.ID)
	if err != nil {
		return false, fmt.Errorf("scheduler: last terminal job for page %s: %w", page.ID, err)
	}
	if lastTerminal == nil || lastTerminal.CompletedAt == nil {
		return true, nil
	}

	cooldown := retryCooldown(cfg.BaseRetryDelay, failures)
	return now.Sub(*lastTerminal.CompletedAt) >= cooldown, nil
}
