package retention

import (
	"sort"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

// bucketKeepCounts maps a Bucket.Kind to how many samples survive from it,
// resolved from the page owner's retention settings.
func bucketKeepCounts(settings model.UserSettings) map[string]int {
	return map[string]int{
		"day":   settings.KeepPerDay,
		"week":  settings.KeepPerWeek,
		"month": settings.KeepPerMonth,
		"year":  settings.KeepPerYear,
	}
}

// Plan is the outcome of evaluating a page's screenshots against its
// retention policy: which screenshots to keep and which to delete.
type Plan struct {
	Keep   []model.Screenshot
	Delete []model.Screenshot
}

// Evaluate decides which of screenshots survive the GFS bucketing policy in
// settings, as of now. It is a pure function of its inputs: given the same
// screenshots, settings and now, it always produces the same plan, so it is
// safe to call on a snapshot taken before any concurrent capture can add
// new rows.
func Evaluate(screenshots []model.Screenshot, settings model.UserSettings, now time.Time) Plan {
	sorted := make([]model.Screenshot, len(screenshots))
	copy(sorted, screenshots)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var plan Plan

	// Step 1, hard-cap: trim to the most recent MaxScreenshotsPerPage
	// screenshots before anything else runs, so an item beyond the cap never
	// reaches the GFS buckets at all.
	capped := sorted
	if settings.MaxScreenshotsPerPage != nil && len(capped) > *settings.MaxScreenshotsPerPage {
		limit := *settings.MaxScreenshotsPerPage
		plan.Delete = append(plan.Delete, capped[:len(capped)-limit]...)
		capped = capped[len(capped)-limit:]
	}

	// Step 2, max-age: anything older than the cutoff is deleted outright,
	// regardless of which bucket it would otherwise land in.
	var candidates []model.Screenshot
	if settings.MaxAgeDays != nil {
		cutoff := now.Add(-time.Duration(*settings.MaxAgeDays) * 24 * time.Hour)
		for _, s := range capped {
			if s.CreatedAt.Before(cutoff) {
				plan.Delete = append(plan.Delete, s)
			} else {
				candidates = append(candidates, s)
			}
		}
	} else {
		candidates = capped
	}

	// Steps 3-4, GFS bucket and per-bucket select.
	keepCounts := bucketKeepCounts(settings)
	buckets := make(map[Bucket][]model.Screenshot)
	var bucketOrder []Bucket
	for _, s := range candidates {
		b := bucketFor(s.CreatedAt, now)
		if _, seen := buckets[b]; !seen {
			bucketOrder = append(bucketOrder, b)
		}
		buckets[b] = append(buckets[b], s)
	}

	for _, b := range bucketOrder {
		group := buckets[b]
		keep := keepCounts[b.Kind]
		if keep <= 0 {
			plan.Delete = append(plan.Delete, group...)
			continue
		}
		if len(group) <= keep {
			plan.Keep = append(plan.Keep, group...)
			continue
		}
		kept, dropped := evenSample(group, keep)
		plan.Keep = append(plan.Keep, kept...)
		plan.Delete = append(plan.Delete, dropped...)
	}

	return plan
}

// evenSample picks keep items spread evenly across group (already sorted
// ascending by CreatedAt), using index i*len(group)/keep for i in
// [0, keep) — the same even-sampling formula a thumbnail filmstrip or a
// decimated time series would use, so the retained screenshots still span
// the whole bucket rather than clustering at one end.
func evenSample(group []model.Screenshot, keep int) (kept, dropped []model.Screenshot) {
	keepIdx := make(map[int]bool, keep)
	for i := 0; i < keep; i++ {
		idx := i * len(group) / keep
		keepIdx[idx] = true
	}
	for i, s := range group {
		if keepIdx[i] {
			kept = append(kept, s)
		} else {
			dropped = append(dropped, s)
		}
	}
	return kept, dropped
}
