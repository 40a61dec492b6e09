// Package retention implements the GFS (Grandfather-Father-Son) screenshot
// retention policy: bucket screenshots by age, keep an even sample of each
// bucket, and delete everything else.
package retention

import (
	"fmt"
	"time"
)

// Bucket identifies a retention bucket a screenshot falls into.
type Bucket struct {
	Kind string // "day", "week", "month", "year"
	Key  string // e.g. "2026-03-05", "2026-W10", "2026-03", "2026"
}

// bucketFor classifies a screenshot's age relative to now into exactly one
// bucket, in order of decreasing granularity: age <= 7 days buckets by day,
// <= 30 days by ISO week, <= 365 days by month, else by year.
func bucketFor(capturedAt, now time.Time) Bucket {
	age := now.Sub(capturedAt)
	switch {
	case age <= 7*24*time.Hour:
		return Bucket{Kind: "day", Key: capturedAt.Format("2006-01-02")}
	case age <= 30*24*time.Hour:
		year, week := capturedAt.ISOWeek()
		return Bucket{Kind: "week", Key: weekKey(year, week)}
	case age <= 365*24*time.Hour:
		return Bucket{Kind: "month", Key: capturedAt.Format("2006-01")}
	default:
		return Bucket{Kind: "year", Key: capturedAt.Format("2006")}
	}
}

func weekKey(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
