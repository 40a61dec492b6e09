package retention

import (
	"testing"
	"time"
)

func TestBucketForBoundaries(t *testing.T) {
	now := time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		age  time.Duration
		kind string
	}{
		{"just now", 0, "day"},
		{"six days", 6 * 24 * time.Hour, "day"},
		{"eight days", 8 * 24 * time.Hour, "week"},
		{"four weeks", 4 * 7 * 24 * time.Hour, "week"},
		{"six weeks", 6 * 7 * 24 * time.Hour, "month"},
		{"twelve months", 12 * 30 * 24 * time.Hour, "month"},
		{"fourteen months", 14 * 30 * 24 * time.Hour, "year"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := bucketFor(now.Add(-c.age), now)
			if b.Kind != c.kind {
				t.Errorf("age %v: got kind %q, want %q", c.age, b.Kind, c.kind)
			}
		})
	}
}
