package scheduler

import (
	"testing"
	"time"
)

func TestRetryCooldown(t *testing.T) {
	base := 5 * time.Minute
	cases := []struct {
		failures int
		want     time.Duration
	}{
		{0, 0},
		{1, 5 * time.Minute},
		{2, 10 * time.Minute},
		{3, 20 * time.Minute},
		{10, maxRetryDelay},
	}
	for _, c := range cases {
		if got := retryCooldown(base, c.failures); got != c.want {
			t.Errorf("retryCooldown(%v, %d) = %v, want %v", base, c.failures, got, c.want)
		}
	}
}
