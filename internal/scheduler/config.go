package scheduler

import "time"

// Config holds the tunables that govern scheduling behaviour. Zero values
// are not valid; internal/config populates this from the environment.
type Config struct {
	PollInterval           time.Duration
	CleanupInterval        time.Duration
	BaseRetryDelay         time.Duration
	MaxConsecutiveFailures int
	StaleJobTimeout        time.Duration
	DefaultIntervalMinutes int
	DefaultViewportWidths  []int
	PoolSize               int
}
