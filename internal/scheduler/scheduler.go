// Package scheduler selects pages due for capture, runs their capture jobs
// against the browser pool, and periodically resets stale in-flight jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tomasbasham/pageshot/internal/browserpool"
	"github.com/tomasbasham/pageshot/internal/storage"
)

// Scheduler owns the capture poll (which also resets stale jobs before each
// run) and the per-page processing pipeline.
type Scheduler struct {
	cfg     Config
	store   Store
	storage storage.Store
	pool    *browserpool.Pool
	logger  *slog.Logger

	activeJobs *activeJobSet
	cron       *cron.Cron
	wg         sync.WaitGroup

	mu       sync.Mutex
	lastPoll time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New constructs a Scheduler. It does not start any background work; call
// Start for that.
func New(cfg Config, store Store, screenshots storage.Store, pool *browserpool.Pool, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:        cfg,
		store:      store,
		storage:    screenshots,
		pool:       pool,
		logger:     slog.Default(),
		activeJobs: newActiveJobSet(),
		cron:       cron.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resets any stale jobs left over from a previous run, then schedules
// the capture poll (which itself resets stale jobs before every run). It
// returns immediately; the poll runs on cron's own goroutine until Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.resetStale(ctx)

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.cfg.PollInterval), func() {
		s.wg.Add(1)
		defer s.wg.Done()
		s.poll(ctx)
	}); err != nil {
		return fmt.Errorf("scheduler: schedule poll: %w", err)
	}

	s.cron.Start()

	return nil
}

// Stop halts the cron scheduler and waits for in-flight polls and the page
// captures they started to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
}

// LastPoll reports when the capture poll last ran, for the health endpoint.
// It is the zero Time until the first poll completes.
func (s *Scheduler) LastPoll() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoll
}

func (s *Scheduler) poll(ctx context.Context) {
	defer func() {
		s.mu.Lock()
		s.lastPoll = time.Now()
		s.mu.Unlock()
	}()

	s.resetStale(ctx)

	due, err := SelectDuePages(ctx, s.store, s.cfg, time.Now())
	if err != nil {
		s.logger.Error("select due pages failed", "err", err)
		return
	}

	for _, d := range due {
		d := d
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.processPage(ctx, d, s.logger)
		}()
	}
}

func (s *Scheduler) resetStale(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.StaleJobTimeout)
	n, err := s.store.ResetStaleJobs(ctx, cutoff)
	if err != nil {
		s.logger.Error("reset stale jobs failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("reset stale capturing jobs", "count", n)
	}
}
