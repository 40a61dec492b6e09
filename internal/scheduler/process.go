package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/pageshot/internal/capture"
	"github.com/tomasbasham/pageshot/internal/model"
)

// processPage claims or creates the job for due, acquires a browser, runs
// the capture pipeline across every configured viewport, and persists the
// outcome. It mirrors the teacher's Run-marks-running/marks-complete shape
// (internal/operation/worker.go), generalised to a multi-viewport job.
func (s *Scheduler) processPage(ctx context.Context, due DuePage, logger *slog.Logger) {
	pageID := due.Page.ID
	if !s.activeJobs.tryLock(pageID) {
		return
	}
	defer s.activeJobs.unlock(pageID)

	job := due.ExistingJob
	now := time.Now()
	if job == nil {
		job = &model.CaptureJob{
			ID:        uuid.NewString(),
			PageID:    pageID,
			Status:    model.JobPending,
			CreatedAt: now,
		}
		if err := s.store.CreateJob(ctx, *job); err != nil {
			logger.Error("create job failed", "page", pageID, "err", err)
			return
		}
	}

	job.Status = model.JobCapturing
	job.StartedAt = &now
	if err := s.store.UpdateJob(ctx, *job); err != nil {
		logger.Error("mark job capturing failed", "page", pageID, "job", job.ID, "err", err)
		return
	}

	site, err := s.store.GetSite(ctx, due.Page.SiteID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("load site: %v", err), logger)
		return
	}
	settings, err := s.store.GetUserSettings(ctx, site.UserID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("load settings: %v", err), logger)
		return
	}
	viewports := model.EffectiveViewports(due.Page, site, settings, s.cfg.DefaultViewportWidths)
	sort.Sort(sort.Reverse(sort.IntSlice(viewports)))

	instructions, err := s.store.ListInstructions(ctx, pageID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("load instructions: %v", err), logger)
		return
	}
	instructions = activeScripted(instructions)

	tests, err := s.store.ListTests(ctx, pageID)
	if err != nil {
		s.failJob(ctx, job, fmt.Sprintf("load tests: %v", err), logger)
		return
	}

	job.ViewportsTotal = len(viewports)
	anySuccess := false
	var firstErr string

	for i, width := range viewports {
		job.CurrentViewport = string(model.TagForWidth(width))
		_ = s.store.UpdateJob(ctx, *job)

		isFirst := i == 0
		out, err := s.captureOneViewport(ctx, due.Page, width, instructions, tests, isFirst)
		if err != nil {
			if firstErr == "" {
				firstErr = err.Error()
			}
			continue
		}

		if !out.Success {
			if firstErr == "" {
				firstErr = out.ErrorMessage
			}
			continue
		}

		anySuccess = true
		job.ViewportsCompleted++

		if err := s.store.InsertScreenshot(ctx, out.Screenshot); err != nil {
			logger.Error("insert screenshot failed", "page", pageID, "err", err)
			continue
		}
		for _, se := range out.ScreenshotErrors {
			if err := s.store.InsertScreenshotError(ctx, se); err != nil {
				logger.Error("insert screenshot error failed", "page", pageID, "err", err)
			}
		}
		for _, tr := range out.TestResults {
			if err := s.store.InsertTestResult(ctx, tr); err != nil {
				logger.Error("insert test result failed", "page", pageID, "err", err)
			}
		}
		if isFirst {
			for _, io := range out.Instructions {
				_ = s.store.RecordInstructionOutcome(ctx, io.InstructionID, io.Success, io.ErrorMessage, time.Now())
			}
		}
	}

	completed := time.Now()
	job.CompletedAt = &completed

	if anySuccess {
		job.Status = model.JobCompleted
		job.ErrorMessage = ""
		if err := s.store.TouchPageLastScreenshot(ctx, pageID, completed); err != nil {
			logger.Error("touch last screenshot failed", "page", pageID, "err", err)
		}
	} else {
		job.Status = model.JobFailed
		job.ErrorMessage = firstErr
	}

	if err := s.store.UpdateJob(ctx, *job); err != nil {
		logger.Error("finalise job failed", "page", pageID, "job", job.ID, "err", err)
	}
}

func (s *Scheduler) failJob(ctx context.Context, job *model.CaptureJob, msg string, logger *slog.Logger) {
	now := time.Now()
	job.Status = model.JobFailed
	job.ErrorMessage = msg
	job.CompletedAt = &now
	if err := s.store.UpdateJob(ctx, *job); err != nil {
		logger.Error("fail job failed", "job", job.ID, "err", err)
	}
}

func (s *Scheduler) captureOneViewport(ctx context.Context, page model.Page, width int, instructions []model.Instruction, tests []model.Test, isFirst bool) (capture.Output, error) {
	browser, err := s.pool.Acquire(ctx)
	if err != nil {
		return capture.Output{}, fmt.Errorf("acquire browser: %w", err)
	}

	out, err := capture.Run(ctx, browser, s.storage, capture.Input{
		Page:               page,
		ViewportWidth:      width,
		Instructions:       instructions,
		Tests:              tests,
		ReportInstructions: isFirst,
	})
	if err != nil {
		if errors.Is(err, capture.ErrBrowserCrashed) {
			s.pool.ReportCrash(ctx, browser)
		} else {
			s.pool.Release(browser)
		}
		return capture.Output{}, err
	}
	s.pool.Release(browser)
	return out, nil
}

func activeScripted(instructions []model.Instruction) []model.Instruction {
	out := make([]model.Instruction, 0, len(instructions))
	for _, ins := range instructions {
		if ins.IsActive && ins.Script != "" {
			out = append(out, ins)
		}
	}
	return out
}

// activeJobSet is a process-local mutex-per-page set preventing two
// goroutines from processing the same page concurrently.
type activeJobSet struct {
	mu    sync.Mutex
	pages map[string]struct{}
}

func newActiveJobSet() *activeJobSet {
	return &activeJobSet{pages: make(map[string]struct{})}
}

func (s *activeJobSet) tryLock(pageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pages[pageID]; busy {
		return false
	}
	s.pages[pageID] = struct{}{}
	return true
}

func (s *activeJobSet) unlock(pageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, pageID)
}
