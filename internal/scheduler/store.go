package scheduler

import (
	"context"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

// Store is everything the scheduler needs from persistence. internal/store
// provides the Postgres-backed implementation.
type Store interface {
	ListActivePages(ctx context.Context) ([]model.Page, error)
	GetSite(ctx context.Context, siteID string) (model.Site, error)
	GetUserSettings(ctx context.Context, userID string) (*model.UserSettings, error)

	// PendingJob returns the most recent non-terminal job for pageID, if any.
	PendingJob(ctx context.Context, pageID string) (*model.CaptureJob, error)

	// LastTerminalJob returns the most recently completed or failed job for
	// pageID, used as the cooldown baseline.
	LastTerminalJob(ctx context.Context, pageID string) (*model.CaptureJob, error)

	// ConsecutiveFailures counts failed jobs for pageID since the last
	// non-failed job (or since the beginning of history).
	ConsecutiveFailures(ctx context.Context, pageID string) (int, error)

	CreateJob(ctx context.Context, job model.CaptureJob) error
	UpdateJob(ctx context.Context, job model.CaptureJob) error

	InsertScreenshot(ctx context.Context, s model.Screenshot) error
	InsertScreenshotError(ctx context.Context, e model.ScreenshotError) error
	InsertTestResult(ctx context.Context, r model.TestResult) error
	RecordInstructionOutcome(ctx context.Context, instructionID string, success bool, message string, at time.Time) error

	ListInstructions(ctx context.Context, pageID string) ([]model.Instruction, error)
	ListTests(ctx context.Context, pageID string) ([]model.Test, error)

	TouchPageLastScreenshot(ctx context.Context, pageID string, at time.Time) error

	// ResetStaleJobs fails every capturing job whose started_at is older than
	// olderThan and returns how many were reset.
	ResetStaleJobs(ctx context.Context, olderThan time.Time) (int, error)
}
