package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

type fakeStore struct {
	pages        []model.Page
	sites        map[string]model.Site
	settings     map[string]*model.UserSettings
	pending      map[string]*model.CaptureJob
	failures     map[string]int
	lastTerminal map[string]*model.CaptureJob
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sites:        map[string]model.Site{},
		settings:     map[string]*model.UserSettings{},
		pending:      map[string]*model.CaptureJob{},
		failures:     map[string]int{},
		lastTerminal: map[string]*model.CaptureJob{},
	}
}

func (f *fakeStore) ListActivePages(ctx context.Context) ([]model.Page, error) { return f.pages, nil }
func (f *fakeStore) GetSite(ctx context.Context, siteID string) (model.Site, error) {
	return f.sites[siteID], nil
}
func (f *fakeStore) GetUserSettings(ctx context.Context, userID string) (*model.UserSettings, error) {
	return f.settings[userID], nil
}
func (f *fakeStore) PendingJob(ctx context.Context, pageID string) (*model.CaptureJob, error) {
	return f.pending[pageID], nil
}
func (f *fakeStore) LastTerminalJob(ctx context.Context, pageID string) (*model.CaptureJob, error) {
	return f.lastTerminal[pageID], nil
}
func (f *fakeStore) ConsecutiveFailures(ctx context.Context, pageID string) (int, error) {
	return f.failures[pageID], nil
}
func (f *fakeStore) CreateJob(ctx context.Context, job model.CaptureJob) error { return nil }
func (f *fakeStore) UpdateJob(ctx context.Context, job model.CaptureJob) error { return nil }
func (f *fakeStore) InsertScreenshot(ctx context.Context, s model.Screenshot) error { return nil }
func (f *fakeStore) InsertScreenshotError(ctx context.Context, e model.ScreenshotError) error {
	return nil
}
func (f *fakeStore) InsertTestResult(ctx context.Context, r model.TestResult) error { return nil }
func (f *fakeStore) RecordInstructionOutcome(ctx context.Context, instructionID string, success bool, message string, at time.Time) error {
	return nil
}
func (f *fakeStore) ListInstructions(ctx context.Context, pageID string) ([]model.Instruction, error) {
	return nil, nil
}
func (f *fakeStore) ListTests(ctx context.Context, pageID string) ([]model.Test, error) {
	return nil, nil
}
func (f *fakeStore) TouchPageLastScreenshot(ctx context.Context, pageID string, at time.Time) error {
	return nil
}
func (f *fakeStore) ResetStaleJobs(ctx context.Context, olderThan time.Time) (int, error) {
	return 0, nil
}

var _ Store = (*fakeStore)(nil)

func testConfig() Config {
	return Config{
		BaseRetryDelay:         5 * time.Minute,
		MaxConsecutiveFailures: 5,
		DefaultIntervalMinutes: 1440,
		DefaultViewportWidths:  []int{1920, 768, 375},
	}
}

func TestSelectDuePagesPendingJobAlwaysClaims(t *testing.T) {
	store := newFakeStore()
	store.pages = []model.Page{{ID: "p1", SiteID: "s1", IsActive: true}}
	store.sites["s1"] = model.Site{ID: "s1", UserID: "u1"}
	store.pending["p1"] = &model.CaptureJob{ID: "j1", PageID: "p1"}
	store.failures["p1"] = 99 // would otherwise be blocked

	due, err := SelectDuePages(context.Background(), store, testConfig(), time.Now())
	if err != nil {
		t.Fatalf("SelectDuePages: %v", err)
	}
	if len(due) != 1 || due[0].Reason != DueReasonPendingJob {
		t.Fatalf("expected one pending-job due page, got %+v", due)
	}
}

func TestSelectDuePagesSkipsWhenNotDueByInterval(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	recent := now.Add(-time.Minute)
	store.pages = []model.Page{{ID: "p1", SiteID: "s1", IsActive: true, LastScreenshotAt: &recent}}
	store.sites["s1"] = model.Site{ID: "s1", UserID: "u1"}

	due, err := SelectDuePages(context.Background(), store, testConfig(), now)
	if err != nil {
		t.Fatalf("SelectDuePages: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected no due pages, got %+v", due)
	}
}

func TestSelectDuePagesBlockedByMaxConsecutiveFailures(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	store.pages = []model.Page{{ID: "p1", SiteID: "s1", IsActive: true, LastScreenshotAt: &old}}
	store.sites["s1"] = model.Site{ID: "s1", UserID: "u1"}
	store.failures["p1"] = 5

	due, err := SelectDuePages(context.Background(), store, testConfig(), now)
	if err != nil {
		t.Fatalf("SelectDuePages: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected page blocked by max consecutive failures, got %+v", due)
	}
}

func TestSelectDuePagesRespectsCooldown(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	old := now.Add(-48 * time.Hour)
	store.pages = []model.Page{{ID: "p1", SiteID: "s1", IsActive: true, LastScreenshotAt: &old}}
	store.sites["s1"] = model.Site{ID: "s1", UserID: "u1"}
	store.failures["p1"] = 1
	recentFailure := now.Add(-time.Minute)
	store.lastTerminal["p1"] = &model.CaptureJob{CompletedAt: &recentFailure}

	due, err := SelectDuePages(context.Background(), store, testConfig(), now)
	if err != nil {
		t.Fatalf("SelectDuePages: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("expected page still cooling down, got %+v", due)
	}
}

func TestSelectDuePagesIntervalElapsedOrdering(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	older := now.Add(-48 * time.Hour)
	oldest := now.Add(-72 * time.Hour)
	store.pages = []model.Page{
		{ID: "p1", SiteID: "s1", IsActive: true, LastScreenshotAt: &older},
		{ID: "p2", SiteID: "s1", IsActive: true, LastScreenshotAt: &oldest},
	}
	store.sites["s1"] = model.Site{ID: "s1", UserID: "u1"}

	due, err := SelectDuePages(context.Background(), store, testConfig(), now)
	if err != nil {
		t.Fatalf("SelectDuePages: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected both pages due, got %+v", due)
	}
	if due[0].Page.ID != "p2" {
		t.Fatalf("expected p2 (oldest LastScreenshotAt) first, got %s", due[0].Page.ID)
	}
}
