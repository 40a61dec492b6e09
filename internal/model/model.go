// Package model defines the entity types shared across the capture worker:
// the typed record for every table described in the data model, parsed once
// at the storage boundary rather than passed around as untyped rows.
package model

import "time"

// ViewportTag categorises a viewport width into one of three buckets used
// throughout scheduling, capture and test filtering.
type ViewportTag string

const (
	ViewportMobile  ViewportTag = "mobile"
	ViewportTablet  ViewportTag = "tablet"
	ViewportDesktop ViewportTag = "desktop"
)

// TagForWidth derives the viewport tag from a width in pixels per the rule in
// width <= 480 => mobile, <= 1024 => tablet, else desktop.
func TagForWidth(width int) ViewportTag {
	switch {
	case width <= 480:
		return ViewportMobile
	case width <= 1024:
		return ViewportTablet
	default:
		return ViewportDesktop
	}
}

// HeightForTag returns the canonical viewport height for a tag
// step 1 (mobile=812, tablet=1024, desktop=1080).
func HeightForTag(tag ViewportTag) int {
	switch tag {
	case ViewportMobile:
		return 812
	case ViewportTablet:
		return 1024
	default:
		return 1080
	}
}

// ScriptType discriminates how an Instruction or Test script is interpreted.
type ScriptType string

const (
	ScriptTypeEval    ScriptType = "eval"
	ScriptTypeActions ScriptType = "actions"
)

// JobStatus is the lifecycle state of a CaptureJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobCapturing JobStatus = "capturing"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status represents a finished job.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ScreenshotErrorKind discriminates the union of ScreenshotError payloads.
type ScreenshotErrorKind string

const (
	ScreenshotErrorJS      ScreenshotErrorKind = "js"
	ScreenshotErrorNetwork ScreenshotErrorKind = "network"
)

// User is an identity principal managed outside the core. Only the
// fields the core reads are modelled.
type User struct {
	ID   string
	Name string
}

// UserSettings holds the per-user defaults and retention policy.
type UserSettings struct {
	UserID                 string
	DefaultIntervalMinutes int
	DefaultViewportWidths  []int
	RetentionEnabled       bool
	MaxScreenshotsPerPage  *int
	MaxAgeDays             *int
	KeepPerDay             int
	KeepPerWeek            int
	KeepPerMonth           int
	KeepPerYear            int
}

// Site is owned by a User.
type Site struct {
	ID              string
	UserID          string
	Domain          string
	Name            string
	IntervalMinutes *int
	ViewportWidths  []int
}

// Page is owned by a Site. IntervalMinutes and ViewportWidths are
// per-page overrides; nil means "inherit".
type Page struct {
	ID               string
	SiteID           string
	URL              string
	Name             string
	IsActive         bool
	LastScreenshotAt *time.Time
	IntervalMinutes  *int
	ViewportWidths   []int
}

// Instruction is an ordered, user-authored interaction script run before
// capture.
type Instruction struct {
	ID             string
	PageID         string
	Name           string
	Prompt         string
	Script         string
	ScriptType     ScriptType
	ExecutionOrder int
	IsActive       bool
	LastError      string
	LastErrorAt    *time.Time
	LastSuccessAt  *time.Time
	ErrorCount     int
}

// Test is an assertion script evaluated against each captured viewport.
// ViewportFilter, when non-empty, restricts the test to matching tags.
type Test struct {
	ID             string
	PageID         string
	Name           string
	Prompt         string
	Script         string
	ScriptType     ScriptType
	IsActive       bool
	ViewportFilter []ViewportTag
	LastError      string
	LastErrorAt    *time.Time
	LastSuccessAt  *time.Time
	ErrorCount     int
}

// RunsForViewport reports whether the test should run for the given tag,
// honouring the optional viewport filter.
func (t Test) RunsForViewport(tag ViewportTag) bool {
	if len(t.ViewportFilter) == 0 {
		return true
	}
	for _, f := range t.ViewportFilter {
		if f == tag {
			return true
		}
	}
	return false
}

// CaptureJob tracks one capture attempt for a Page across all its viewports.
// At most one non-terminal job exists per Page at any instant.
type CaptureJob struct {
	ID                 string
	PageID             string
	Status             JobStatus
	CurrentViewport    string
	ViewportsCompleted int
	ViewportsTotal     int
	ErrorMessage       string
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
}

// Screenshot is immutable after creation.
type Screenshot struct {
	ID            string
	PageID        string
	ViewportTag   ViewportTag
	ViewportWidth int
	StoragePath   string
	ThumbnailPath string
	ByteSize      int64
	ImageWidth    int
	ImageHeight   int
	CreatedAt     time.Time
}

// ScreenshotError is a child of Screenshot, discriminated by Kind.
type ScreenshotError struct {
	ID           string
	ScreenshotID string
	Kind         ScreenshotErrorKind
	Message      string
	// Source is the script URL reported with the exception (kind=js) or the
	// CDP request ID of the failed request (kind=network).
	Source     string
	StatusCode int // 0 when not recorded; the capture pipeline leaves it 0
	OccurredAt time.Time
}

// TestResult is a child of Test and Screenshot; a Test runs at most once per
// Screenshot.
type TestResult struct {
	ID              string
	TestID          string
	ScreenshotID    string
	Passed          bool
	Message         string
	ExecutionTimeMS int64
	CreatedAt       time.Time
}

// EffectiveInterval resolves the interval chain: page -> site -> user ->
// hardcoded default.
func EffectiveInterval(page Page, site Site, settings *UserSettings, hardcodedDefault int) int {
	if page.IntervalMinutes != nil {
		return *page.IntervalMinutes
	}
	if site.IntervalMinutes != nil {
		return *site.IntervalMinutes
	}
	if settings != nil && settings.DefaultIntervalMinutes > 0 {
		return settings.DefaultIntervalMinutes
	}
	return hardcodedDefault
}

// EffectiveViewports resolves the viewport-width chain: page -> site -> user
// -> hardcoded default.
func EffectiveViewports(page Page, site Site, settings *UserSettings, hardcodedDefault []int) []int {
	if len(page.ViewportWidths) > 0 {
		return page.ViewportWidths
	}
	if len(site.ViewportWidths) > 0 {
		return site.ViewportWidths
	}
	if settings != nil && len(settings.DefaultViewportWidths) > 0 {
		return settings.DefaultViewportWidths
	}
	return hardcodedDefault
}
