// Package capture drives a single viewport's worth of a capture job: open a
// page, run it through the preparator, execute any configured instructions
// and tests, then take a full-page screenshot and its thumbnail.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"

	"github.com/tomasbasham/pageshot/internal/actions"
	"github.com/tomasbasham/pageshot/internal/browserpool"
	"github.com/tomasbasham/pageshot/internal/model"
	"github.com/tomasbasham/pageshot/internal/prepare"
	"github.com/tomasbasham/pageshot/internal/storage"
)

const instructionPause = 500 * time.Millisecond

// ErrBrowserCrashed indicates the tab's target crashed or the browser
// disconnected mid-capture, as opposed to an ordinary page-level failure
// (bad selector, navigation timeout, store write error). Callers should
// route the browser to Pool.ReportCrash rather than Pool.Release when this
// wraps the returned error.
var ErrBrowserCrashed = errors.New("capture: browser crashed")

// Input describes one viewport's capture within a larger CaptureJob.
type Input struct {
	Page          model.Page
	ViewportWidth int

	// Instructions must already be filtered to active, script-present rows
	// and ordered by ExecutionOrder.
	Instructions []model.Instruction

	// Tests is the full set configured for the page; RunsForViewport filters
	// per viewport internally.
	Tests []model.Test

	// ReportInstructions is true only for the first viewport captured in a
	// job — instructions execute on every viewport to keep the page in the
	// right state, but their pass/fail is recorded once.
	ReportInstructions bool
}

// InstructionOutcome is the result of running one Instruction during a
// capture.
type InstructionOutcome struct {
	InstructionID string
	Success       bool
	ErrorMessage  string
}

// Output is everything a single viewport capture produced.
type Output struct {
	Tag      model.ViewportTag
	Success  bool
	ErrorMessage string

	Screenshot       model.Screenshot
	ScreenshotErrors []model.ScreenshotError
	TestResults      []model.TestResult
	Instructions     []InstructionOutcome
}

// Run captures one viewport of page against a checked-out browser, writing
// the resulting PNGs to store.
func Run(ctx context.Context, browser *browserpool.Browser, store storage.Store, in Input) (Output, error) {
	tag := model.TagForWidth(in.ViewportWidth)
	height := model.HeightForTag(tag)

	tabCtx, cancel := chromedp.NewContext(browser.Context())
	defer cancel()

	errColl := newErrorCollector()
	errColl.listen(tabCtx)

	out := Output{Tag: tag}

	// fail records a page-level failure on out, but reports ErrBrowserCrashed
	// instead of nil when the underlying target crashed or the browser's own
	// context died mid-step, so the caller can replace the browser rather
	// than release it back into rotation.
	fail := func(step string, err error) (Output, error) {
		out.ErrorMessage = fmt.Sprintf("%s failed: %v", step, err)
		if errColl.crashedTarget() || browser.Context().Err() != nil {
			return out, fmt.Errorf("%s: %w", step, ErrBrowserCrashed)
		}
		return out, nil
	}

	if _, err := prepare.Run(tabCtx, prepare.Options{
		URL: in.Page.URL,
		Viewport: prepare.Viewport{
			Width:  int64(in.ViewportWidth),
			Height: int64(height),
		},
	}); err != nil {
		return fail("prepare", err)
	}

	out.Instructions = runInstructions(tabCtx, in.Instructions)

	if err := autoscroll(tabCtx); err != nil {
		return fail("autoscroll", err)
	}

	dims, err := measurePage(tabCtx)
	if err != nil {
		return fail("measure", err)
	}

	targetWidth := dims.Width
	if in.ViewportWidth < targetWidth {
		targetWidth = in.ViewportWidth
	}
	targetHeight := dims.Height

	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(targetWidth), int64(targetHeight))); err != nil {
		return fail("resize to content", err)
	}

	var png []byte
	if err := chromedp.Run(tabCtx, chromedp.CaptureScreenshot(&png)); err != nil {
		return fail("screenshot", err)
	}

	thumb, err := buildThumbnail(png)
	if err != nil {
		return fail("thumbnail", err)
	}

	now := time.Now()
	objectPath := storage.ObjectPath(in.Page.ID, now, string(tag))
	thumbPath := storage.ThumbnailPath(objectPath)

	if err := store.Write(ctx, objectPath, bytes.NewReader(png)); err != nil {
		return fail("storing screenshot", err)
	}
	if err := store.Write(ctx, thumbPath, bytes.NewReader(thumb)); err != nil {
		return fail("storing thumbnail", err)
	}

	screenshot := model.Screenshot{
		ID:            uuid.NewString(),
		PageID:        in.Page.ID,
		ViewportTag:   tag,
		ViewportWidth: in.ViewportWidth,
		StoragePath:   objectPath,
		ThumbnailPath: thumbPath,
		ByteSize:      int64(len(png)),
		ImageWidth:    targetWidth,
		ImageHeight:   targetHeight,
		CreatedAt:     now,
	}
	out.Screenshot = screenshot
	out.Success = true

	for _, ce := range errColl.drain() {
		out.ScreenshotErrors = append(out.ScreenshotErrors, model.ScreenshotError{
			ID:           uuid.NewString(),
			ScreenshotID: screenshot.ID,
			Kind:         ce.Kind,
			Message:      ce.Message,
			Source:       ce.Source,
			StatusCode:   ce.StatusCode,
			OccurredAt:   ce.OccurredAt,
		})
	}

	out.TestResults = runTests(tabCtx, tag, screenshot.ID, in.Tests)

	return out, nil
}

func runInstructions(ctx context.Context, instructions []model.Instruction) []InstructionOutcome {
	sorted := make([]model.Instruction, len(instructions))
	copy(sorted, instructions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ExecutionOrder < sorted[j].ExecutionOrder })

	outcomes := make([]InstructionOutcome, 0, len(sorted))
	for _, ins := range sorted {
		outcome := InstructionOutcome{InstructionID: ins.ID, Success: true}

		switch ins.ScriptType {
		case model.ScriptTypeActions:
			seq, err := actions.ParseSequence([]byte(ins.Script))
			if err != nil {
				outcome.Success = false
				outcome.ErrorMessage = fmt.Sprintf("malformed action sequence: %v", err)
				break
			}
			if _, err := actions.Execute(ctx, seq); err != nil {
				outcome.Success = false
				outcome.ErrorMessage = err.Error()
			}
		case model.ScriptTypeEval:
			var result any
			if err := chromedp.Run(ctx, chromedp.Evaluate(ins.Script, &result)); err != nil {
				outcome.Success = false
				outcome.ErrorMessage = err.Error()
			}
		}

		outcomes = append(outcomes, outcome)
		time.Sleep(instructionPause)
	}
	return outcomes
}

func runTests(ctx context.Context, tag model.ViewportTag, screenshotID string, tests []model.Test) []model.TestResult {
	var results []model.TestResult
	for _, test := range tests {
		if !test.IsActive || !test.RunsForViewport(tag) {
			continue
		}

		start := time.Now()
		result := model.TestResult{
			ID:           uuid.NewString(),
			TestID:       test.ID,
			ScreenshotID: screenshotID,
			Passed:       true,
			CreatedAt:    time.Now(),
		}

		switch test.ScriptType {
		case model.ScriptTypeActions:
			seq, err := actions.ParseSequence([]byte(test.Script))
			if err != nil {
				result.Passed = false
				result.Message = fmt.Sprintf("malformed action sequence: %v", err)
				break
			}
			outcomes, err := actions.Execute(ctx, seq)
			if err != nil {
				result.Passed = false
				result.Message = err.Error()
				break
			}
			for _, o := range outcomes {
				if !o.Success {
					result.Passed = false
					result.Message = o.Message
					break
				}
			}
		case model.ScriptTypeEval:
			var ok bool
			if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`Boolean(%s)`, test.Script), &ok)); err != nil {
				result.Passed = false
				result.Message = err.Error()
			} else if !ok {
				result.Passed = false
				result.Message = "eval expression returned a falsy value"
			}
		}

		result.ExecutionTimeMS = time.Since(start).Milliseconds()
		results = append(results, result)
	}
	return results
}
