package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultStepTimeout = 10 * time.Second

// StepOutcome is the runtime result of executing one Step.
type StepOutcome struct {
	Index      int
	Action     ActionKind
	Success    bool
	Message    string
	DurationMS int64
}

// Execute runs a (previously validated) Sequence against the page bound to
// ctx. Action steps that fail abort the sequence and return an error;
// assertion steps that fail are recorded in the returned outcomes but do not
// abort — the caller decides whether a failed assertion fails the overall
// test.
func Execute(ctx context.Context, seq Sequence) ([]StepOutcome, error) {
	outcomes := make([]StepOutcome, 0, len(seq.Steps))

	for i, step := range seq.Steps {
		start := time.Now()
		timeout := defaultStepTimeout
		if step.Timeout > 0 {
			timeout = time.Duration(step.Timeout) * time.Millisecond
		}
		stepCtx, cancel := context.WithTimeout(ctx, timeout)

		var success bool
		var msg string

		if isAssertion(step.Action) {
			success, msg = runAssertion(stepCtx, step)
		} else {
			err := runAction(stepCtx, step)
			success = err == nil
			if err != nil {
				msg = err.Error()
			}
		}
		cancel()

		outcomes = append(outcomes, StepOutcome{
			Index:      i,
			Action:     step.Action,
			Success:    success,
			Message:    msg,
			DurationMS: time.Since(start).Milliseconds(),
		})

		if !success && !isAssertion(step.Action) {
			return outcomes, fmt.Errorf("step %d (%s) failed: %s", i, step.Action, msg)
		}
	}

	return outcomes, nil
}

func runAction(ctx context.Context, step Step) error {
	switch step.Action {
	case WaitForSelector:
		opts := []chromedp.QueryOption{chromedp.ByQuery}
		if step.Visible == nil || *step.Visible {
			return chromedp.Run(ctx, chromedp.WaitVisible(step.Selector, opts...))
		}
		return chromedp.Run(ctx, chromedp.WaitReady(step.Selector, opts...))
	case Click:
		return chromedp.Run(ctx, chromedp.Click(step.Selector, chromedp.ByQuery))
	case Type:
		return chromedp.Run(ctx, chromedp.SendKeys(step.Selector, step.Text, chromedp.ByQuery))
	case Select:
		return chromedp.Run(ctx, chromedp.SetValue(step.Selector, step.Value, chromedp.ByQuery))
	case WaitForNavigation:
		return waitForNavigation(ctx)
	case Sleep:
		select {
		case <-time.After(time.Duration(step.MS) * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case ScrollTo:
		return runScrollTo(ctx, step)
	default:
		return fmt.Errorf("%s is not an executable action", step.Action)
	}
}

func waitForNavigation(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var state string
			if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
				return err
			}
			if state == "complete" {
				return nil
			}
		}
	}
}

func runScrollTo(ctx context.Context, step Step) error {
	if step.Selector != "" {
		return chromedp.Run(ctx, chromedp.ScrollIntoView(step.Selector, chromedp.ByQuery))
	}
	y := 0
	if step.Y != nil {
		y = *step.Y
	}
	return chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil))
}

func runAssertion(ctx context.Context, step Step) (bool, string) {
	switch step.Action {
	case AssertSelector:
		return assertSelector(ctx, step)
	case AssertText:
		return assertText(ctx, step)
	case AssertURL:
		return assertPattern(ctx, `window.location.href`, step.Pattern, step.Contains)
	case AssertTitle:
		return assertPattern(ctx, `document.title`, step.Pattern, step.Contains)
	case Assert:
		var ok bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(fmt.Sprintf(`Boolean(%s)`, step.Expression), &ok)); err != nil {
			return false, err.Error()
		}
		if !ok {
			msg := step.Message
			if msg == "" {
				msg = fmt.Sprintf("expression %q was falsy", step.Expression)
			}
			return false, msg
		}
		return true, ""
	default:
		return false, fmt.Sprintf("%s is not an assertion", step.Action)
	}
}

func assertSelector(ctx context.Context, step Step) (bool, string) {
	want := 1
	if step.Count != nil {
		want = *step.Count
	}
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, step.Selector)
	var got int
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &got)); err != nil {
		return false, err.Error()
	}
	if step.Count == nil {
		if got < 1 {
			return false, fmt.Sprintf("expected at least one match for %q, found 0", step.Selector)
		}
	} else if got != want {
		return false, fmt.Sprintf("expected %d matches for %q, found %d", want, step.Selector, got)
	}

	if step.Visible != nil && *step.Visible {
		visScript := fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; const r = el.getBoundingClientRect(); return r.width > 0 && r.height > 0; })()`, step.Selector)
		var visible bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(visScript, &visible)); err != nil {
			return false, err.Error()
		}
		if !visible {
			return false, fmt.Sprintf("%q matched but is not visible", step.Selector)
		}
	}
	return true, ""
}

func assertText(ctx context.Context, step Step) (bool, string) {
	script := fmt.Sprintf(`(document.querySelector(%q) || {}).innerText || ''`, step.Selector)
	var got string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &got)); err != nil {
		return false, err.Error()
	}
	if step.Contains {
		if !contains(got, step.Text) {
			return false, fmt.Sprintf("expected %q to contain %q", got, step.Text)
		}
		return true, ""
	}
	if got != step.Text {
		return false, fmt.Sprintf("expected %q, got %q", step.Text, got)
	}
	return true, ""
}

func assertPattern(ctx context.Context, jsExpr, pattern string, containsMode bool) (bool, string) {
	var got string
	if err := chromedp.Run(ctx, chromedp.Evaluate(jsExpr, &got)); err != nil {
		return false, err.Error()
	}
	if containsMode {
		if !contains(got, pattern) {
			return false, fmt.Sprintf("expected %q to contain %q", got, pattern)
		}
		return true, ""
	}
	if got != pattern {
		return false, fmt.Sprintf("expected %q, got %q", pattern, got)
	}
	return true, ""
}

func contains(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
