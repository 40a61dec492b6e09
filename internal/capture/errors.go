package capture

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/tomasbasham/pageshot/internal/model"
)

// CapturedError is a JS exception or failed network request observed during
// a capture, ready to be persisted as a model.ScreenshotError once the
// owning Screenshot row exists.
type CapturedError struct {
	Kind       model.ScreenshotErrorKind
	Message    string
	Source     string
	StatusCode int
	OccurredAt time.Time
}

// errorCollector accumulates CapturedError values delivered from the CDP
// listener goroutine. The locking shape mirrors the teacher's requestStore:
// a single mutex guarding a slice, written from the listener and read once
// the caller is done observing.
type errorCollector struct {
	mu      sync.Mutex
	errors  []CapturedError
	crashed bool
}

func newErrorCollector() *errorCollector {
	return &errorCollector{}
}

func (c *errorCollector) add(e CapturedError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, e)
}

func (c *errorCollector) drain() []CapturedError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.errors
	c.errors = nil
	return out
}

// crashedTarget reports whether the tab's target crashed during this
// capture, per the EventTargetCrashed observed by listen.
func (c *errorCollector) crashedTarget() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.crashed
}

// listen registers CDP event handlers on ctx that feed c. It must be called
// before navigation so no early exception or request failure is missed.
func (c *errorCollector) listen(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *inspector.EventTargetCrashed:
			c.mu.Lock()
			c.crashed = true
			c.mu.Unlock()
		case *runtime.EventExceptionThrown:
			msg := ev.ExceptionDetails.Text
			if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
				msg = ev.ExceptionDetails.Exception.Description
			}
			c.add(CapturedError{
				Kind:       model.ScreenshotErrorJS,
				Message:    msg,
				Source:     ev.ExceptionDetails.URL,
				OccurredAt: ev.Timestamp.Time(),
			})
		case *network.EventLoadingFailed:
			if ev.Canceled {
				return
			}
			c.add(CapturedError{
				Kind:       model.ScreenshotErrorNetwork,
				Message:    ev.ErrorText,
				Source:     string(ev.RequestID),
				OccurredAt: time.Now(),
			})
		}
	})
}
