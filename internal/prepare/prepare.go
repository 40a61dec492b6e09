// Package prepare implements the deterministic pre-capture pipeline: set the
// viewport, navigate, wait for network idle, and dismiss consent overlays.
// It leaves a page ready for inspection or capture.
package prepare

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Viewport is a literal width/height pair. Named tags are not accepted here;
// a caller with a tag resolves it to dimensions first.
type Viewport struct {
	Width  int64
	Height int64
}

const (
	defaultTimeout = 60 * time.Second
	renderSettle   = 1 * time.Second
)

// Options configures one preparation run.
type Options struct {
	URL      string
	Viewport Viewport
	Timeout  time.Duration
}

// Result reports whether consent dismissal believed it clicked something.
// It is informational only: failure to dismiss never fails Run.
type Result struct {
	ConsentDismissed bool
}

// Run executes the ordered steps against ctx (a chromedp tab
// context): set viewport and timeouts, navigate, settle, dismiss consent
// twice with a final settle.
func Run(ctx context.Context, opts Options) (Result, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(opts.Viewport.Width, opts.Viewport.Height),
	); err != nil {
		return Result{}, err
	}

	if err := navigateAndSettle(runCtx, opts.URL); err != nil {
		return Result{}, err
	}

	time.Sleep(renderSettle)

	var dismissed bool
	if d, _ := DismissConsent(runCtx); d {
		dismissed = true
	}
	time.Sleep(renderSettle)
	if d, _ := DismissConsent(runCtx); d {
		dismissed = true
	}
	time.Sleep(500 * time.Millisecond)

	return Result{ConsentDismissed: dismissed}, nil
}

// navigateAndSettle navigates to url and waits for network idle: two
// consecutive intervals of <=2 active requests step 2.
func navigateAndSettle(ctx context.Context, url string) error {
	settler := newIdleSettler(2, 200*time.Millisecond, 2)

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			settler.requestStarted()
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			settler.requestFinished()
		}
	})

	if err := chromedp.Run(ctx, chromedp.Navigate(url)); err != nil {
		return err
	}

	settler.waitIdle(ctx)
	return nil
}
