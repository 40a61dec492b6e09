package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

const (
	autoscrollStep     = 400 // px per increment
	autoscrollInterval = 100 * time.Millisecond
	autoscrollCeiling  = 30 * time.Second
	autoscrollSettle   = 2*time.Second + 500*time.Millisecond
)

var autoscrollScript = fmt.Sprintf(`(() => {
	const before = window.scrollY;
	window.scrollBy(0, %d);
	const max = Math.max(
		document.body.scrollHeight, document.documentElement.scrollHeight,
	) - window.innerHeight;
	return window.scrollY >= max || window.scrollY === before;
})()`, autoscrollStep)

// autoscroll triggers lazy-loaded content by scrolling the page to the
// bottom in fixed increments, then settles and returns it to the top so the
// subsequent screenshot starts from a known position.
func autoscroll(ctx context.Context) error {
	deadline := time.Now().Add(autoscrollCeiling)
	ticker := time.NewTicker(autoscrollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		var reachedBottom bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(autoscrollScript, &reachedBottom)); err != nil {
			return err
		}
		if reachedBottom {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	select {
	case <-time.After(autoscrollSettle):
	case <-ctx.Done():
		return ctx.Err()
	}

	return chromedp.Run(ctx, chromedp.Evaluate(`window.scrollTo(0, 0)`, nil))
}
