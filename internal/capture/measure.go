package capture

import (
	"context"

	"github.com/chromedp/chromedp"
)

// measurePageScript returns the maximum of every height/width measure on
// body and documentElement, the way full-page screenshot tools size the
// viewport before capture: no single DOM property is reliable across every
// page's box model.
const measurePageScript = `(() => {
	const b = document.body, d = document.documentElement;
	return {
		width: Math.max(b.scrollWidth, d.scrollWidth, b.offsetWidth, d.offsetWidth, b.clientWidth, d.clientWidth),
		height: Math.max(b.scrollHeight, d.scrollHeight, b.offsetHeight, d.offsetHeight, b.clientHeight, d.clientHeight),
	};
})()`

type pageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func measurePage(ctx context.Context) (pageDimensions, error) {
	var dims pageDimensions
	if err := chromedp.Run(ctx, chromedp.Evaluate(measurePageScript, &dims)); err != nil {
		return pageDimensions{}, err
	}
	return dims, nil
}
