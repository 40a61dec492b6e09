package prepare

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// matchMode controls how an accept phrase is matched against element text.
type matchMode string

const (
	matchExact      matchMode = "exact"
	matchSubstring  matchMode = "substring"
)

// acceptPhrase is one entry in the declarative phrase table: a data table of
// (pattern, match_mode) tuples, iterated in order. More specific phrases are
// listed before less specific ones so the first match wins.
type acceptPhrase struct {
	text string
	mode matchMode
}

// acceptPhrases is ordered most-specific-first. Short, ambiguous words are
// exact to avoid false positives.
var acceptPhrases = []acceptPhrase{
	{"i accept all cookies", matchSubstring},
	{"accept all cookies", matchSubstring},
	{"accept all", matchSubstring},
	{"allow all cookies", matchSubstring},
	{"alle akzeptieren", matchSubstring},
	{"tout accepter", matchSubstring},
	{"aceptar todo", matchSubstring},
	{"accetta tutto", matchSubstring},
	{"ok", matchExact},
	{"okay", matchExact},
	{"agree", matchExact},
	{"accept", matchExact},
	{"accepter", matchExact},
	{"accetta", matchExact},
	{"aceptar", matchExact},
	{"zustimmen", matchExact},
	{"akzeptieren", matchExact},
}

// consentFrameHints identify iframes likely hosting a consent-management
// platform.
var consentFrameHints = []string{"cmp.", "consent", "sourcepoint", "privacy", "gdpr", "cookie"}

// selectorCandidates is the curated, platform-specific selector list used by
//most well-known CMPs first.
var selectorCandidates = []string{
	"#onetrust-accept-btn-handler",
	".onetrust-close-btn-handler",
	"#CybotCookiebotDialogBodyLevelButtonLevelOptinAllowAll",
	"#CybotCookiebotDialogBodyButtonAccept",
	".osano-cm-accept-all",
	"#cookieyes-accept",
	".cky-btn-accept",
	"#cmpwelcomebtnyes",
	".cmplz-accept",
	"#BorlabsCookieBox .brlbs-btn-accept-all",
	"#qc-cmp2-ui button[mode=primary]",
	"#didomi-notice-agree-button",
	"#truste-consent-button",
	"button[data-testid=\"sp_choice_type_ACCEPT_ALL\"]",
	"#accept-recommended-btn-handler",
	"[class*=\"cookie\"][class*=\"accept\"]",
	"[id*=\"cookie\"][id*=\"accept\"]",
}

// overlaySelectors is the curated set hidden by the CSS fallback.
var overlaySelectors = []string{
	"#onetrust-consent-sdk",
	"#CybotCookiebotDialog",
	".osano-cm-window",
	"#cookieyes-root",
	"#cmplz-cookiebanner-container",
	"#BorlabsCookieBox",
	"#qc-cmp2-container",
	"#didomi-host",
	"#truste-consent-track",
	"[class*=\"cookie-banner\"]",
	"[class*=\"cookie-consent\"]",
	"[id*=\"cookie-banner\"]",
	"[id*=\"cookie-consent\"]",
}

const perFrameCeiling = 3 * time.Second

// DismissConsent runs the best-effort composite procedure and
// reports whether any step believed it dismissed a dialog. Never returns an
// error that should fail capture: every sub-step is isolated so one failing
// does not block the rest.
func DismissConsent(ctx context.Context) (bool, error) {
	dismissed := false

	if ok := dismissViaFrames(ctx); ok {
		dismissed = true
	}
	if ok := dismissViaMainDocumentText(ctx); ok {
		dismissed = true
	}
	if ok := dismissViaSelectorList(ctx); ok {
		dismissed = true
	}
	hideViaCSS(ctx)

	return dismissed, nil
}

func dismissViaFrames(ctx context.Context) bool {
	frames, err := framesMatchingHints(ctx)
	if err != nil || len(frames) == 0 {
		return false
	}

	clicked := false
	for _, f := range frames {
		frameCtx, cancel := context.WithTimeout(ctx, perFrameCeiling)
		var ok bool
		_ = chromedp.Run(frameCtx, chromedp.ActionFunc(func(c context.Context) error {
			return chromedp.Evaluate(consentClickScript(), &ok).Do(c)
		}))
		cancel()
		if ok {
			clicked = true
		}
	}
	return clicked
}

func framesMatchingHints(ctx context.Context) ([]*page.Frame, error) {
	var tree *page.FrameTree
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var runErr error
		tree, runErr = page.GetFrameTree().Do(c)
		return runErr
	}))
	if err != nil {
		return nil, err
	}

	var matches []*page.Frame
	var walk func(n *page.FrameTree)
	walk = func(n *page.FrameTree) {
		if n == nil {
			return
		}
		if n.Frame != nil && frameURLHintsConsent(n.Frame.URL) {
			matches = append(matches, n.Frame)
		}
		for _, child := range n.ChildFrames {
			walk(child)
		}
	}
	walk(tree)
	return matches, nil
}

func frameURLHintsConsent(url string) bool {
	for _, hint := range consentFrameHints {
		if containsFold(url, hint) {
			return true
		}
	}
	return false
}

func dismissViaMainDocumentText(ctx context.Context) bool {
	var ok bool
	_ = chromedp.Run(ctx, chromedp.Evaluate(consentClickScript(), &ok))
	return ok
}

func dismissViaSelectorList(ctx context.Context) bool {
	for _, sel := range selectorCandidates {
		var ok bool
		_ = chromedp.Run(ctx, chromedp.Evaluate(clickIfVisibleScript(sel), &ok))
		if ok {
			return true
		}
	}
	return false
}

func hideViaCSS(ctx context.Context) {
	_ = chromedp.Run(ctx, chromedp.Evaluate(hideOverlayScript(), nil))
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	ls, lsub := toLower(s), toLower(substr)
	for i := 0; i+len(lsub) <= len(ls); i++ {
		if ls[i:i+len(lsub)] == lsub {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
