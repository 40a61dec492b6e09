package actions

import (
	"context"
	"fmt"
	"regexp"

	"github.com/chromedp/chromedp"
)

// forbiddenEvalAPIs are globals an eval script must not reference: they
// either block capture indefinitely (setTimeout/setInterval without the
// harness ever resuming), require user interaction (alert/confirm/prompt),
// or perform network side effects outside the page lifecycle (fetch/XHR).
var forbiddenEvalAPIs = []string{
	"setTimeout", "setInterval", "alert", "confirm", "prompt", "fetch", "XMLHttpRequest",
}

var forbiddenEvalPattern = regexp.MustCompile(`\b(` + joinAlternation(forbiddenEvalAPIs) + `)\s*\(`)

func joinAlternation(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += "|"
		}
		out += w
	}
	return out
}

// EvalReport is the outcome of validating a raw eval script (one submitted
// as Instruction.Script with ScriptType "eval").
type EvalReport struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateEvalScriptSyntax checks a script for forbidden API references. It
// does not run the script — see ValidateEvalScriptLive for that.
func ValidateEvalScriptSyntax(script string) EvalReport {
	if m := forbiddenEvalPattern.FindStringSubmatch(script); m != nil {
		return EvalReport{Valid: false, Errors: []string{fmt.Sprintf("script calls forbidden API %q", m[1])}}
	}
	return EvalReport{Valid: true}
}

// ValidateEvalScriptLive performs ValidateEvalScriptSyntax and then, if that
// passes, runs the script once against the page bound to ctx as a trial
// evaluation, wrapped so a thrown exception is reported rather than
// propagated as a Go error.
func ValidateEvalScriptLive(ctx context.Context, script string) EvalReport {
	rep := ValidateEvalScriptSyntax(script)
	if !rep.Valid {
		return rep
	}

	wrapped := fmt.Sprintf(`(() => { try { %s; return null; } catch (e) { return String(e && e.message || e); } })()`, script)
	var thrown *string
	if err := chromedp.Run(ctx, chromedp.Evaluate(wrapped, &thrown)); err != nil {
		return EvalReport{Valid: false, Errors: []string{fmt.Sprintf("trial evaluation failed: %v", err)}}
	}
	if thrown != nil {
		return EvalReport{Valid: false, Errors: []string{fmt.Sprintf("script threw during trial evaluation: %s", *thrown)}}
	}
	return EvalReport{Valid: true}
}
