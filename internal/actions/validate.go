package actions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// forbiddenSelectorTokens are pseudo-selector syntaxes that look like valid
// CSS to an LLM but are not: ":text" and ":contains" are jQuery/Playwright
// extensions the browser's querySelector has never implemented.
var forbiddenSelectorTokens = []string{":text", ":contains"}

// StepResult is the per-step outcome of structural validation.
type StepResult struct {
	Index  int        `json:"index"`
	Action ActionKind `json:"action"`
	Valid  bool       `json:"valid"`
	Errors []string   `json:"errors,omitempty"`
}

// Report is the outcome of validating a Sequence.
type Report struct {
	Valid       bool         `json:"valid"`
	TotalSteps  int          `json:"totalSteps"`
	PassedSteps int          `json:"passedSteps"`
	FailedSteps int          `json:"failedSteps"`
	Steps       []StepResult `json:"steps"`
	Errors      []string     `json:"errors,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
	// Hint lists the known action types, populated whenever a step names an
	// unrecognised action so the caller can suggest a correction.
	Hint string `json:"hint,omitempty"`
}

// Validate structurally validates raw against the per-action JSON schemas
// and the DSL-level rules (known action, selector safety, assertion
// presence for a sequence labelled as a test). It never executes anything.
func Validate(raw []byte, isTest bool) Report {
	var generic struct {
		Steps []json.RawMessage `json:"steps"`
	}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return Report{
			Valid:  false,
			Errors: []string{fmt.Sprintf("malformed sequence document: %v", err)},
		}
	}

	schemas, err := compiledSchemas()
	if err != nil {
		return Report{Valid: false, Errors: []string{fmt.Sprintf("internal schema error: %v", err)}}
	}

	rep := Report{Valid: true, TotalSteps: len(generic.Steps)}
	hasAssertion := false

	for i, rawStep := range generic.Steps {
		sr := StepResult{Index: i, Valid: true}

		var step Step
		if err := json.Unmarshal(rawStep, &step); err != nil {
			sr.Valid = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("step %d: malformed: %v", i, err))
			rep.Steps = append(rep.Steps, sr)
			rep.FailedSteps++
			rep.Valid = false
			continue
		}
		sr.Action = step.Action

		if !knownKind(step.Action) {
			sr.Valid = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("step %d: Unknown action type %q", i, step.Action))
			rep.Steps = append(rep.Steps, sr)
			rep.FailedSteps++
			rep.Valid = false
			if rep.Hint == "" {
				rep.Hint = fmt.Sprintf("known action types: %s", knownKindsList())
			}
			continue
		}

		var instance interface{}
		if err := json.Unmarshal(rawStep, &instance); err == nil {
			if err := schemas[step.Action].Validate(instance); err != nil {
				sr.Valid = false
				sr.Errors = append(sr.Errors, fmt.Sprintf("step %d: %v", i, err))
			}
		}

		if sel := step.Selector; sel != "" {
			if tok := forbiddenSelectorToken(sel); tok != "" {
				sr.Valid = false
				sr.Errors = append(sr.Errors, fmt.Sprintf("step %d: selector %q uses unsupported pseudo-selector %q", i, sel, tok))
			}
		}

		if isAssertion(step.Action) {
			hasAssertion = true
		}

		if sr.Valid {
			rep.PassedSteps++
		} else {
			rep.FailedSteps++
			rep.Valid = false
		}
		rep.Steps = append(rep.Steps, sr)
	}

	if isTest && rep.TotalSteps > 0 && !hasAssertion {
		rep.Warnings = append(rep.Warnings, "sequence is labelled as a test but contains no assertion steps")
	}
	if rep.TotalSteps == 0 {
		rep.Warnings = append(rep.Warnings, "sequence has no steps")
	}

	return rep
}

func knownKind(k ActionKind) bool {
	for _, known := range KnownKinds {
		if k == known {
			return true
		}
	}
	return false
}

func knownKindsList() string {
	names := make([]string, len(KnownKinds))
	for i, k := range KnownKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func forbiddenSelectorToken(selector string) string {
	lower := strings.ToLower(selector)
	for _, tok := range forbiddenSelectorTokens {
		if strings.Contains(lower, tok) {
			return tok
		}
	}
	return ""
}
