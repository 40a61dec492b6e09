// Package actions implements the Action DSL: a validated, schema-driven
// sequence of browser actions and assertions, with structural validation
// kept strictly separate from runtime execution.
package actions

import "encoding/json"

// ActionKind is the discriminant of a Step.
type ActionKind string

const (
	WaitForSelector  ActionKind = "waitForSelector"
	Click            ActionKind = "click"
	Type             ActionKind = "type"
	Select           ActionKind = "select"
	WaitForNavigation ActionKind = "waitForNavigation"
	Sleep            ActionKind = "sleep"
	ScrollTo         ActionKind = "scrollTo"
	AssertSelector   ActionKind = "assertSelector"
	AssertText       ActionKind = "assertText"
	AssertURL        ActionKind = "assertUrl"
	AssertTitle      ActionKind = "assertTitle"
	Assert           ActionKind = "assert"
)

// KnownKinds lists every action kind the implementation supports — used both
// for validation and for rendering the "did you mean" hint in reports.
var KnownKinds = []ActionKind{
	WaitForSelector, Click, Type, Select, WaitForNavigation, Sleep, ScrollTo,
	AssertSelector, AssertText, AssertURL, AssertTitle, Assert,
}

func isAssertion(k ActionKind) bool {
	switch k {
	case AssertSelector, AssertText, AssertURL, AssertTitle, Assert:
		return true
	}
	return false
}

// Step is one entry in a Sequence. Fields are a superset across all action
// kinds; which are meaningful is determined by Action.
type Step struct {
	Action ActionKind `json:"action"`

	Selector   string `json:"selector,omitempty"`
	Text       string `json:"text,omitempty"`
	Value      string `json:"value,omitempty"`
	Timeout    int    `json:"timeout,omitempty"` // milliseconds
	Visible    *bool  `json:"visible,omitempty"`
	Label      string `json:"label,omitempty"`
	WaitUntil  string `json:"waitUntil,omitempty"`
	MS         int    `json:"ms,omitempty"`
	Y          *int   `json:"y,omitempty"`
	Count      *int   `json:"count,omitempty"`
	Message    string `json:"message,omitempty"`
	Contains   bool   `json:"contains,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// Sequence is the top-level Action DSL document.
type Sequence struct {
	Steps       []Step `json:"steps"`
	Explanation string `json:"explanation,omitempty"`
}

// ParseSequence unmarshals raw JSON into a Sequence. Structural validation
// (required fields, known action kinds, forbidden selectors) is a separate
// step — see Validate.
func ParseSequence(raw []byte) (Sequence, error) {
	var seq Sequence
	if err := json.Unmarshal(raw, &seq); err != nil {
		return Sequence{}, err
	}
	return seq, nil
}
