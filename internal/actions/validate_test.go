package actions

import "testing"

func TestValidateKnownActions(t *testing.T) {
	doc := `{"steps": [
		{"action": "waitForSelector", "selector": "#login"},
		{"action": "click", "selector": "#login button"},
		{"action": "type", "selector": "#email", "text": "a@b.com"},
		{"action": "assertText", "selector": "h1", "text": "Welcome"}
	]}`

	rep := Validate([]byte(doc), true)
	if !rep.Valid {
		t.Fatalf("expected valid report, got errors: %v", rep.Errors)
	}
	if rep.TotalSteps != 4 || rep.PassedSteps != 4 || rep.FailedSteps != 0 {
		t.Fatalf("unexpected counts: %+v", rep)
	}
	if len(rep.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", rep.Warnings)
	}
}

func TestValidateRejectsUnknownAction(t *testing.T) {
	doc := `{"steps": [{"action": "hoverAndPray", "selector": "#x"}]}`
	rep := Validate([]byte(doc), false)
	if rep.Valid {
		t.Fatal("expected invalid report")
	}
	if rep.FailedSteps != 1 {
		t.Fatalf("expected one failed step, got %d", rep.FailedSteps)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	doc := `{"steps": [{"action": "type", "selector": "#email"}]}`
	rep := Validate([]byte(doc), false)
	if rep.Valid {
		t.Fatal("expected invalid report for missing text field")
	}
}

func TestValidateRejectsPseudoSelectors(t *testing.T) {
	for _, sel := range []string{`button:contains("Accept")`, `div:text("hello")`} {
		doc := `{"steps": [{"action": "click", "selector": "` + sel + `"}]}`
		rep := Validate([]byte(doc), false)
		if rep.Valid {
			t.Fatalf("expected selector %q to be rejected", sel)
		}
	}
}

func TestValidateWarnsOnAssertionFreeTest(t *testing.T) {
	doc := `{"steps": [{"action": "click", "selector": "#a"}, {"action": "click", "selector": "#b"}]}`
	rep := Validate([]byte(doc), true)
	if !rep.Valid {
		t.Fatalf("expected structurally valid, got %v", rep.Errors)
	}
	if len(rep.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", rep.Warnings)
	}
}

func TestValidateNoWarningWhenNotLabelledTest(t *testing.T) {
	doc := `{"steps": [{"action": "click", "selector": "#a"}]}`
	rep := Validate([]byte(doc), false)
	if len(rep.Warnings) != 0 {
		t.Fatalf("expected no warnings for a non-test sequence, got %v", rep.Warnings)
	}
}

func TestValidateMalformedDocument(t *testing.T) {
	rep := Validate([]byte(`not json`), false)
	if rep.Valid {
		t.Fatal("expected invalid report for malformed JSON")
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("expected one top-level error, got %v", rep.Errors)
	}
}
