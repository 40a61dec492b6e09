package actions

import "testing"

func TestValidateEvalScriptSyntaxAllowsCleanScript(t *testing.T) {
	rep := ValidateEvalScriptSyntax(`document.querySelectorAll('.card').length > 0`)
	if !rep.Valid {
		t.Fatalf("expected valid, got %v", rep.Errors)
	}
}

func TestValidateEvalScriptSyntaxRejectsForbiddenAPIs(t *testing.T) {
	cases := []string{
		`setTimeout(() => {}, 1000)`,
		`alert('hi')`,
		`fetch('/api')`,
		`confirm('are you sure')`,
	}
	for _, script := range cases {
		rep := ValidateEvalScriptSyntax(script)
		if rep.Valid {
			t.Errorf("expected script %q to be rejected", script)
		}
	}
}

func TestValidateEvalScriptSyntaxIgnoresSubstringFalsePositives(t *testing.T) {
	rep := ValidateEvalScriptSyntax(`document.title.includes('prompted')`)
	if !rep.Valid {
		t.Fatalf("expected 'prompted' substring not to trigger forbidden API match: %v", rep.Errors)
	}
}
