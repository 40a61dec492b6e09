package actions

import "testing"

func TestContainsHelper(t *testing.T) {
	cases := []struct {
		s, substr string
		want      bool
	}{
		{"hello world", "world", true},
		{"hello world", "World", false},
		{"hello world", "", true},
		{"hi", "hello", false},
	}
	for _, c := range cases {
		if got := contains(c.s, c.substr); got != c.want {
			t.Errorf("contains(%q, %q) = %v, want %v", c.s, c.substr, got, c.want)
		}
	}
}

func TestIsAssertionClassifiesCorrectly(t *testing.T) {
	for _, k := range []ActionKind{AssertSelector, AssertText, AssertURL, AssertTitle, Assert} {
		if !isAssertion(k) {
			t.Errorf("expected %s to be classified as an assertion", k)
		}
	}
	for _, k := range []ActionKind{Click, Type, Select, Sleep, ScrollTo, WaitForSelector, WaitForNavigation} {
		if isAssertion(k) {
			t.Errorf("expected %s not to be classified as an assertion", k)
		}
	}
}
