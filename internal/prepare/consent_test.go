package prepare

import (
	"strings"
	"testing"
)

func TestAmbiguousPhrasesAreExact(t *testing.T) {
	ambiguous := map[string]bool{
		"ok": true, "okay": true, "agree": true, "accept": true,
		"accepter": true, "accetta": true, "aceptar": true,
	}
	for _, p := range acceptPhrases {
		if ambiguous[p.text] && p.mode != matchExact {
			t.Errorf("phrase %q should be exact-matched to avoid false positives", p.text)
		}
	}
}

func TestMoreSpecificPhrasesPrecedeGeneric(t *testing.T) {
	indexOf := func(text string) int {
		for i, p := range acceptPhrases {
			if p.text == text {
				return i
			}
		}
		return -1
	}
	all := indexOf("accept all")
	accept := indexOf("accept")
	if all == -1 || accept == -1 {
		t.Fatal("expected both phrases present")
	}
	if all >= accept {
		t.Errorf("'accept all' (%d) should precede 'accept' (%d)", all, accept)
	}
}

func TestContainsFold(t *testing.T) {
	if !containsFold("CMP.example.com", "cmp.") {
		t.Error("expected case-insensitive substring match")
	}
	if containsFold("example.com", "cmp.") {
		t.Error("unexpected match")
	}
}

func TestConsentClickScriptEmbedsPhrases(t *testing.T) {
	script := consentClickScript()
	if !strings.Contains(script, "accept all cookies") {
		t.Error("expected phrase table to be embedded in generated script")
	}
	if !strings.Contains(script, clickableSelector) {
		t.Error("expected clickable selector embedded")
	}
}

func TestHideOverlayScriptEmbedsSelectors(t *testing.T) {
	script := hideOverlayScript()
	if !strings.Contains(script, "onetrust-consent-sdk") {
		t.Error("expected overlay selector embedded")
	}
}
