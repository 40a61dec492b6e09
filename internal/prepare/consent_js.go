package prepare

import (
	"encoding/json"
	"fmt"
)

// clickableSelector enumerates the element kinds considered "clickable" for
// text matching.
const clickableSelector = `button, a, [role=button], input[type=button], input[type=submit], .btn, [class*=button]`

type jsPhrase struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

func phraseTableJSON() string {
	phrases := make([]jsPhrase, len(acceptPhrases))
	for i, p := range acceptPhrases {
		phrases[i] = jsPhrase{Text: p.text, Mode: string(p.mode)}
	}
	b, _ := json.Marshal(phrases)
	return string(b)
}

// consentClickScript returns a synchronous JS expression that walks
// clickable elements, matches the first visible one against the accept
// phrase table (in table order, so specificity is preserved) and clicks it.
// Evaluates to true iff a click happened.
func consentClickScript() string {
	return fmt.Sprintf(`(() => {
  const phrases = %s;
  const matches = (value, phrase) => {
    if (!value) return false;
    const v = value.trim().toLowerCase();
    const p = phrase.text.toLowerCase();
    if (phrase.mode === 'exact') {
      return new RegExp('\\b' + p.replace(/[.*+?^${}()|[\]\\]/g, '\\$&') + '\\b').test(v);
    }
    return v.includes(p);
  };
  const nodes = Array.from(document.querySelectorAll(%q));
  for (const phrase of phrases) {
    for (const el of nodes) {
      const rect = el.getBoundingClientRect();
      const visible = rect.width > 0 && rect.height > 0 && getComputedStyle(el).visibility !== 'hidden';
      if (!visible) continue;
      const label = el.innerText || el.getAttribute('aria-label') || el.getAttribute('title') || '';
      if (matches(label, phrase)) {
        el.click();
        return true;
      }
    }
  }
  return false;
})()`, phraseTableJSON(), clickableSelector)
}

// clickIfVisibleScript returns a JS expression clicking the first visible
// element matched by sel, evaluating to true iff a click happened.
func clickIfVisibleScript(sel string) string {
	return fmt.Sprintf(`(() => {
  for (const el of document.querySelectorAll(%q)) {
    const rect = el.getBoundingClientRect();
    if (rect.width === 0 || rect.height === 0) continue;
    el.click();
    return true;
  }
  return false;
})()`, sel)
}

// hideOverlayScript applies display:none!important to the curated overlay
// selector set and clears a stuck body overflow:hidden.
func hideOverlayScript() string {
	selJSON, _ := json.Marshal(overlaySelectors)
	return fmt.Sprintf(`(() => {
  const selectors = %s;
  for (const sel of selectors) {
    document.querySelectorAll(sel).forEach(el => {
      el.style.setProperty('display', 'none', 'important');
    });
  }
  if (document.body && getComputedStyle(document.body).overflow === 'hidden') {
    document.body.style.overflow = '';
  }
})()`, selJSON)
}
