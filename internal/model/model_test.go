package model

import "testing"

func TestTagForWidth(t *testing.T) {
	cases := []struct {
		width int
		want  ViewportTag
	}{
		{320, ViewportMobile},
		{480, ViewportMobile},
		{481, ViewportTablet},
		{1024, ViewportTablet},
		{1025, ViewportDesktop},
		{3840, ViewportDesktop},
	}
	for _, c := range cases {
		if got := TagForWidth(c.width); got != c.want {
			t.Errorf("TagForWidth(%d) = %s, want %s", c.width, got, c.want)
		}
	}
}

func TestEffectiveInterval(t *testing.T) {
	pageOverride := 30
	siteOverride := 60
	settings := &UserSettings{DefaultIntervalMinutes: 120}

	page := Page{}
	site := Site{}

	if got := EffectiveInterval(page, site, settings, 1440); got != 120 {
		t.Errorf("expected user default 120, got %d", got)
	}

	site.IntervalMinutes = &siteOverride
	if got := EffectiveInterval(page, site, settings, 1440); got != 60 {
		t.Errorf("expected site override 60, got %d", got)
	}

	page.IntervalMinutes = &pageOverride
	if got := EffectiveInterval(page, site, settings, 1440); got != 30 {
		t.Errorf("expected page override 30, got %d", got)
	}

	if got := EffectiveInterval(Page{}, Site{}, nil, 1440); got != 1440 {
		t.Errorf("expected hardcoded default 1440, got %d", got)
	}
}

func TestEffectiveViewports(t *testing.T) {
	defaults := []int{1920, 768, 375}
	settings := &UserSettings{DefaultViewportWidths: []int{1440, 768}}

	if got := EffectiveViewports(Page{}, Site{}, settings, defaults); len(got) != 2 {
		t.Errorf("expected user default viewports, got %v", got)
	}

	site := Site{ViewportWidths: []int{1024}}
	if got := EffectiveViewports(Page{}, site, settings, defaults); len(got) != 1 || got[0] != 1024 {
		t.Errorf("expected site override, got %v", got)
	}

	page := Page{ViewportWidths: []int{500}}
	if got := EffectiveViewports(page, site, settings, defaults); len(got) != 1 || got[0] != 500 {
		t.Errorf("expected page override, got %v", got)
	}

	if got := EffectiveViewports(Page{}, Site{}, nil, defaults); len(got) != 3 {
		t.Errorf("expected hardcoded default, got %v", got)
	}
}

func TestTestRunsForViewport(t *testing.T) {
	noFilter := Test{}
	if !noFilter.RunsForViewport(ViewportMobile) {
		t.Error("test with no filter should run for any viewport")
	}

	filtered := Test{ViewportFilter: []ViewportTag{ViewportDesktop}}
	if filtered.RunsForViewport(ViewportMobile) {
		t.Error("filtered test should not run for mobile")
	}
	if !filtered.RunsForViewport(ViewportDesktop) {
		t.Error("filtered test should run for desktop")
	}
}
