package retention

import (
	"testing"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

func mkScreenshot(id string, age time.Duration, now time.Time) model.Screenshot {
	return model.Screenshot{
		ID:            id,
		StoragePath:   id + ".png",
		ThumbnailPath: id + "_thumb.png",
		CreatedAt:     now.Add(-age),
	}
}

func TestEvenSampleSpreadsAcrossGroup(t *testing.T) {
	now := time.Now()
	var group []model.Screenshot
	for i := 0; i < 10; i++ {
		group = append(group, mkScreenshot(string(rune('a'+i)), time.Duration(10-i)*time.Hour, now))
	}

	kept, dropped := evenSample(group, 3)
	if len(kept) != 3 {
		t.Fatalf("expected 3 kept, got %d", len(kept))
	}
	if len(kept)+len(dropped) != len(group) {
		t.Fatalf("kept+dropped should equal group size")
	}
	// floor(i*10/3) for i in 0,1,2 => 0, 3, 6
	wantIdx := []int{0, 3, 6}
	for i, idx := range wantIdx {
		if kept[i].ID != group[idx].ID {
			t.Errorf("kept[%d] = %s, want %s (index %d)", i, kept[i].ID, group[idx].ID, idx)
		}
	}
}

func TestEvaluateKeepsWithinBucketLimit(t *testing.T) {
	now := time.Date(2026, time.March, 31, 12, 0, 0, 0, time.UTC)
	var screenshots []model.Screenshot
	for i := 0; i < 5; i++ {
		screenshots = append(screenshots, mkScreenshot(string(rune('a'+i)), time.Duration(i)*time.Hour, now))
	}
	settings := model.UserSettings{KeepPerDay: 3}

	plan := Evaluate(screenshots, settings, now)
	if len(plan.Keep) != 3 {
		t.Fatalf("expected 3 kept, got %d: %+v", len(plan.Keep), plan.Keep)
	}
	if len(plan.Delete) != 2 {
		t.Fatalf("expected 2 deleted, got %d", len(plan.Delete))
	}
}

func TestEvaluateMaxAgePrefilterDeletesOutright(t *testing.T) {
	now := time.Now()
	old := mkScreenshot("old", 100*24*time.Hour, now)
	recent := mkScreenshot("recent", time.Hour, now)
	maxAge := 30
	settings := model.UserSettings{KeepPerDay: 10, MaxAgeDays: &maxAge}

	plan := Evaluate([]model.Screenshot{old, recent}, settings, now)
	if len(plan.Keep) != 1 || plan.Keep[0].ID != "recent" {
		t.Fatalf("expected only recent kept, got %+v", plan.Keep)
	}
	if len(plan.Delete) != 1 || plan.Delete[0].ID != "old" {
		t.Fatalf("expected old deleted, got %+v", plan.Delete)
	}
}

func TestEvaluateHardCapTrimsOldest(t *testing.T) {
	now := time.Now()
	var screenshots []model.Screenshot
	for i := 0; i < 5; i++ {
		screenshots = append(screenshots, mkScreenshot(string(rune('a'+i)), time.Duration(i)*time.Hour, now))
	}
	cap := 2
	settings := model.UserSettings{KeepPerDay: 10, MaxScreenshotsPerPage: &cap}

	plan := Evaluate(screenshots, settings, now)
	if len(plan.Keep) != 2 {
		t.Fatalf("expected hard cap of 2 kept, got %d", len(plan.Keep))
	}
	// "a" has age 0 (most recent), "b" has age 1h, etc — the two most
	// recent (a, b) should survive the cap.
	ids := map[string]bool{plan.Keep[0].ID: true, plan.Keep[1].ID: true}
	if !ids["a"] || !ids["b"] {
		t.Fatalf("expected the two most recent screenshots kept, got %+v", plan.Keep)
	}
}

func TestEvaluateZeroKeepCountDeletesBucket(t *testing.T) {
	now := time.Now()
	screenshots := []model.Screenshot{mkScreenshot("a", time.Hour, now)}
	settings := model.UserSettings{} // all keep counts zero

	plan := Evaluate(screenshots, settings, now)
	if len(plan.Keep) != 0 || len(plan.Delete) != 1 {
		t.Fatalf("expected everything deleted when keep count is zero, got keep=%+v delete=%+v", plan.Keep, plan.Delete)
	}
}
