package compare

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/tomasbasham/pageshot/internal/model"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestCompareIdenticalImagesHaveZeroDiff(t *testing.T) {
	a := solidPNG(t, 10, 10, color.White)
	b := solidPNG(t, 10, 10, color.White)

	res, err := Compare(a, b, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.DiffPercentage != 0 || res.DiffPixels != 0 {
		t.Fatalf("expected zero diff, got %+v", res)
	}
}

func TestCompareFullyDifferentImages(t *testing.T) {
	a := solidPNG(t, 10, 10, color.White)
	b := solidPNG(t, 10, 10, color.Black)

	res, err := Compare(a, b, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.DiffPixels != 100 {
		t.Fatalf("expected all 100 pixels to differ, got %d", res.DiffPixels)
	}
	if res.DiffPercentage != 100 {
		t.Fatalf("expected 100%% diff, got %v", res.DiffPercentage)
	}
}

func TestCompareStatsOnlyOmitsImage(t *testing.T) {
	a := solidPNG(t, 5, 5, color.White)
	b := solidPNG(t, 5, 5, color.Black)

	res, err := Compare(a, b, Options{StatsOnly: true})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.DiffPNG != nil {
		t.Fatal("expected no diff image in stats-only mode")
	}
}

func TestCompareReconcilesMismatchedDimensions(t *testing.T) {
	a := solidPNG(t, 10, 10, color.White)
	b := solidPNG(t, 8, 12, color.White)

	res, err := Compare(a, b, Options{})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.TotalPixels != 8*10 {
		t.Fatalf("expected reconciled size 8x10=80, got %d", res.TotalPixels)
	}
}

func TestOrderBeforeAfterByCreatedAt(t *testing.T) {
	now := time.Now()
	older := model.Screenshot{ID: "x", CreatedAt: now.Add(-time.Hour)}
	newer := model.Screenshot{ID: "y", CreatedAt: now}

	before, after := OrderBeforeAfter(newer, older)
	if before.ID != "x" || after.ID != "y" {
		t.Fatalf("expected older first, got before=%s after=%s", before.ID, after.ID)
	}
}

func TestOrderBeforeAfterTieBreaksOnID(t *testing.T) {
	now := time.Now()
	a := model.Screenshot{ID: "b", CreatedAt: now}
	b := model.Screenshot{ID: "a", CreatedAt: now}

	before, after := OrderBeforeAfter(a, b)
	if before.ID != "a" || after.ID != "b" {
		t.Fatalf("expected lexicographically smaller ID first, got before=%s after=%s", before.ID, after.ID)
	}
}
