package capture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestBuildThumbnailResizesPreservingAspect(t *testing.T) {
	src := encodePNG(t, 1600, 800)
	thumb, err := buildThumbnail(src)
	if err != nil {
		t.Fatalf("buildThumbnail: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(thumb))
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != thumbnailWidth {
		t.Fatalf("expected width %d, got %d", thumbnailWidth, b.Dx())
	}
	if b.Dy() != 200 {
		t.Fatalf("expected height 200 (800 scaled by 400/1600), got %d", b.Dy())
	}
}

func TestBuildThumbnailNeverEnlarges(t *testing.T) {
	src := encodePNG(t, 200, 100)
	thumb, err := buildThumbnail(src)
	if err != nil {
		t.Fatalf("buildThumbnail: %v", err)
	}
	if !bytes.Equal(thumb, src) {
		t.Fatal("expected narrower-than-thumbnail image to be returned unchanged")
	}
}
