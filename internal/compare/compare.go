// Package compare produces a visual diff between two screenshots: a
// side-by-side-resolved, per-pixel comparison tolerant of anti-aliasing,
// plus a diff percentage and an optional stats-only mode.
package compare

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Params tunes the pixel comparison. Defaults mirror what a perceptual diff
// tool (e.g. pixelmatch) uses out of the box.
type Params struct {
	Threshold  float64 // 0..1, per-channel tolerance before a pixel counts as different
	IncludeAA  bool    // when false, pixels that differ only by anti-aliasing are not counted
	AlphaBlend float64 // blend factor for unchanged regions in the output diff image
}

// DefaultParams is the comparison configuration used unless the caller asks
// for something else.
var DefaultParams = Params{Threshold: 0.1, IncludeAA: true, AlphaBlend: 0.1}

var (
	diffColor = color.RGBA{R: 255, G: 0, B: 128, A: 255} // magenta: a real pixel difference
	aaColor   = color.RGBA{R: 0, G: 255, B: 128, A: 255} // cyan: anti-aliasing-only difference
)

// Result is the outcome of comparing two screenshots.
type Result struct {
	DiffPercentage float64
	DiffPixels     int
	TotalPixels    int
	// DiffPNG is nil when StatsOnly was requested.
	DiffPNG []byte
}

// Options controls a single comparison.
type Options struct {
	Params    Params
	StatsOnly bool
}

// Compare loads two PNGs (before, after — already ordered by the caller,
// typically by CreatedAt ascending with ID as a tiebreak), reconciles their
// dimensions, and computes a per-pixel diff.
func Compare(beforePNG, afterPNG []byte, opts Options) (Result, error) {
	beforeImg, err := png.Decode(bytes.NewReader(beforePNG))
	if err != nil {
		return Result{}, fmt.Errorf("compare: decode before image: %w", err)
	}
	afterImg, err := png.Decode(bytes.NewReader(afterPNG))
	if err != nil {
		return Result{}, fmt.Errorf("compare: decode after image: %w", err)
	}

	before, after := reconcileDimensions(beforeImg, afterImg)

	params := opts.Params
	if params == (Params{}) {
		params = DefaultParams
	}

	var diff *image.RGBA
	if !opts.StatsOnly {
		diff = image.NewRGBA(before.Bounds())
	}

	bounds := before.Bounds()
	total := bounds.Dx() * bounds.Dy()
	differing := 0

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			br, bg, bb, ba := before.At(x, y).RGBA()
			ar, ag, ab, aa := after.At(x, y).RGBA()

			isDiff := channelDiff(br, ar, params.Threshold) ||
				channelDiff(bg, ag, params.Threshold) ||
				channelDiff(bb, ab, params.Threshold) ||
				channelDiff(ba, aa, params.Threshold)

			if !isDiff {
				if diff != nil {
					diff.Set(x, y, blendedUnchanged(before.At(x, y), params.AlphaBlend))
				}
				continue
			}

			isAA := isAntiAliased(before, after, x, y)
			if isAA && !params.IncludeAA {
				if diff != nil {
					diff.Set(x, y, blendedUnchanged(before.At(x, y), params.AlphaBlend))
				}
				continue
			}

			differing++
			if diff != nil {
				if isAA {
					diff.Set(x, y, aaColor)
				} else {
					diff.Set(x, y, diffColor)
				}
			}
		}
	}

	result := Result{
		DiffPixels:  differing,
		TotalPixels: total,
	}
	if total > 0 {
		result.DiffPercentage = roundTo2DP(float64(differing) / float64(total) * 100)
	}

	if diff != nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, diff); err != nil {
			return Result{}, fmt.Errorf("compare: encode diff image: %w", err)
		}
		result.DiffPNG = buf.Bytes()
	}

	return result, nil
}

// reconcileDimensions brings both images to their common
// min(width)/min(height): each is scaled (aspect ratio preserved) just
// enough to cover that size, then cropped anchored at the top-left, so a
// comparison is always well-defined even when before/after were captured at
// slightly different content heights.
func reconcileDimensions(before, after image.Image) (image.Image, image.Image) {
	bb, ab := before.Bounds(), after.Bounds()
	w := min(bb.Dx(), ab.Dx())
	h := min(bb.Dy(), ab.Dy())

	if bb.Dx() == w && bb.Dy() == h && ab.Dx() == w && ab.Dy() == h {
		return toRGBA(before), toRGBA(after)
	}

	return cropOrScale(before, w, h), cropOrScale(after, w, h)
}

func cropOrScale(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	src := img
	if scale := math.Max(float64(w)/float64(b.Dx()), float64(h)/float64(b.Dy())); scale != 1 {
		sw := int(math.Ceil(float64(b.Dx()) * scale))
		sh := int(math.Ceil(float64(b.Dy()) * scale))
		scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), img, b, draw.Src, nil)
		src = scaled
	}
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(out, out.Bounds(), src, src.Bounds().Min, draw.Src)
	return out
}

func toRGBA(img image.Image) image.Image {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	out := image.NewRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

func channelDiff(a, b uint32, threshold float64) bool {
	const maxChannel = 65535.0
	diff := float64(a) - float64(b)
	if diff < 0 {
		diff = -diff
	}
	return diff/maxChannel > threshold
}

// isAntiAliased applies a cheap local heuristic: a differing pixel is
// treated as anti-aliasing noise if at least one 3x3 neighbour in the
// "before" image closely matches the corresponding "after" pixel — a real
// content change tends to differ from its whole neighbourhood, whereas
// AA fringing only shifts by a pixel or two.
func isAntiAliased(before, after image.Image, x, y int) bool {
	bounds := before.Bounds()
	ar, ag, ab, aa := after.At(x, y).RGBA()

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			nx, ny := x+dx, y+dy
			if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
				continue
			}
			br, bg, bb, ba := before.At(nx, ny).RGBA()
			if !channelDiff(br, ar, 0.1) && !channelDiff(bg, ag, 0.1) && !channelDiff(bb, ab, 0.1) && !channelDiff(ba, aa, 0.1) {
				return true
			}
		}
	}
	return false
}

func blendedUnchanged(c color.Color, alpha float64) color.Color {
	r, g, b, a := c.RGBA()
	blend := func(channel uint32) uint8 {
		v := float64(channel>>8) * (1 - alpha)
		return uint8(v)
	}
	return color.RGBA{R: blend(r), G: blend(g), B: blend(b), A: uint8(a >> 8)}
}

func roundTo2DP(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
