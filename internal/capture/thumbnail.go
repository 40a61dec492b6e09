package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

const thumbnailWidth = 400

// buildThumbnail resizes a full-size PNG to thumbnailWidth, preserving
// aspect ratio. It never enlarges: a PNG already narrower than
// thumbnailWidth is returned unchanged.
func buildThumbnail(pngBytes []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(pngBytes))
	if err != nil {
		return nil, fmt.Errorf("capture: failed to decode screenshot for thumbnail: %w", err)
	}

	bounds := img.Bounds()
	origWidth := bounds.Dx()
	origHeight := bounds.Dy()
	if origWidth <= thumbnailWidth {
		return pngBytes, nil
	}

	newWidth := thumbnailWidth
	newHeight := (origHeight * thumbnailWidth) / origWidth
	if newHeight < 1 {
		newHeight = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		return nil, fmt.Errorf("capture: failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
