package media

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

var ErrInvalidRatio = errors.New("invalid aspect ratio")

// ParseRatio splits "W:H" into positive integers.
func ParseRatio(value string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRatio, value)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRatio, value)
	}
	return w, h, nil
}

// FitCanvas grows one axis of a width x height box so that it matches the
// ratio ratioW:ratioH. The result is never smaller than the input box.
func FitCanvas(width, height, ratioW, ratioH int) (int, int) {
	canvasW, canvasH := width, height

	// Cross-multiplied comparison of width/height against ratioW/ratioH.
	switch wide, tall := width*ratioH, height*ratioW; {
	case wide > tall:
		canvasH = (width*ratioH + ratioW/2) / ratioW
	case wide < tall:
		canvasW = (height*ratioW + ratioH/2) / ratioH
	}

	if canvasW < width {
		canvasW = width
	}
	if canvasH < height {
		canvasH = height
	}
	return canvasW, canvasH
}

// Normalize letterboxes or pillarboxes src onto a white canvas with the
// requested aspect ratio and returns it as PNG.
func Normalize(src Image, ratio string) (Image, error) {
	ratioW, ratioH, err := ParseRatio(ratio)
	if err != nil {
		return Image{}, err
	}

	decoded, err := Decode(src)
	if err != nil {
		return Image{}, err
	}

	bounds := decoded.Bounds()
	canvasW, canvasH := FitCanvas(bounds.Dx(), bounds.Dy(), ratioW, ratioH)

	canvas := imaging.New(canvasW, canvasH, color.White)
	canvas = imaging.OverlayCenter(canvas, decoded, 1.0)

	return EncodePNG(canvas)
}
