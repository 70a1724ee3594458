package media

import (
	"image"
	"image/color"
)

const (
	// ExactWhite keeps only pure #FFFFFF pixels as foreground.
	ExactWhite uint8 = 255
	// AutoMaskThreshold is the luminance cut used for model-produced masks,
	// which often carry compression noise around the subject edge.
	AutoMaskThreshold uint8 = 128
)

var (
	maskWhite = color.Gray{Y: 0xff}
	maskBlack = color.Gray{Y: 0x00}
)

// BinarizeMask re-encodes a mask so that it contains only pure white
// (subject) and pure black (background) pixels.
func BinarizeMask(src Image, threshold uint8) (Image, error) {
	decoded, err := Decode(src)
	if err != nil {
		return Image{}, err
	}

	bounds := decoded.Bounds()
	out := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := maskBlack
			if isForeground(decoded.At(x, y), threshold) {
				px = maskWhite
			}
			out.SetGray(x-bounds.Min.X, y-bounds.Min.Y, px)
		}
	}

	return EncodePNG(out)
}

func isForeground(c color.Color, threshold uint8) bool {
	r, g, b, _ := c.RGBA()
	if threshold == ExactWhite {
		return r == 0xffff && g == 0xffff && b == 0xffff
	}

	// Same weights as color.GrayModel.
	y := (19595*r + 38470*g + 7471*b + 1<<15) >> 24
	return uint8(y) >= threshold
}
