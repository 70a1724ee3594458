package media

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWEBP Format = "webp"
)

const DefaultQuality = 0.92

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWEBP, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, value)
	}
}

func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

// Export re-encodes src for download. quality is a 0..1 factor used by the
// lossy formats; values outside (0, 1] fall back to DefaultQuality.
func Export(src Image, format Format, quality float64) (Image, error) {
	decoded, err := Decode(src)
	if err != nil {
		return Image{}, err
	}
	if quality <= 0 || quality > 1 || math.IsNaN(quality) {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		return EncodePNG(decoded)
	case FormatJPEG:
		bounds := decoded.Bounds()
		flat := imaging.OverlayCenter(imaging.New(bounds.Dx(), bounds.Dy(), color.White), decoded, 1.0)
		q := int(math.Round(quality * 100))
		if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return Image{}, fmt.Errorf("encode jpeg: %w", err)
		}
		return Image{Data: buf.Bytes(), MimeType: MimeJPEG}, nil
	case FormatWEBP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality*100))
		if err != nil {
			return Image{}, fmt.Errorf("webp options: %w", err)
		}
		if err := webp.Encode(&buf, decoded, opts); err != nil {
			return Image{}, fmt.Errorf("encode webp: %w", err)
		}
		return Image{Data: buf.Bytes(), MimeType: MimeWEBP}, nil
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, format)
	}
}
