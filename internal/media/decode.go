package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Decode turns an encoded payload into pixels. JPEG orientation tags are
// applied so phone photos keep their upright framing.
func Decode(src Image) (image.Image, error) {
	if src.IsZero() {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, ErrEmptyImage)
	}

	if DetectMimeType(src.Data, src.MimeType) == MimeWEBP {
		img, err := webp.Decode(bytes.NewReader(src.Data), &decoder.Options{})
		if err != nil {
			return nil, fmt.Errorf("%w: webp: %v", ErrImageDecode, err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(src.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

func EncodePNG(img image.Image) (Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return Image{}, fmt.Errorf("encode png: %w", err)
	}
	return Image{Data: buf.Bytes(), MimeType: MimePNG}, nil
}
