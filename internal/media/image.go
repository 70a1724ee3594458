package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWEBP = "image/webp"
)

var (
	ErrImageDecode     = errors.New("image could not be decoded")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrEmptyImage      = errors.New("image is empty")
)

// Image is an encoded image payload with its media type. Values are treated as
// immutable once created: helpers return new values instead of mutating Data.
type Image struct {
	Data     []byte
	MimeType string
}

// New sniffs the payload when the declared type is missing or generic and
// rejects anything that is not PNG, JPEG or WEBP.
func New(data []byte, declared string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}

	mimeType := DetectMimeType(data, declared)
	switch mimeType {
	case MimePNG, MimeJPEG, MimeWEBP:
	default:
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	return Image{Data: append([]byte(nil), data...), MimeType: mimeType}, nil
}

func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

func (img Image) Base64() string {
	return base64.StdEncoding.EncodeToString(img.Data)
}

func (img Image) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Base64())
}

// DetectMimeType prefers the declared type unless it is empty or
// application/octet-stream, in which case the content is sniffed.
func DetectMimeType(data []byte, declared string) string {
	mimeType := stripParams(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = stripParams(http.DetectContentType(data))
	}
	if mimeType == "image/jpg" {
		mimeType = MimeJPEG
	}
	return mimeType
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+)(;[^,]*)?,`)

// ParseDataURL accepts "data:<mime>;base64,<payload>" or a bare base64 payload.
func ParseDataURL(value string) (Image, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Image{}, ErrEmptyImage
	}

	mimeType := ""
	payload := value
	if matches := dataURLRegex.FindStringSubmatch(value); len(matches) >= 2 {
		mimeType = strings.TrimSpace(matches[1])
		payload = value[len(matches[0]):]
	} else if strings.HasPrefix(value, "data:") {
		return Image{}, errors.New("invalid data url")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("decode base64: %w", err)
	}
	return New(data, mimeType)
}

func stripParams(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return strings.ToLower(mimeType)
}
