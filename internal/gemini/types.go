package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"dugo-banana-studio/internal/media"
)

var (
	ErrMissingInput    = errors.New("missing input")
	ErrNoImageProduced = errors.New("no image was generated by the model")
	ErrNoMaskProduced  = errors.New("the model failed to generate a product mask")
)

// ContentGenerator is the subset of *genai.Models the client needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// EditRequest carries the inputs of one edit call. Zero images are omitted.
type EditRequest struct {
	Product    media.Image
	Positive   string
	Negative   string
	Mask       media.Image
	Background media.Image
}
