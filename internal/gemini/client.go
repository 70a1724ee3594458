package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "gemini-2.5-flash-image-preview"
)

const creativeTemperature float32 = 1.0

type Options struct {
	APIKey     string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// Generator replaces the genai backend when set.
	Generator ContentGenerator
}

type Client struct {
	models     ContentGenerator
	textModel  string
	imageModel string
	logger     *slog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = DefaultTextModel
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	models := opts.Generator
	if models == nil {
		if strings.TrimSpace(opts.APIKey) == "" {
			return nil, errors.New("gemini api key is empty")
		}
		gc, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     opts.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: opts.HTTPClient,
		})
		if err != nil {
			return nil, fmt.Errorf("create genai client: %w", err)
		}
		models = gc.Models
	}

	return &Client{
		models:     models,
		textModel:  textModel,
		imageModel: imageModel,
		logger:     logger,
	}, nil
}

// DescribeStyle asks for a description of the reference image focused on
// the requested emphasis.
func (c *Client) DescribeStyle(ctx context.Context, img media.Image, emphasis prompt.StyleEmphasis) (string, error) {
	if img.IsZero() {
		return "", fmt.Errorf("%w: style reference", ErrMissingInput)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(styleInstruction(emphasis)),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	}
	return c.text(ctx, "describe_style", parts, nil)
}

// DescribeComposition returns a short subject-and-placement phrase such as
// "a watch on a person's wrist".
func (c *Client) DescribeComposition(ctx context.Context, img media.Image) (string, error) {
	if img.IsZero() {
		return "", fmt.Errorf("%w: product image", ErrMissingInput)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(compositionInstruction),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	}
	return c.text(ctx, "describe_composition", parts, nil)
}

func (c *Client) WriteScene(ctx context.Context, subject, keywords string) (string, error) {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(sceneIntro, subject))
	if kw := strings.TrimSpace(keywords); kw != "" {
		b.WriteString(fmt.Sprintf(sceneKeywords, kw))
	}
	b.WriteString(sceneBody)

	cfg := &genai.GenerateContentConfig{Temperature: float32Ptr(creativeTemperature)}
	out, err := c.text(ctx, "write_scene", []*genai.Part{genai.NewPartFromText(b.String())}, cfg)
	if err != nil {
		return "", err
	}
	return stripQuotes(out), nil
}

// AdTemplate fetches a generic advertising sentence containing
// prompt.Placeholder, falling back to prompt.FallbackTemplate when the model
// leaves the placeholder out.
func (c *Client) AdTemplate(ctx context.Context) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: float32Ptr(creativeTemperature)}
	out, err := c.text(ctx, "ad_template", []*genai.Part{genai.NewPartFromText(templateInstruction)}, cfg)
	if err != nil {
		return "", err
	}

	out = stripQuotes(out)
	if !strings.Contains(out, prompt.Placeholder) {
		c.logger.Warn("gemini template missing placeholder", "model", c.textModel)
		return prompt.FallbackTemplate, nil
	}
	return out, nil
}

func (c *Client) Edit(ctx context.Context, req EditRequest) (media.Image, error) {
	if req.Product.IsZero() {
		return media.Image{}, fmt.Errorf("%w: product image", ErrMissingInput)
	}
	instruction := req.Positive
	if strings.TrimSpace(instruction) == "" {
		return media.Image{}, fmt.Errorf("%w: instruction", ErrMissingInput)
	}
	if neg := strings.TrimSpace(req.Negative); neg != "" {
		instruction += fmt.Sprintf(negativeSuffix, neg)
	}

	parts := []*genai.Part{genai.NewPartFromBytes(req.Product.Data, req.Product.MimeType)}
	if !req.Background.IsZero() {
		parts = append(parts, genai.NewPartFromBytes(req.Background.Data, req.Background.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(instruction))
	if !req.Mask.IsZero() {
		parts = append(parts, genai.NewPartFromBytes(req.Mask.Data, req.Mask.MimeType))
	}

	img, ok, err := c.image(ctx, "edit", parts)
	if err != nil {
		return media.Image{}, err
	}
	if !ok {
		return media.Image{}, ErrNoImageProduced
	}
	return img, nil
}

// AutoMask returns the model's segmentation mask as produced. Callers are
// expected to binarize it before use.
func (c *Client) AutoMask(ctx context.Context, img media.Image) (media.Image, error) {
	if img.IsZero() {
		return media.Image{}, fmt.Errorf("%w: product image", ErrMissingInput)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(maskInstruction),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	}

	mask, ok, err := c.image(ctx, "auto_mask", parts)
	if err != nil {
		return media.Image{}, err
	}
	if !ok {
		return media.Image{}, ErrNoMaskProduced
	}
	return mask, nil
}

func (c *Client) Enhance(ctx context.Context, img media.Image, level prompt.EnhancementLevel) (media.Image, error) {
	if img.IsZero() {
		return media.Image{}, fmt.Errorf("%w: image to enhance", ErrMissingInput)
	}
	parts := []*genai.Part{
		genai.NewPartFromText(enhanceInstruction(level)),
		genai.NewPartFromBytes(img.Data, img.MimeType),
	}

	out, ok, err := c.image(ctx, "enhance", parts)
	if err != nil {
		return media.Image{}, err
	}
	if !ok {
		return media.Image{}, fmt.Errorf("enhance: %w", ErrNoImageProduced)
	}
	return out, nil
}

func (c *Client) text(ctx context.Context, op string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.generate(ctx, op, c.textModel, parts, cfg)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(extractText(resp)), nil
}

func (c *Client) image(ctx context.Context, op string, parts []*genai.Part) (media.Image, bool, error) {
	cfg := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE", "TEXT"}}
	resp, err := c.generate(ctx, op, c.imageModel, parts, cfg)
	if err != nil {
		return media.Image{}, false, err
	}

	img, ok := extractImage(resp)
	if !ok {
		c.logger.Warn("gemini returned no image", "op", op, "model", c.imageModel, "text", truncate(extractText(resp), 200))
	}
	return img, ok, nil
}

func (c *Client) generate(ctx context.Context, op, model string, parts []*genai.Part, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	started := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		c.logger.Error("gemini request failed", "op", op, "model", model, "err", err, "duration", time.Since(started))
		return nil, fmt.Errorf("gemini %s: %w", op, err)
	}
	c.logger.Debug("gemini request done", "op", op, "model", model, "duration", time.Since(started))
	return resp, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// extractImage returns the first inline image across all candidates.
func extractImage(resp *genai.GenerateContentResponse) (media.Image, bool) {
	if resp == nil {
		return media.Image{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p == nil || p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			mimeType := media.DetectMimeType(p.InlineData.Data, p.InlineData.MIMEType)
			return media.Image{Data: p.InlineData.Data, MimeType: mimeType}, true
		}
	}
	return media.Image{}, false
}

// stripQuotes drops one leading and one trailing quote character.
func stripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `"`) || strings.HasPrefix(s, "'") {
		s = s[1:]
	}
	if strings.HasSuffix(s, `"`) || strings.HasSuffix(s, "'") {
		s = s[:len(s)-1]
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func float32Ptr(v float32) *float32 {
	return &v
}
