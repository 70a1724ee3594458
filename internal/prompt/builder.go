package prompt

import (
	"context"
	"fmt"
	"strings"
)

// Placeholder marks where the subject goes in an advertising template.
const Placeholder = "[PRODUCT]"

// FallbackTemplate is used when the model returns a template without Placeholder.
const FallbackTemplate = "A professional, cinematic, high-resolution photo of " + Placeholder + "."

const creativeSubjectFallback = "the product"

// SceneWriter produces a free-form creative scene for the given subject.
type SceneWriter interface {
	WriteScene(ctx context.Context, subject, keywords string) (string, error)
}

// Input is everything a rebuild of the positive instruction depends on.
type Input struct {
	Config             ShotConfig
	Creative           CreativeMode
	ProductDescription string
	StyleDescription   string
	Template           string
	Negative           string
}

// Build resolves the positive instruction for in. Only the creative branch
// talks to the model; its transport error is the only error Build returns.
func Build(ctx context.Context, in Input, scenes SceneWriter) (Bundle, error) {
	if !in.Creative.Enabled {
		return Compose(in), nil
	}

	subject := strings.TrimSpace(in.ProductDescription)
	if subject == "" {
		subject = creativeSubjectFallback
	}

	scene, err := scenes.WriteScene(ctx, subject, in.Creative.Keywords)
	if err != nil {
		return Bundle{Negative: in.Negative}, fmt.Errorf("creative scene: %w", err)
	}

	if style := strings.TrimSpace(in.StyleDescription); style != "" {
		scene += fmt.Sprintf(` The overall visual aesthetic, colors, and lighting should also be heavily inspired by this description: "%s".`, style)
	}
	return Bundle{Positive: scene, Negative: in.Negative}, nil
}

// Compose assembles the instruction without calling the model. Creative mode
// is ignored here; use Build for that branch. With neither a template nor a
// style description there is nothing to build and the positive part is empty.
func Compose(in Input) Bundle {
	out := Bundle{Negative: in.Negative}

	template := strings.TrimSpace(in.Template)
	style := strings.TrimSpace(in.StyleDescription)
	if template == "" && style == "" {
		return out
	}

	subject := strings.TrimSpace(in.ProductDescription)
	if subject == "" {
		subject = Placeholder
	}

	cfg := in.Config
	parts := make([]string, 0, 5)
	if template != "" && style == "" {
		parts = append(parts, strings.ReplaceAll(template, Placeholder, subject))
	} else {
		parts = append(parts, openingForShot(cfg.ShotType, subject))
	}

	parts = append(parts,
		fmt.Sprintf("The camera angle is %s.", strings.Replace(strings.ToLower(string(cfg.CameraPerspective)), "-", " ", 1)),
		fmt.Sprintf("The lighting has a %s temperature, creating %s shadows.", strings.ToLower(string(cfg.LightTemperature)), strings.ToLower(string(cfg.ShadowIntensity))),
		backgroundSentence(cfg.BackgroundStyle),
	)

	if style != "" {
		parts = append(parts, emphasisSentence(cfg.StyleEmphasis, style))
	}

	out.Positive = strings.Join(parts, " ")
	return out
}

func openingForShot(shot ShotType, subject string) string {
	switch shot {
	case ShotLong:
		return fmt.Sprintf("A professional, cinematic, high-resolution long-shot of %s, showing it within a wider environment.", subject)
	case ShotFull:
		return fmt.Sprintf("A professional, cinematic, high-resolution full-shot of %s, ensuring the entire item is visible.", subject)
	case ShotMid:
		return fmt.Sprintf("A professional, cinematic, high-resolution mid-shot of %s, framed from a medium distance to show key features.", subject)
	case ShotCloseUp:
		return fmt.Sprintf("A professional, cinematic, high-resolution close-up shot of %s, highlighting its main details and form.", subject)
	case ShotExtremeCloseUp:
		return fmt.Sprintf("A professional, cinematic, high-resolution extreme close-up macro shot, focusing on a specific texture or intricate detail of %s.", subject)
	default:
		return fmt.Sprintf("A professional, cinematic, high-resolution photo of %s.", subject)
	}
}

func backgroundSentence(bg BackgroundStyle) string {
	switch bg {
	case BackgroundCustom:
		return "Seamlessly composite the product onto the provided custom background image. Realistically match the product's lighting, shadows, and reflections to the new environment. Do not alter the background itself."
	case BackgroundNone, "":
		return "The background is neutral, clean, and minimalist to ensure the product is the absolute main focus."
	default:
		return fmt.Sprintf("The product is set against a beautiful %s background.", strings.ToLower(string(bg)))
	}
}

func emphasisSentence(emphasis StyleEmphasis, style string) string {
	switch emphasis {
	case EmphasisBackground:
		return fmt.Sprintf(`The background MUST be replaced with one that perfectly matches this detailed description: "%s". Integrate the product into this new scene realistically.`, style)
	case EmphasisProductDetail:
		return fmt.Sprintf(`The material, texture, and finish of the product itself must be altered to match these physical properties: "%s".`, style)
	case EmphasisColorCorrection:
		return fmt.Sprintf(`The entire image should be color graded to match this specific aesthetic: "%s".`, style)
	default:
		label := strings.ToLower(EmphasisLabel(emphasis))
		return fmt.Sprintf(`The overall visual style, especially the %s, must be heavily inspired by this description: "%s".`, label, style)
	}
}
