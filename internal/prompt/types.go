package prompt

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid shot configuration")

type (
	AspectRatio       string
	LightTemperature  string
	ShadowIntensity   string
	CameraPerspective string
	ShotType          string
	StyleEmphasis     string
	BackgroundStyle   string
	EnhancementLevel  string
)

const (
	Ratio1x1  AspectRatio = "1:1"
	Ratio3x4  AspectRatio = "3:4"
	Ratio4x3  AspectRatio = "4:3"
	Ratio9x16 AspectRatio = "9:16"
	Ratio16x9 AspectRatio = "16:9"
)

const (
	LightWarm    LightTemperature = "Warm"
	LightNeutral LightTemperature = "Neutral"
	LightCool    LightTemperature = "Cool"
)

const (
	ShadowSoft   ShadowIntensity = "Soft"
	ShadowMedium ShadowIntensity = "Medium"
	ShadowHard   ShadowIntensity = "Hard"
)

const (
	AngleEyeLevel     CameraPerspective = "Eye-level"
	AngleThreeQuarter CameraPerspective = "Three-quarter"
	AngleHigh         CameraPerspective = "High-angle"
	AngleLow          CameraPerspective = "Low-angle"
	AngleWormsEye     CameraPerspective = "Worms-eye"
	AngleOverhead     CameraPerspective = "Overhead"
	AngleDutch        CameraPerspective = "Dutch-angle"
	AngleProfile      CameraPerspective = "Profile"
	AngleWide         CameraPerspective = "Wide-angle"
)

const (
	ShotLong           ShotType = "Long-shot"
	ShotFull           ShotType = "Full-shot"
	ShotMid            ShotType = "Mid-shot"
	ShotCloseUp        ShotType = "Close-up"
	ShotExtremeCloseUp ShotType = "Extreme-close-up"
)

const (
	EmphasisOverall         StyleEmphasis = "OVERALL"
	EmphasisColor           StyleEmphasis = "COLOR"
	EmphasisLighting        StyleEmphasis = "LIGHTING"
	EmphasisTexture         StyleEmphasis = "TEXTURE"
	EmphasisComposition     StyleEmphasis = "COMPOSITION"
	EmphasisBackground      StyleEmphasis = "BACKGROUND"
	EmphasisProductDetail   StyleEmphasis = "PRODUCT_DETAIL"
	EmphasisColorCorrection StyleEmphasis = "COLOR_CORRECTION"
)

const (
	BackgroundNone             BackgroundStyle = "None"
	BackgroundMinimalistStudio BackgroundStyle = "Minimalist Studio"
	BackgroundOutdoorNature    BackgroundStyle = "Outdoor Nature"
	BackgroundUrbanScene       BackgroundStyle = "Urban Scene"
	BackgroundAbstractGradient BackgroundStyle = "Abstract Gradient"
	BackgroundCustom           BackgroundStyle = "Custom"
)

const (
	EnhanceRealistic EnhancementLevel = "Realistic"
	EnhanceSubtle    EnhancementLevel = "Subtle"
	EnhanceArtistic  EnhancementLevel = "Artistic"
)

// ShotConfig is replaced wholesale on every edit; treat values as immutable.
type ShotConfig struct {
	AspectRatio       AspectRatio       `json:"aspectRatio"`
	LightTemperature  LightTemperature  `json:"lightTemperature"`
	ShadowIntensity   ShadowIntensity   `json:"shadowIntensity"`
	CameraPerspective CameraPerspective `json:"cameraPerspective"`
	ShotType          ShotType          `json:"shotType"`
	StyleEmphasis     StyleEmphasis     `json:"styleEmphasis"`
	BackgroundStyle   BackgroundStyle   `json:"backgroundStyle"`
}

// DefaultShotConfig is used both for new sessions and for reset.
func DefaultShotConfig() ShotConfig {
	return ShotConfig{
		AspectRatio:       Ratio1x1,
		LightTemperature:  LightWarm,
		ShadowIntensity:   ShadowSoft,
		CameraPerspective: AngleEyeLevel,
		ShotType:          ShotFull,
		StyleEmphasis:     EmphasisOverall,
		BackgroundStyle:   BackgroundNone,
	}
}

func (c ShotConfig) Validate() error {
	checks := []struct {
		field string
		value string
		opts  []NamedOption
	}{
		{"aspectRatio", string(c.AspectRatio), AspectRatios()},
		{"lightTemperature", string(c.LightTemperature), LightTemperatures()},
		{"shadowIntensity", string(c.ShadowIntensity), ShadowIntensities()},
		{"cameraPerspective", string(c.CameraPerspective), CameraPerspectives()},
		{"shotType", string(c.ShotType), ShotTypes()},
		{"styleEmphasis", string(c.StyleEmphasis), StyleEmphases()},
		{"backgroundStyle", string(c.BackgroundStyle), BackgroundStyles()},
	}
	for _, chk := range checks {
		if !hasKey(chk.opts, chk.value) {
			return fmt.Errorf("%w: %s %q", ErrInvalidConfig, chk.field, chk.value)
		}
	}
	return nil
}

// WithDefaults fills empty fields from DefaultShotConfig. Older saved presets
// predate some fields.
func (c ShotConfig) WithDefaults() ShotConfig {
	def := DefaultShotConfig()
	if c.AspectRatio == "" {
		c.AspectRatio = def.AspectRatio
	}
	if c.LightTemperature == "" {
		c.LightTemperature = def.LightTemperature
	}
	if c.ShadowIntensity == "" {
		c.ShadowIntensity = def.ShadowIntensity
	}
	if c.CameraPerspective == "" {
		c.CameraPerspective = def.CameraPerspective
	}
	if c.ShotType == "" {
		c.ShotType = def.ShotType
	}
	if c.StyleEmphasis == "" {
		c.StyleEmphasis = def.StyleEmphasis
	}
	if c.BackgroundStyle == "" {
		c.BackgroundStyle = def.BackgroundStyle
	}
	return c
}

func ParseEnhancementLevel(value string) (EnhancementLevel, error) {
	for _, opt := range EnhancementLevels() {
		if opt.Key == value {
			return EnhancementLevel(value), nil
		}
	}
	return "", fmt.Errorf("%w: enhancement level %q", ErrInvalidConfig, value)
}

// CreativeMode asks the model for a wholly new scene instead of the fixed
// sentence assembly.
type CreativeMode struct {
	Enabled  bool   `json:"enabled"`
	Keywords string `json:"keywords"`
}

// Bundle is the instruction pair sent to the edit model.
type Bundle struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

func (b Bundle) IsEmpty() bool {
	return b.Positive == ""
}
