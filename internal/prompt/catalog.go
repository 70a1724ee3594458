package prompt

type NamedOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

func AspectRatios() []NamedOption {
	return []NamedOption{
		{Key: string(Ratio1x1), Name: "Square"},
		{Key: string(Ratio3x4), Name: "Portrait"},
		{Key: string(Ratio4x3), Name: "Landscape"},
		{Key: string(Ratio9x16), Name: "Story"},
		{Key: string(Ratio16x9), Name: "Widescreen"},
	}
}

func LightTemperatures() []NamedOption {
	return []NamedOption{
		{Key: string(LightWarm), Name: "Warm"},
		{Key: string(LightNeutral), Name: "Neutral"},
		{Key: string(LightCool), Name: "Cool"},
	}
}

func ShadowIntensities() []NamedOption {
	return []NamedOption{
		{Key: string(ShadowSoft), Name: "Soft"},
		{Key: string(ShadowMedium), Name: "Medium"},
		{Key: string(ShadowHard), Name: "Hard"},
	}
}

func CameraPerspectives() []NamedOption {
	return []NamedOption{
		{Key: string(AngleEyeLevel), Name: "Eye-level"},
		{Key: string(AngleThreeQuarter), Name: "Three-quarter"},
		{Key: string(AngleHigh), Name: "High angle"},
		{Key: string(AngleLow), Name: "Low angle"},
		{Key: string(AngleWormsEye), Name: "Worm's-eye"},
		{Key: string(AngleOverhead), Name: "Overhead"},
		{Key: string(AngleDutch), Name: "Dutch angle"},
		{Key: string(AngleProfile), Name: "Profile"},
		{Key: string(AngleWide), Name: "Wide angle"},
	}
}

func ShotTypes() []NamedOption {
	return []NamedOption{
		{Key: string(ShotLong), Name: "Long shot"},
		{Key: string(ShotFull), Name: "Full shot"},
		{Key: string(ShotMid), Name: "Mid shot"},
		{Key: string(ShotCloseUp), Name: "Close-up"},
		{Key: string(ShotExtremeCloseUp), Name: "Extreme close-up"},
	}
}

func StyleEmphases() []NamedOption {
	return []NamedOption{
		{Key: string(EmphasisOverall), Name: "Overall Style"},
		{Key: string(EmphasisColor), Name: "Color"},
		{Key: string(EmphasisLighting), Name: "Lighting"},
		{Key: string(EmphasisTexture), Name: "Texture"},
		{Key: string(EmphasisComposition), Name: "Composition"},
		{Key: string(EmphasisBackground), Name: "Background"},
		{Key: string(EmphasisProductDetail), Name: "Product Detail"},
		{Key: string(EmphasisColorCorrection), Name: "Color Correction"},
	}
}

func BackgroundStyles() []NamedOption {
	return []NamedOption{
		{Key: string(BackgroundNone), Name: "None"},
		{Key: string(BackgroundMinimalistStudio), Name: "Minimalist Studio"},
		{Key: string(BackgroundOutdoorNature), Name: "Outdoor Nature"},
		{Key: string(BackgroundUrbanScene), Name: "Urban Scene"},
		{Key: string(BackgroundAbstractGradient), Name: "Abstract Gradient"},
		{Key: string(BackgroundCustom), Name: "Custom"},
	}
}

func EnhancementLevels() []NamedOption {
	return []NamedOption{
		{Key: string(EnhanceRealistic), Name: "Realistic"},
		{Key: string(EnhanceSubtle), Name: "Subtle"},
		{Key: string(EnhanceArtistic), Name: "Artistic"},
	}
}

// Catalog groups every option list by the JSON field it applies to.
func Catalog() map[string][]NamedOption {
	return map[string][]NamedOption{
		"aspectRatio":       AspectRatios(),
		"lightTemperature":  LightTemperatures(),
		"shadowIntensity":   ShadowIntensities(),
		"cameraPerspective": CameraPerspectives(),
		"shotType":          ShotTypes(),
		"styleEmphasis":     StyleEmphases(),
		"backgroundStyle":   BackgroundStyles(),
		"enhancementLevel":  EnhancementLevels(),
	}
}

// EmphasisLabel returns the display name of e, or its raw key when unknown.
func EmphasisLabel(e StyleEmphasis) string {
	return Label(StyleEmphases(), string(e))
}

func Label(opts []NamedOption, key string) string {
	for _, opt := range opts {
		if opt.Key == key {
			return opt.Name
		}
	}
	return key
}

func hasKey(opts []NamedOption, key string) bool {
	for _, opt := range opts {
		if opt.Key == key {
			return true
		}
	}
	return false
}
