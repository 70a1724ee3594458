package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScenes struct {
	scene    string
	err      error
	calls    int
	subject  string
	keywords string
}

func (f *fakeScenes) WriteScene(_ context.Context, subject, keywords string) (string, error) {
	f.calls++
	f.subject = subject
	f.keywords = keywords
	return f.scene, f.err
}

func allConfigs() []ShotConfig {
	var out []ShotConfig
	for _, shot := range ShotTypes() {
		for _, bg := range BackgroundStyles() {
			for _, angle := range CameraPerspectives() {
				cfg := DefaultShotConfig()
				cfg.ShotType = ShotType(shot.Key)
				cfg.BackgroundStyle = BackgroundStyle(bg.Key)
				cfg.CameraPerspective = CameraPerspective(angle.Key)
				out = append(out, cfg)
			}
		}
	}
	return out
}

func TestComposeEmptyWithoutTemplateOrStyle(t *testing.T) {
	for _, cfg := range allConfigs() {
		got := Compose(Input{Config: cfg, ProductDescription: "a red sneaker", Negative: "text"})
		assert.Empty(t, got.Positive)
		assert.Equal(t, "text", got.Negative)
	}
}

func TestBuildEmptyWithoutTemplateOrStyleSkipsModel(t *testing.T) {
	scenes := &fakeScenes{}
	got, err := Build(context.Background(), Input{Config: DefaultShotConfig(), ProductDescription: "a red sneaker"}, scenes)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Zero(t, scenes.calls)
}

func TestComposeTemplateBranch(t *testing.T) {
	cfg := ShotConfig{
		AspectRatio:       Ratio1x1,
		ShotType:          ShotFull,
		CameraPerspective: AngleEyeLevel,
		LightTemperature:  LightWarm,
		ShadowIntensity:   ShadowSoft,
		StyleEmphasis:     EmphasisOverall,
		BackgroundStyle:   BackgroundNone,
	}

	got := Compose(Input{
		Config:             cfg,
		ProductDescription: "a red sneaker",
		Template:           "A professional shot of [PRODUCT] on display.",
	})

	want := "A professional shot of a red sneaker on display." +
		" The camera angle is eye level." +
		" The lighting has a warm temperature, creating soft shadows." +
		" The background is neutral, clean, and minimalist to ensure the product is the absolute main focus."
	assert.Equal(t, want, got.Positive)
}

func TestComposeTemplateReplacesEveryPlaceholder(t *testing.T) {
	tpl := "[PRODUCT] floats above water while a reflection of [PRODUCT] shimmers below."
	for _, cfg := range allConfigs() {
		got := Compose(Input{Config: cfg, ProductDescription: "a watch", Template: tpl})
		assert.True(t, strings.HasPrefix(got.Positive, "a watch floats above water while a reflection of a watch shimmers below. "))
	}
}

func TestComposeTemplateKeepsPlaceholderWithoutSubject(t *testing.T) {
	got := Compose(Input{Config: DefaultShotConfig(), Template: "An epic shot of [PRODUCT] on ice."})
	assert.True(t, strings.HasPrefix(got.Positive, "An epic shot of [PRODUCT] on ice. The camera angle is eye level."))
}

func TestComposeShotOpenings(t *testing.T) {
	tests := []struct {
		shot ShotType
		want string
	}{
		{ShotLong, "A professional, cinematic, high-resolution long-shot of a lamp, showing it within a wider environment."},
		{ShotFull, "A professional, cinematic, high-resolution full-shot of a lamp, ensuring the entire item is visible."},
		{ShotMid, "A professional, cinematic, high-resolution mid-shot of a lamp, framed from a medium distance to show key features."},
		{ShotCloseUp, "A professional, cinematic, high-resolution close-up shot of a lamp, highlighting its main details and form."},
		{ShotExtremeCloseUp, "A professional, cinematic, high-resolution extreme close-up macro shot, focusing on a specific texture or intricate detail of a lamp."},
		{"", "A professional, cinematic, high-resolution photo of a lamp."},
	}

	for _, tt := range tests {
		t.Run(string(tt.shot), func(t *testing.T) {
			cfg := DefaultShotConfig()
			cfg.ShotType = tt.shot
			got := Compose(Input{
				Config:             cfg,
				ProductDescription: "a lamp",
				StyleDescription:   "moody teal tones",
				Template:           "ignored because a style exists [PRODUCT]",
			})
			assert.True(t, strings.HasPrefix(got.Positive, tt.want+" "), got.Positive)
		})
	}
}

func TestComposeDeterministicWithoutSubjectUsesPlaceholder(t *testing.T) {
	got := Compose(Input{Config: DefaultShotConfig(), StyleDescription: "pastel"})
	assert.True(t, strings.HasPrefix(got.Positive, "A professional, cinematic, high-resolution full-shot of [PRODUCT], ensuring"))
}

func TestComposeCameraAngleSentence(t *testing.T) {
	tests := map[CameraPerspective]string{
		AngleEyeLevel:     "The camera angle is eye level.",
		AngleThreeQuarter: "The camera angle is three quarter.",
		AngleWormsEye:     "The camera angle is worms eye.",
		AngleOverhead:     "The camera angle is overhead.",
		AngleWide:         "The camera angle is wide angle.",
	}
	for angle, want := range tests {
		cfg := DefaultShotConfig()
		cfg.CameraPerspective = angle
		got := Compose(Input{Config: cfg, Template: "T."})
		assert.Contains(t, got.Positive, " "+want+" ")
	}
}

func TestComposeBackgroundSentences(t *testing.T) {
	custom := "Seamlessly composite the product onto the provided custom background image. Realistically match the product's lighting, shadows, and reflections to the new environment. Do not alter the background itself."

	tests := []struct {
		bg   BackgroundStyle
		want string
	}{
		{BackgroundNone, "The background is neutral, clean, and minimalist to ensure the product is the absolute main focus."},
		{BackgroundMinimalistStudio, "The product is set against a beautiful minimalist studio background."},
		{BackgroundOutdoorNature, "The product is set against a beautiful outdoor nature background."},
		{BackgroundUrbanScene, "The product is set against a beautiful urban scene background."},
		{BackgroundAbstractGradient, "The product is set against a beautiful abstract gradient background."},
		{BackgroundCustom, custom},
	}

	for _, tt := range tests {
		t.Run(string(tt.bg), func(t *testing.T) {
			cfg := DefaultShotConfig()
			cfg.BackgroundStyle = tt.bg
			got := Compose(Input{Config: cfg, Template: "Shot of [PRODUCT]."})
			assert.True(t, strings.HasSuffix(got.Positive, " "+tt.want), got.Positive)
		})
	}

	for _, cfg := range allConfigs() {
		if cfg.BackgroundStyle != BackgroundCustom {
			continue
		}
		got := Compose(Input{Config: cfg, StyleDescription: "x"})
		assert.Contains(t, got.Positive, "Do not alter the background itself.")
	}
}

func TestComposeEmphasisSentences(t *testing.T) {
	tests := []struct {
		emphasis StyleEmphasis
		want     string
	}{
		{EmphasisBackground, `The background MUST be replaced with one that perfectly matches this detailed description: "DESC". Integrate the product into this new scene realistically.`},
		{EmphasisProductDetail, `The material, texture, and finish of the product itself must be altered to match these physical properties: "DESC".`},
		{EmphasisColorCorrection, `The entire image should be color graded to match this specific aesthetic: "DESC".`},
		{EmphasisOverall, `The overall visual style, especially the overall style, must be heavily inspired by this description: "DESC".`},
		{EmphasisColor, `The overall visual style, especially the color, must be heavily inspired by this description: "DESC".`},
		{EmphasisLighting, `The overall visual style, especially the lighting, must be heavily inspired by this description: "DESC".`},
		{EmphasisTexture, `The overall visual style, especially the texture, must be heavily inspired by this description: "DESC".`},
		{EmphasisComposition, `The overall visual style, especially the composition, must be heavily inspired by this description: "DESC".`},
	}

	for _, tt := range tests {
		t.Run(string(tt.emphasis), func(t *testing.T) {
			cfg := DefaultShotConfig()
			cfg.StyleEmphasis = tt.emphasis
			got := Compose(Input{Config: cfg, ProductDescription: "a cup", StyleDescription: "DESC"})
			assert.True(t, strings.HasSuffix(got.Positive, " "+tt.want), got.Positive)
		})
	}
}

func TestBuildCreativeShortCircuits(t *testing.T) {
	scenes := &fakeScenes{scene: "The product rests on a glacier at dawn."}

	for _, cfg := range allConfigs() {
		got, err := Build(context.Background(), Input{
			Config:             cfg,
			Creative:           CreativeMode{Enabled: true, Keywords: "ice"},
			ProductDescription: "a perfume bottle",
			Template:           "Template with [PRODUCT].",
		}, scenes)
		require.NoError(t, err)
		assert.Equal(t, "The product rests on a glacier at dawn.", got.Positive)
		assert.NotContains(t, got.Positive, "camera angle")
		assert.NotContains(t, got.Positive, "lighting has a")
	}
	assert.Equal(t, "a perfume bottle", scenes.subject)
	assert.Equal(t, "ice", scenes.keywords)
}

func TestBuildCreativeAppendsStyleInspiration(t *testing.T) {
	scenes := &fakeScenes{scene: "A neon street."}

	got, err := Build(context.Background(), Input{
		Config:           DefaultShotConfig(),
		Creative:         CreativeMode{Enabled: true},
		StyleDescription: "cyan shadows",
		Negative:         "people",
	}, scenes)
	require.NoError(t, err)
	assert.Equal(t, `A neon street. The overall visual aesthetic, colors, and lighting should also be heavily inspired by this description: "cyan shadows".`, got.Positive)
	assert.Equal(t, "people", got.Negative)
	assert.Equal(t, "the product", scenes.subject)
}

func TestBuildCreativePropagatesModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	got, err := Build(context.Background(), Input{Config: DefaultShotConfig(), Creative: CreativeMode{Enabled: true}}, &fakeScenes{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.True(t, got.IsEmpty())
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultShotConfig().Validate())

	cfg := DefaultShotConfig()
	cfg.CameraPerspective = "Sideways"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultShotConfig()
	cfg.AspectRatio = "2:1"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestWithDefaults(t *testing.T) {
	cfg := ShotConfig{AspectRatio: Ratio16x9, BackgroundStyle: BackgroundUrbanScene}.WithDefaults()
	assert.Equal(t, Ratio16x9, cfg.AspectRatio)
	assert.Equal(t, BackgroundUrbanScene, cfg.BackgroundStyle)
	assert.Equal(t, ShotFull, cfg.ShotType)
	assert.Equal(t, EmphasisOverall, cfg.StyleEmphasis)
	require.NoError(t, cfg.Validate())
}

func TestCatalogOrder(t *testing.T) {
	first := func(opts []NamedOption) string { return opts[0].Key }

	def := DefaultShotConfig()
	assert.Equal(t, string(def.AspectRatio), first(AspectRatios()))
	assert.Equal(t, string(def.LightTemperature), first(LightTemperatures()))
	assert.Equal(t, string(def.CameraPerspective), first(CameraPerspectives()))
	assert.Equal(t, string(EnhanceRealistic), first(EnhancementLevels()))
	assert.Len(t, CameraPerspectives(), 9)
	assert.Len(t, StyleEmphases(), 8)
	assert.Len(t, Catalog(), 8)
}
