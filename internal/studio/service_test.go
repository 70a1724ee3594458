package studio

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

type fakeModel struct {
	mu sync.Mutex

	template    func() (string, error)
	compose     func(media.Image) (string, error)
	style       func(prompt.StyleEmphasis) (string, error)
	scene       func(subject, keywords string) (string, error)
	edit        func(gemini.EditRequest) (media.Image, error)
	mask        func() (media.Image, error)
	enhance     func(prompt.EnhancementLevel) (media.Image, error)
	edits       []gemini.EditRequest
	composeN    atomic.Int32
	styleN      atomic.Int32
	sceneN      atomic.Int32
	templateN   atomic.Int32
	lastSubject atomic.Value
}

func (f *fakeModel) DescribeStyle(_ context.Context, _ media.Image, e prompt.StyleEmphasis) (string, error) {
	f.styleN.Add(1)
	if f.style == nil {
		return "style:" + string(e), nil
	}
	return f.style(e)
}

func (f *fakeModel) DescribeComposition(_ context.Context, img media.Image) (string, error) {
	f.composeN.Add(1)
	if f.compose == nil {
		return "a red sneaker", nil
	}
	return f.compose(img)
}

func (f *fakeModel) WriteScene(_ context.Context, subject, keywords string) (string, error) {
	f.sceneN.Add(1)
	f.lastSubject.Store(subject)
	if f.scene == nil {
		return "scene:" + keywords, nil
	}
	return f.scene(subject, keywords)
}

func (f *fakeModel) AdTemplate(context.Context) (string, error) {
	f.templateN.Add(1)
	if f.template == nil {
		return "A professional shot of [PRODUCT] on display.", nil
	}
	return f.template()
}

func (f *fakeModel) Edit(_ context.Context, req gemini.EditRequest) (media.Image, error) {
	f.mu.Lock()
	f.edits = append(f.edits, req)
	f.mu.Unlock()
	if f.edit == nil {
		return media.Image{Data: []byte("result-" + req.Positive), MimeType: media.MimePNG}, nil
	}
	return f.edit(req)
}

func (f *fakeModel) AutoMask(context.Context, media.Image) (media.Image, error) {
	return f.mask()
}

func (f *fakeModel) Enhance(_ context.Context, img media.Image, level prompt.EnhancementLevel) (media.Image, error) {
	if f.enhance == nil {
		return media.Image{Data: append([]byte(string(level)+":"), img.Data...), MimeType: media.MimePNG}, nil
	}
	return f.enhance(level)
}

func pngOf(t *testing.T, w, h int, fill func(x, y int) color.Color) media.Image {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return media.Image{Data: buf.Bytes(), MimeType: media.MimePNG}
}

func solid(t *testing.T, w, h int, c color.Color) media.Image {
	return pngOf(t, w, h, func(int, int) color.Color { return c })
}

// newTestService returns a service whose debounced rebuilds never fire on
// their own; tests drive rebuilds with RefreshPrompt.
func newTestService(t *testing.T, model *fakeModel) (*Service, string) {
	t.Helper()
	svc := New(Options{Model: model, Debounce: time.Hour})
	t.Cleanup(svc.Close)

	snap := svc.Create()
	require.Eventually(t, func() bool {
		got, err := svc.Get(snap.ID)
		return err == nil && len(got.Busy) == 0
	}, time.Second, 5*time.Millisecond)
	return svc, snap.ID
}

func TestCreatePrefillsTemplate(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	snap, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "A professional shot of [PRODUCT] on display.", snap.Template)
	assert.Equal(t, snap.Template, snap.Prompt.Positive)
	assert.Equal(t, prompt.DefaultShotConfig(), snap.Config)
	assert.True(t, svc.PromptPending(id))
}

func TestRebuildUsesTemplateAndProductDescription(t *testing.T) {
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 8, 8, color.White))
	require.NoError(t, err)

	snap, err := svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "A professional shot of a red sneaker on display."+
		" The camera angle is eye level."+
		" The lighting has a warm temperature, creating soft shadows."+
		" The background is neutral, clean, and minimalist to ensure the product is the absolute main focus.",
		snap.Prompt.Positive)

	_, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int32(1), model.composeN.Load(), "description is reused until the photo changes")
}

func TestRebuildEmptyWithoutTemplate(t *testing.T) {
	model := &fakeModel{template: func() (string, error) { return "", errors.New("quota") }}
	svc, id := newTestService(t, model)

	snap, err := svc.Get(id)
	require.NoError(t, err)
	var opErr *OpError
	require.ErrorAs(t, snap.Err, &opErr)
	assert.Equal(t, OpTemplate, opErr.Op)

	_, err = svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	snap, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, snap.Prompt.Positive)
	assert.Zero(t, model.composeN.Load())
}

func TestRebuildStyleDescriptionFollowsEmphasis(t *testing.T) {
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.SetStyleImage(id, solid(t, 4, 4, color.Black))
	require.NoError(t, err)
	snap, err := svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, snap.Prompt.Positive, `especially the overall style, must be heavily inspired by this description: "style:OVERALL".`)
	assert.Contains(t, snap.Prompt.Positive, "A professional, cinematic, high-resolution full-shot of [PRODUCT]")

	_, err = svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.StyleEmphasis = prompt.EmphasisColorCorrection
		return nil
	})
	require.NoError(t, err)
	snap, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, snap.Prompt.Positive, `color graded to match this specific aesthetic: "style:COLOR_CORRECTION".`)
	assert.Equal(t, int32(2), model.styleN.Load())
}

func TestRebuildFailureClearsPrompt(t *testing.T) {
	model := &fakeModel{compose: func(media.Image) (string, error) { return "", errors.New("network down") }}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)

	snap, err := svc.RefreshPrompt(context.Background(), id)
	require.Error(t, err)
	assert.Empty(t, snap.Prompt.Positive)
	var opErr *OpError
	require.ErrorAs(t, snap.Err, &opErr)
	assert.Equal(t, OpPrompt, opErr.Op)
}

func TestStaleRebuildIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	model := &fakeModel{}
	model.scene = func(_, keywords string) (string, error) {
		if keywords == "first" {
			entered <- struct{}{}
			<-release
		}
		return "scene:" + keywords, nil
	}
	svc, id := newTestService(t, model)

	_, err := svc.SetCreative(id, prompt.CreativeMode{Enabled: true, Keywords: "first"})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.RefreshPrompt(context.Background(), id)
		done <- err
	}()
	<-entered

	_, err = svc.SetCreative(id, prompt.CreativeMode{Enabled: true, Keywords: "second"})
	require.NoError(t, err)
	snap, err := svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "scene:second", snap.Prompt.Positive)

	close(release)
	require.NoError(t, <-done)

	snap, err = svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "scene:second", snap.Prompt.Positive)
}

func TestDebouncedBurstRebuildsOnce(t *testing.T) {
	model := &fakeModel{template: func() (string, error) { return "", errors.New("offline") }}
	svc := New(Options{Model: model, Debounce: 40 * time.Millisecond})
	t.Cleanup(svc.Close)

	id := svc.Create().ID
	require.Eventually(t, func() bool {
		snap, _ := svc.Get(id)
		return snap.Err != nil
	}, time.Second, 5*time.Millisecond)

	for _, keywords := range []string{"neon", "rain", "night", "chrome", "fog"} {
		_, err := svc.SetCreative(id, prompt.CreativeMode{Enabled: true, Keywords: keywords})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		snap, _ := svc.Get(id)
		return snap.Prompt.Positive == "scene:fog"
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), model.sceneN.Load())
	assert.Equal(t, "the product", model.lastSubject.Load())
}

func TestSetPromptSupersedesPendingRebuild(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	_, err := svc.SetConfig(id, prompt.DefaultShotConfig())
	require.NoError(t, err)
	require.True(t, svc.PromptPending(id))

	snap, err := svc.SetPrompt(id, "my own words")
	require.NoError(t, err)
	assert.Equal(t, "my own words", snap.Prompt.Positive)
	assert.False(t, svc.PromptPending(id))
}

func TestGenerateRequiresInputs(t *testing.T) {
	model := &fakeModel{template: func() (string, error) { return "", errors.New("x") }}
	svc, id := newTestService(t, model)

	_, err := svc.Generate(context.Background(), id)
	assert.ErrorIs(t, err, gemini.ErrMissingInput)

	_, err = svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), id)
	assert.ErrorIs(t, err, gemini.ErrMissingInput)
	assert.Empty(t, model.edits)
}

func TestGenerateNormalizesAndRecordsHistory(t *testing.T) {
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 30, 10, color.RGBA{R: 255, A: 255}))
	require.NoError(t, err)
	_, err = svc.SetCustomBackground(id, solid(t, 5, 5, color.Black))
	require.NoError(t, err)
	_, err = svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.AspectRatio = prompt.Ratio1x1
		return nil
	})
	require.NoError(t, err)
	_, err = svc.SetNegative(id, "watermarks")
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)

	snap, err := svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, snap.HasResult)
	assert.Equal(t, 1, snap.HistoryLen)

	require.Len(t, model.edits, 1)
	req := model.edits[0]
	assert.Equal(t, "watermarks", req.Negative)
	assert.False(t, req.Background.IsZero())
	assert.Contains(t, req.Positive, "Seamlessly composite the product")

	decoded, err := media.Decode(req.Product)
	require.NoError(t, err)
	assert.Equal(t, 30, decoded.Bounds().Dx())
	assert.Equal(t, 30, decoded.Bounds().Dy())

	entries, err := svc.History(id)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, OpGenerate, entries[0].Origin)
}

func TestGenerateSkipsBackgroundUnlessCustom(t *testing.T) {
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.SetCustomBackground(id, solid(t, 4, 4, color.Black))
	require.NoError(t, err)
	snap, err := svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.BackgroundStyle = prompt.BackgroundUrbanScene
		return nil
	})
	require.NoError(t, err)
	assert.False(t, snap.HasBackground)

	_, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.Generate(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, model.edits[0].Background.IsZero())
}

func TestGenerateFailureKeepsMask(t *testing.T) {
	model := &fakeModel{
		edit: func(gemini.EditRequest) (media.Image, error) { return media.Image{}, gemini.ErrNoImageProduced },
	}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.SetMask(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)

	snap, err := svc.Generate(context.Background(), id)
	assert.ErrorIs(t, err, gemini.ErrNoImageProduced)
	assert.True(t, snap.HasMask)
	assert.False(t, snap.HasResult)
	assert.ErrorIs(t, snap.Err, gemini.ErrNoImageProduced)
	assert.Empty(t, snap.Busy)
}

func TestGenerateRejectsConcurrentDuplicate(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	model := &fakeModel{}
	model.edit = func(gemini.EditRequest) (media.Image, error) {
		close(entered)
		<-release
		return media.Image{Data: []byte("ok"), MimeType: media.MimePNG}, nil
	}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(context.Background(), id)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(context.Background(), id)
		done <- err
	}()
	<-entered

	_, err = svc.Generate(context.Background(), id)
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)
}

func TestAutoMaskIsBinary(t *testing.T) {
	noisy := pngOf(t, 16, 16, func(x, y int) color.Color {
		v := uint8(x*16 + y)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	})
	model := &fakeModel{mask: func() (media.Image, error) { return noisy, nil }}
	svc, id := newTestService(t, model)

	_, err := svc.AutoMask(context.Background(), id)
	assert.ErrorIs(t, err, gemini.ErrMissingInput)

	_, err = svc.SetProductImage(id, solid(t, 16, 16, color.White))
	require.NoError(t, err)
	snap, err := svc.AutoMask(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, snap.HasMask)

	mask, err := svc.Image(id, SlotMask)
	require.NoError(t, err)
	decoded, err := media.Decode(mask)
	require.NoError(t, err)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			gray := color.GrayModel.Convert(decoded.At(x, y)).(color.Gray)
			assert.Contains(t, []uint8{0, 255}, gray.Y)
		}
	}
}

func TestAutoMaskFailureIsReported(t *testing.T) {
	model := &fakeModel{mask: func() (media.Image, error) { return media.Image{}, gemini.ErrNoMaskProduced }}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	snap, err := svc.AutoMask(context.Background(), id)
	assert.ErrorIs(t, err, gemini.ErrNoMaskProduced)
	assert.False(t, snap.HasMask)
}

func TestNewProductResetsMask(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	snap, err := svc.SetMask(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	require.True(t, snap.HasMask)

	snap, err = svc.SetProductImage(id, solid(t, 6, 6, color.White))
	require.NoError(t, err)
	assert.False(t, snap.HasMask)
}

func TestClearStyleResetsEmphasis(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	_, err := svc.SetStyleImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.StyleEmphasis = prompt.EmphasisTexture
		return nil
	})
	require.NoError(t, err)

	snap, err := svc.ClearStyleImage(id)
	require.NoError(t, err)
	assert.False(t, snap.HasStyle)
	assert.Equal(t, prompt.EmphasisOverall, snap.Config.StyleEmphasis)
}

func TestClearCustomBackgroundFallsBackToNone(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	snap, err := svc.SetCustomBackground(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	assert.Equal(t, prompt.BackgroundCustom, snap.Config.BackgroundStyle)

	snap, err = svc.ClearCustomBackground(id)
	require.NoError(t, err)
	assert.Equal(t, prompt.BackgroundNone, snap.Config.BackgroundStyle)
}

func TestSetConfigValidates(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	cfg := prompt.DefaultShotConfig()
	cfg.ShotType = "Drone-shot"
	_, err := svc.SetConfig(id, cfg)
	assert.ErrorIs(t, err, prompt.ErrInvalidConfig)
}

func TestUpdateConfigConcurrentPatchesCompose(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})

	var wg sync.WaitGroup
	start := make(chan struct{})
	patches := []func(*prompt.ShotConfig){
		func(c *prompt.ShotConfig) { c.AspectRatio = prompt.Ratio16x9 },
		func(c *prompt.ShotConfig) { c.ShotType = prompt.ShotCloseUp },
		func(c *prompt.ShotConfig) { c.LightTemperature = prompt.LightCool },
		func(c *prompt.ShotConfig) { c.ShadowIntensity = prompt.ShadowHard },
	}
	for _, patch := range patches {
		wg.Add(1)
		go func(patch func(*prompt.ShotConfig)) {
			defer wg.Done()
			<-start
			_, err := svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
				patch(c)
				time.Sleep(time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}(patch)
	}
	close(start)
	wg.Wait()

	snap, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, prompt.Ratio16x9, snap.Config.AspectRatio)
	assert.Equal(t, prompt.ShotCloseUp, snap.Config.ShotType)
	assert.Equal(t, prompt.LightCool, snap.Config.LightTemperature)
	assert.Equal(t, prompt.ShadowHard, snap.Config.ShadowIntensity)
}

func TestUpdateConfigLeavesConfigOnError(t *testing.T) {
	svc, id := newTestService(t, &fakeModel{})
	boom := errors.New("bad patch")

	_, err := svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.AspectRatio = prompt.Ratio9x16
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = svc.UpdateConfig(id, func(c *prompt.ShotConfig) error {
		c.AspectRatio = prompt.Ratio9x16
		c.ShotType = "Drone-shot"
		return nil
	})
	assert.ErrorIs(t, err, prompt.ErrInvalidConfig)

	snap, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, prompt.DefaultShotConfig(), snap.Config)
}

func TestPresetRoundTripClearsBackground(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t, &fakeModel{})

	cfg := prompt.ShotConfig{
		AspectRatio:       prompt.Ratio9x16,
		LightTemperature:  prompt.LightCool,
		ShadowIntensity:   prompt.ShadowHard,
		CameraPerspective: prompt.AngleDutch,
		ShotType:          prompt.ShotMid,
		StyleEmphasis:     prompt.EmphasisLighting,
		BackgroundStyle:   prompt.BackgroundCustom,
	}
	_, err := svc.SetConfig(id, cfg)
	require.NoError(t, err)
	_, err = svc.SetCreative(id, prompt.CreativeMode{Enabled: true, Keywords: "neon"})
	require.NoError(t, err)
	_, err = svc.SetPrompt(id, "saved prompt")
	require.NoError(t, err)
	_, err = svc.SetNegative(id, "saved negative")
	require.NoError(t, err)

	p, err := svc.SavePreset(ctx, id, "Night")
	require.NoError(t, err)

	_, err = svc.Reset(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		snap, _ := svc.Get(id)
		return len(snap.Busy) == 0
	}, time.Second, 5*time.Millisecond)
	_, err = svc.SetCustomBackground(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)

	snap, err := svc.LoadPreset(ctx, id, p.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg, snap.Config)
	assert.Equal(t, prompt.CreativeMode{Enabled: true, Keywords: "neon"}, snap.Creative)
	assert.Equal(t, prompt.Bundle{Positive: "saved prompt", Negative: "saved negative"}, snap.Prompt)
	assert.False(t, snap.HasBackground)
	assert.Equal(t, p.ID, snap.SelectedPreset)
	assert.False(t, svc.PromptPending(id))

	require.NoError(t, svc.DeletePreset(ctx, p.ID))
	snap, err = svc.Get(id)
	require.NoError(t, err)
	assert.Empty(t, snap.SelectedPreset)
	assert.Empty(t, svc.Presets(ctx))
}

func TestEnhanceReiterateAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, id := newTestService(t, &fakeModel{})

	_, err := svc.Enhance(ctx, id, prompt.EnhanceSubtle, -1)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(ctx, id)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, id)
	require.NoError(t, err)

	snap, err := svc.Enhance(ctx, id, prompt.EnhanceArtistic, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.HistoryLen)

	entries, err := svc.History(id)
	require.NoError(t, err)
	assert.Equal(t, OpEnhance, entries[0].Origin)
	assert.Equal(t, OpGenerate, entries[1].Origin)

	_, err = svc.SelectHistory(id, 1)
	require.NoError(t, err)
	current, err := svc.Image(id, SlotResult)
	require.NoError(t, err)
	assert.Equal(t, entries[1].Image, current)

	_, err = svc.SetMask(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	snap, err = svc.Reiterate(id, 0)
	require.NoError(t, err)
	assert.False(t, snap.HasMask)
	product, err := svc.Image(id, SlotProduct)
	require.NoError(t, err)
	assert.Equal(t, entries[0].Image, product)

	_, err = svc.Reiterate(id, 9)
	assert.ErrorIs(t, err, ErrHistoryIndex)

	snap, err = svc.ClearHistory(id)
	require.NoError(t, err)
	assert.Zero(t, snap.HistoryLen)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.Export(id, media.FormatJPEG, 0.8)
	assert.ErrorIs(t, err, ErrNoResult)

	result := solid(t, 6, 6, color.RGBA{G: 200, A: 255})
	model.edit = func(gemini.EditRequest) (media.Image, error) { return result, nil }

	_, err = svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(ctx, id)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, id)
	require.NoError(t, err)

	out, err := svc.Export(id, media.FormatJPEG, 0.8)
	require.NoError(t, err)
	assert.Equal(t, media.MimeJPEG, out.MimeType)
}

func TestResetKeepsHistory(t *testing.T) {
	ctx := context.Background()
	model := &fakeModel{}
	svc, id := newTestService(t, model)

	_, err := svc.SetProductImage(id, solid(t, 4, 4, color.White))
	require.NoError(t, err)
	_, err = svc.RefreshPrompt(ctx, id)
	require.NoError(t, err)
	_, err = svc.Generate(ctx, id)
	require.NoError(t, err)

	snap, err := svc.Reset(id)
	require.NoError(t, err)
	assert.False(t, snap.HasProduct)
	assert.False(t, snap.HasResult)
	assert.Equal(t, 1, snap.HistoryLen)
	assert.Equal(t, prompt.DefaultShotConfig(), snap.Config)

	require.Eventually(t, func() bool { return model.templateN.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestUnknownSession(t *testing.T) {
	svc := New(Options{Model: &fakeModel{}})
	t.Cleanup(svc.Close)

	_, err := svc.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Generate(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Delete("missing"), ErrSessionNotFound)
}

func TestEnsureAndPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var clock atomic.Value
	clock.Store(now)
	svc := New(Options{Model: &fakeModel{}, Debounce: time.Hour, Now: func() time.Time { return clock.Load().(time.Time) }})
	t.Cleanup(svc.Close)

	_, created := svc.Ensure("chat:1")
	assert.True(t, created)
	_, created = svc.Ensure("chat:1")
	assert.False(t, created)

	require.Eventually(t, func() bool {
		snap, _ := svc.Get("chat:1")
		return len(snap.Busy) == 0
	}, time.Second, 5*time.Millisecond)

	clock.Store(now.Add(2 * time.Hour))
	assert.Equal(t, 1, svc.PruneIdle(time.Hour))
	_, err := svc.Get("chat:1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNotifierReceivesEvents(t *testing.T) {
	var mu sync.Mutex
	var kinds []EventKind
	svc := New(Options{
		Model:    &fakeModel{},
		Debounce: time.Hour,
		Notifier: NotifierFunc(func(e Event) {
			mu.Lock()
			kinds = append(kinds, e.Kind)
			mu.Unlock()
		}),
	})
	t.Cleanup(svc.Close)

	svc.Create()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, k := range kinds {
			if k == EventTemplate {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
