package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

// Generate sends the committed prompt and the product photo, normalised to
// the configured aspect ratio, to the edit model. The result becomes the
// current image and the newest history entry.
func (s *Service) Generate(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	product := sess.product
	bundle := sess.bundle
	cfg := sess.config
	mask := sess.mask
	background := sess.background
	if product.IsZero() || strings.TrimSpace(bundle.Positive) == "" {
		sess.mu.Unlock()
		return Snapshot{}, opErr(OpGenerate, fmt.Errorf("%w: product image and prompt are required", gemini.ErrMissingInput))
	}
	if err := sess.beginLocked(OpGenerate); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	sess.mu.Unlock()
	s.notify(sess, EventState)

	if cfg.BackgroundStyle != prompt.BackgroundCustom {
		background = media.Image{}
	}

	var result media.Image
	normalized, err := media.Normalize(product, string(cfg.AspectRatio))
	if err == nil {
		result, err = s.model.Edit(ctx, gemini.EditRequest{
			Product:    normalized,
			Positive:   bundle.Positive,
			Negative:   bundle.Negative,
			Mask:       mask,
			Background: background,
		})
	}

	return s.finishImageOp(sess, OpGenerate, result, err)
}

// Enhance re-renders an image at the given level. index selects a history
// entry; a negative index means the current image.
func (s *Service) Enhance(ctx context.Context, id string, level prompt.EnhancementLevel, index int) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	source := sess.current
	if index >= 0 {
		entry, ok := sess.history.At(index)
		if !ok {
			sess.mu.Unlock()
			return Snapshot{}, opErr(OpEnhance, ErrHistoryIndex)
		}
		source = entry.Image
	}
	if source.IsZero() {
		sess.mu.Unlock()
		return Snapshot{}, opErr(OpEnhance, ErrNoResult)
	}
	if err := sess.beginLocked(OpEnhance); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	sess.mu.Unlock()
	s.notify(sess, EventState)

	result, err := s.model.Enhance(ctx, source, level)
	return s.finishImageOp(sess, OpEnhance, result, err)
}

func (s *Service) finishImageOp(sess *session, op Op, result media.Image, err error) (Snapshot, error) {
	sess.mu.Lock()
	if err == nil {
		sess.current = result
		sess.history.Add(Entry{
			ID:        uuid.NewString(),
			Origin:    op,
			CreatedAt: s.now(),
			Image:     result,
		})
	}
	sess.endLocked(op, err, s.now())
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	if err != nil {
		s.logger.Warn("image operation failed", "session", sess.id, "op", op, "err", err)
		s.notify(sess, EventError)
		return snap, opErr(op, err)
	}
	s.logger.Info("image operation done", "session", sess.id, "op", op, "bytes", len(result.Data))
	s.notify(sess, EventResult)
	return snap, nil
}

func (s *Service) History(id string) ([]Entry, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.history.Entries(), nil
}

func (s *Service) HistoryImage(id string, index int) (media.Image, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return media.Image{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	entry, ok := sess.history.At(index)
	if !ok {
		return media.Image{}, ErrHistoryIndex
	}
	return entry.Image, nil
}

func (s *Service) SelectHistory(id string, index int) (Snapshot, error) {
	return s.mutate(id, false, func(sess *session) error {
		entry, ok := sess.history.At(index)
		if !ok {
			return ErrHistoryIndex
		}
		sess.current = entry.Image
		return nil
	})
}

func (s *Service) ClearHistory(id string) (Snapshot, error) {
	return s.mutate(id, false, func(sess *session) error {
		sess.history.Clear()
		return nil
	})
}

// Reiterate turns a history image into the new product photo.
func (s *Service) Reiterate(id string, index int) (Snapshot, error) {
	return s.mutate(id, true, func(sess *session) error {
		entry, ok := sess.history.At(index)
		if !ok {
			return opErr(OpReiterate, ErrHistoryIndex)
		}
		sess.product = entry.Image
		sess.productDesc = ""
		sess.mask = media.Image{}
		return nil
	})
}

// Export re-encodes the current image for download.
func (s *Service) Export(id string, format media.Format, quality float64) (media.Image, error) {
	img, err := s.Image(id, SlotResult)
	if err != nil {
		return media.Image{}, err
	}
	if img.IsZero() {
		return media.Image{}, opErr(OpExport, ErrNoResult)
	}
	out, err := media.Export(img, format, quality)
	if err != nil {
		return media.Image{}, opErr(OpExport, err)
	}
	return out, nil
}
