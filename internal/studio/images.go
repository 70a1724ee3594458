package studio

import (
	"context"
	"fmt"

	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

// SetProductImage replaces the product photo. Any mask belonged to the old
// photo and is dropped.
func (s *Service) SetProductImage(id string, img media.Image) (Snapshot, error) {
	if img.IsZero() {
		return Snapshot{}, media.ErrEmptyImage
	}
	return s.mutate(id, true, func(sess *session) error {
		sess.product = img
		sess.productDesc = ""
		sess.mask = media.Image{}
		return nil
	})
}

func (s *Service) ClearProductImage(id string) (Snapshot, error) {
	return s.mutate(id, true, func(sess *session) error {
		sess.product = media.Image{}
		sess.productDesc = ""
		sess.mask = media.Image{}
		return nil
	})
}

func (s *Service) SetStyleImage(id string, img media.Image) (Snapshot, error) {
	if img.IsZero() {
		return Snapshot{}, media.ErrEmptyImage
	}
	return s.mutate(id, true, func(sess *session) error {
		sess.style = img
		sess.styleDesc = ""
		return nil
	})
}

// ClearStyleImage also resets the emphasis, which only applies to a style
// reference.
func (s *Service) ClearStyleImage(id string) (Snapshot, error) {
	return s.mutate(id, true, func(sess *session) error {
		sess.style = media.Image{}
		sess.styleDesc = ""
		sess.config.StyleEmphasis = prompt.EmphasisOverall
		return nil
	})
}

// SetCustomBackground attaches a background photo and switches the
// background style to Custom.
func (s *Service) SetCustomBackground(id string, img media.Image) (Snapshot, error) {
	if img.IsZero() {
		return Snapshot{}, media.ErrEmptyImage
	}
	return s.mutate(id, true, func(sess *session) error {
		sess.background = img
		sess.config.BackgroundStyle = prompt.BackgroundCustom
		return nil
	})
}

// ClearCustomBackground drops the photo; a Custom style falls back to None.
func (s *Service) ClearCustomBackground(id string) (Snapshot, error) {
	return s.mutate(id, true, func(sess *session) error {
		sess.background = media.Image{}
		if sess.config.BackgroundStyle == prompt.BackgroundCustom {
			sess.config.BackgroundStyle = prompt.BackgroundNone
		}
		return nil
	})
}

// AutoMask asks the model for a subject mask of the current product photo
// and stores it as a strictly two-colour PNG.
func (s *Service) AutoMask(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	product := sess.product
	if product.IsZero() {
		sess.mu.Unlock()
		return Snapshot{}, opErr(OpMask, fmt.Errorf("%w: product image", gemini.ErrMissingInput))
	}
	if err := sess.beginLocked(OpMask); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	sess.mu.Unlock()
	s.notify(sess, EventState)

	mask, err := s.model.AutoMask(ctx, product)
	if err == nil {
		mask, err = media.BinarizeMask(mask, media.AutoMaskThreshold)
	}

	sess.mu.Lock()
	stale := !sameImage(sess.product, product)
	if err == nil && !stale {
		sess.mask = mask
	}
	sess.endLocked(OpMask, err, s.now())
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	if err != nil {
		s.notify(sess, EventError)
		return snap, opErr(OpMask, err)
	}
	s.notify(sess, EventMask)
	return snap, nil
}

// SetMask accepts a hand-painted mask. Only exact white pixels count as
// subject.
func (s *Service) SetMask(id string, painted media.Image) (Snapshot, error) {
	mask, err := media.BinarizeMask(painted, media.ExactWhite)
	if err != nil {
		return Snapshot{}, opErr(OpMask, err)
	}
	return s.mutate(id, false, func(sess *session) error {
		if sess.product.IsZero() {
			return opErr(OpMask, fmt.Errorf("%w: product image", gemini.ErrMissingInput))
		}
		sess.mask = mask
		return nil
	})
}

func (s *Service) ClearMask(id string) (Snapshot, error) {
	return s.mutate(id, false, func(sess *session) error {
		sess.mask = media.Image{}
		return nil
	})
}

// sameImage compares by backing array; images are never mutated in place.
func sameImage(a, b media.Image) bool {
	if len(a.Data) != len(b.Data) {
		return false
	}
	return len(a.Data) == 0 || &a.Data[0] == &b.Data[0]
}
