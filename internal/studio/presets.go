package studio

import (
	"context"

	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/preset"
)

func (s *Service) Presets(ctx context.Context) []preset.Preset {
	return s.presets.List(ctx)
}

// SavePreset stores the session's configuration, creative mode and prompt
// under name.
func (s *Service) SavePreset(ctx context.Context, id, name string) (preset.Preset, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return preset.Preset{}, err
	}

	sess.mu.Lock()
	settings := preset.NewSettings(sess.config, sess.creative, sess.bundle)
	sess.mu.Unlock()

	p, err := s.presets.Save(ctx, name, settings)
	if err != nil {
		return preset.Preset{}, opErr(OpPreset, err)
	}

	sess.mu.Lock()
	sess.selectedPreset = p.ID
	sess.mu.Unlock()
	return p, nil
}

// LoadPreset copies a preset into the session. The custom background is not
// part of a preset and is cleared. The saved prompt is kept as is: pending
// rebuilds are dropped and none is scheduled.
func (s *Service) LoadPreset(ctx context.Context, id, presetID string) (Snapshot, error) {
	if _, err := s.lookup(id); err != nil {
		return Snapshot{}, err
	}
	p, err := s.presets.Get(ctx, presetID)
	if err != nil {
		return Snapshot{}, opErr(OpPreset, err)
	}

	snap, err := s.mutate(id, false, func(sess *session) error {
		sess.config = p.Settings.Config()
		sess.creative = p.Settings.Creative()
		sess.bundle = p.Settings.Bundle()
		sess.background = media.Image{}
		sess.styleDesc = ""
		sess.promptToken++
		sess.promptLoading = false
		sess.selectedPreset = p.ID
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.debouncer.Cancel(id)
	return snap, nil
}

func (s *Service) DeletePreset(ctx context.Context, presetID string) error {
	if err := s.presets.Delete(ctx, presetID); err != nil {
		return opErr(OpPreset, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.selectedPreset == presetID {
			sess.selectedPreset = ""
		}
		sess.mu.Unlock()
	}
	return nil
}
