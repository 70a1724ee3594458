package preset

import (
	"errors"
	"time"

	"dugo-banana-studio/internal/prompt"
)

// StorageKey is the single logical key all presets live under.
const StorageKey = "dugo-banana-presets"

// DocumentVersion is written on every save. Documents without a version
// field (a bare JSON array) are read as version 0.
const DocumentVersion = 1

var (
	ErrNotFound    = errors.New("preset not found")
	ErrInvalidName = errors.New("preset name is empty")

	// ErrUnsupportedVersion marks a document written by a newer build.
	ErrUnsupportedVersion = errors.New("unsupported presets version")
)

// Settings is the saved snapshot. Field names follow the stored JSON shape
// so older documents decode unchanged.
type Settings struct {
	prompt.ShotConfig
	CreativeEnabled  bool   `json:"isDugoMode"`
	CreativeKeywords string `json:"dugoKeywords"`
	Positive         string `json:"generatedPrompt"`
	Negative         string `json:"negativePrompt"`
}

func NewSettings(cfg prompt.ShotConfig, creative prompt.CreativeMode, bundle prompt.Bundle) Settings {
	return Settings{
		ShotConfig:       cfg,
		CreativeEnabled:  creative.Enabled,
		CreativeKeywords: creative.Keywords,
		Positive:         bundle.Positive,
		Negative:         bundle.Negative,
	}
}

func (s Settings) Config() prompt.ShotConfig {
	return s.ShotConfig.WithDefaults()
}

func (s Settings) Creative() prompt.CreativeMode {
	return prompt.CreativeMode{Enabled: s.CreativeEnabled, Keywords: s.CreativeKeywords}
}

func (s Settings) Bundle() prompt.Bundle {
	return prompt.Bundle{Positive: s.Positive, Negative: s.Negative}
}

type Preset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	Settings  Settings  `json:"settings"`
}

type Document struct {
	Version int      `json:"version"`
	Presets []Preset `json:"presets"`
}
