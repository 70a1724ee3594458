package preset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Options struct {
	Backend Backend
	Logger  *slog.Logger
	Now     func() time.Time
}

// Store is a read-modify-write view over a single preset document.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

func NewStore(opts Options) *Store {
	backend := opts.Backend
	if backend == nil {
		backend = NewMemoryBackend(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{backend: backend, logger: logger, now: now}
}

// List never fails: a missing or unreadable document is an empty list.
func (s *Store) List(ctx context.Context) []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) Get(ctx context.Context, id string) (Preset, error) {
	for _, p := range s.List(ctx) {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save appends a new preset with a fresh id and returns it.
func (s *Store) Save(ctx context.Context, name string, settings Settings) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Preset{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().UTC(),
		Settings:  settings,
	}
	current, err := s.loadForWrite(ctx)
	if err != nil {
		return Preset{}, err
	}
	presets := append(current, p)
	if err := s.store(ctx, presets); err != nil {
		return Preset{}, err
	}
	s.logger.Info("preset saved", "id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	kept := make([]Preset, 0, len(current))
	for _, p := range current {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(current) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.store(ctx, kept); err != nil {
		return err
	}
	s.logger.Info("preset deleted", "id", id)
	return nil
}

func (s *Store) load(ctx context.Context) []Preset {
	raw, err := s.backend.Read(ctx)
	if err != nil {
		s.logger.Warn("presets unavailable", "err", err)
		return []Preset{}
	}
	doc, err := Decode(raw)
	if err != nil {
		s.logger.Warn("presets document ignored", "err", err)
		return []Preset{}
	}
	return doc.Presets
}

// loadForWrite is load for Save and Delete. A failed read must not be
// mistaken for an empty document, or the write would wipe every preset.
// Undecodable JSON is replaced; a newer document version is left alone.
func (s *Store) loadForWrite(ctx context.Context) ([]Preset, error) {
	raw, err := s.backend.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	doc, err := Decode(raw)
	if errors.Is(err, ErrUnsupportedVersion) {
		return nil, err
	}
	if err != nil {
		s.logger.Warn("corrupt presets document replaced", "err", err)
		return []Preset{}, nil
	}
	return doc.Presets, nil
}

func (s *Store) store(ctx context.Context, presets []Preset) error {
	data, err := json.Marshal(Document{Version: DocumentVersion, Presets: presets})
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}
	if err := s.backend.Write(ctx, data); err != nil {
		return fmt.Errorf("store presets: %w", err)
	}
	return nil
}

// Decode accepts the versioned document and the legacy bare array. Entries
// without an id are dropped. Empty input decodes to an empty document.
func Decode(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Document{Version: DocumentVersion, Presets: []Preset{}}, nil
	}

	var doc Document
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &doc.Presets); err != nil {
			return Document{}, fmt.Errorf("decode legacy presets: %w", err)
		}
	} else {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return Document{}, fmt.Errorf("decode presets: %w", err)
		}
		if doc.Version > DocumentVersion {
			return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
		}
	}

	kept := make([]Preset, 0, len(doc.Presets))
	for _, p := range doc.Presets {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		kept = append(kept, p)
	}
	doc.Presets = kept
	return doc, nil
}
