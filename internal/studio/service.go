package studio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dugo-banana-studio/internal/debounce"
	"dugo-banana-studio/internal/gemini"
	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/preset"
	"dugo-banana-studio/internal/prompt"
)

// Model is the generative backend. *gemini.Client implements it.
type Model interface {
	DescribeStyle(ctx context.Context, img media.Image, emphasis prompt.StyleEmphasis) (string, error)
	DescribeComposition(ctx context.Context, img media.Image) (string, error)
	WriteScene(ctx context.Context, subject, keywords string) (string, error)
	AdTemplate(ctx context.Context) (string, error)
	Edit(ctx context.Context, req gemini.EditRequest) (media.Image, error)
	AutoMask(ctx context.Context, img media.Image) (media.Image, error)
	Enhance(ctx context.Context, img media.Image, level prompt.EnhancementLevel) (media.Image, error)
}

type EventKind string

const (
	EventState    EventKind = "state"
	EventPrompt   EventKind = "prompt"
	EventTemplate EventKind = "template"
	EventResult   EventKind = "result"
	EventMask     EventKind = "mask"
	EventError    EventKind = "error"
)

type Event struct {
	SessionID string
	Kind      EventKind
	Snapshot  Snapshot
}

// Notifier receives events from background work. Notify must not block.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type Options struct {
	Model      Model
	Presets    *preset.Store
	Debounce   time.Duration
	Timeout    time.Duration
	MaxHistory int
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

type Service struct {
	model      Model
	presets    *preset.Store
	debouncer  *debounce.Debouncer
	timeout    time.Duration
	maxHistory int
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	presets := opts.Presets
	if presets == nil {
		presets = preset.NewStore(preset.Options{Logger: logger})
	}

	return &Service{
		model:      opts.Model,
		presets:    presets,
		debouncer:  debounce.New(opts.Debounce),
		timeout:    timeout,
		maxHistory: opts.MaxHistory,
		notifier:   opts.Notifier,
		logger:     logger,
		now:        now,
		sessions:   make(map[string]*session),
	}
}

// Close stops pending rebuilds and waits for background calls to finish.
func (s *Service) Close() {
	s.debouncer.Stop()
	s.wg.Wait()
}

// Create opens a session with a random id and starts fetching its
// advertising template.
func (s *Service) Create() Snapshot {
	snap, _ := s.Ensure(uuid.NewString())
	return snap
}

// Ensure returns the session named id, creating it when missing. The bool
// reports whether it was created.
func (s *Service) Ensure(id string) (Snapshot, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, s.now(), s.maxHistory)
		s.sessions[id] = sess
	}
	s.mu.Unlock()

	if ok {
		return s.snapshot(sess), false
	}

	s.logger.Info("session created", "session", id)
	s.fetchTemplate(sess)
	return s.snapshot(sess), true
}

func (s *Service) Get(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(sess), nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.debouncer.Cancel(id)
	return nil
}

// PruneIdle drops sessions untouched for longer than maxIdle.
func (s *Service) PruneIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var stale []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.updatedAt.Before(cutoff) && len(sess.busy) == 0
		sess.mu.Unlock()
		if idle {
			stale = append(stale, id)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stale {
		s.debouncer.Cancel(id)
	}
	if len(stale) > 0 {
		s.logger.Info("idle sessions pruned", "count", len(stale))
	}
	return len(stale)
}

func (s *Service) SetConfig(id string, cfg prompt.ShotConfig) (Snapshot, error) {
	if err := cfg.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s.mutate(id, true, func(sess *session) error {
		applyConfig(sess, cfg)
		return nil
	})
}

func applyConfig(sess *session, cfg prompt.ShotConfig) {
	sess.config = cfg
	if cfg.BackgroundStyle != prompt.BackgroundCustom {
		sess.background = media.Image{}
	}
}

// UpdateConfig applies fn to a copy of the current configuration and stores
// the result if fn succeeds and it validates. Both happen under the session
// lock so concurrent patches compose.
func (s *Service) UpdateConfig(id string, fn func(*prompt.ShotConfig) error) (Snapshot, error) {
	return s.mutate(id, true, func(sess *session) error {
		cfg := sess.config
		if err := fn(&cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		applyConfig(sess, cfg)
		return nil
	})
}

func (s *Service) SetCreative(id string, mode prompt.CreativeMode) (Snapshot, error) {
	mode.Keywords = strings.TrimSpace(mode.Keywords)
	return s.mutate(id, true, func(sess *session) error {
		sess.creative = mode
		return nil
	})
}

// SetPrompt is a manual edit of the positive instruction. It wins over any
// rebuild that is pending or in flight.
func (s *Service) SetPrompt(id, positive string) (Snapshot, error) {
	snap, err := s.mutate(id, false, func(sess *session) error {
		sess.bundle.Positive = positive
		sess.promptToken++
		sess.promptLoading = false
		return nil
	})
	if err == nil {
		s.debouncer.Cancel(id)
	}
	return snap, err
}

func (s *Service) SetNegative(id, negative string) (Snapshot, error) {
	return s.mutate(id, false, func(sess *session) error {
		sess.bundle.Negative = negative
		return nil
	})
}

// Reset restores defaults and refetches the template. History is kept.
func (s *Service) Reset(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	s.debouncer.Cancel(id)

	sess.mu.Lock()
	sess.config = prompt.DefaultShotConfig()
	sess.creative = prompt.CreativeMode{}
	sess.bundle = prompt.Bundle{}
	sess.template = ""
	sess.product = media.Image{}
	sess.style = media.Image{}
	sess.background = media.Image{}
	sess.mask = media.Image{}
	sess.current = media.Image{}
	sess.productDesc = ""
	sess.styleDesc = ""
	sess.promptToken++
	sess.promptLoading = false
	sess.lastErr = nil
	sess.selectedPreset = ""
	sess.updatedAt = s.now()
	sess.mu.Unlock()

	s.fetchTemplate(sess)
	return s.snapshot(sess), nil
}

func (s *Service) Image(id string, slot Slot) (media.Image, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return media.Image{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.imageLocked(slot), nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) snapshot(sess *session) Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshotLocked()
}

// mutate runs fn under the session lock and, when rebuild is set, schedules
// a debounced prompt rebuild.
func (s *Service) mutate(id string, rebuild bool, fn func(*session) error) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	if err := fn(sess); err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	sess.updatedAt = s.now()
	if rebuild {
		// Results of a rebuild already in flight now describe stale inputs.
		sess.promptToken++
	}
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	if rebuild {
		s.scheduleRebuild(sess)
	}
	return snap, nil
}

func (s *Service) notify(sess *session, kind EventKind) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Event{SessionID: sess.id, Kind: kind, Snapshot: s.snapshot(sess)})
}

func (s *Service) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// goAsync runs fn on a tracked goroutine so Close can wait for it.
func (s *Service) goAsync(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}
