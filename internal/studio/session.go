package studio

import (
	"sort"
	"sync"
	"time"

	"dugo-banana-studio/internal/media"
	"dugo-banana-studio/internal/prompt"
)

// Slot names one of the images a session holds.
type Slot string

const (
	SlotProduct    Slot = "product"
	SlotStyle      Slot = "style"
	SlotBackground Slot = "background"
	SlotMask       Slot = "mask"
	SlotResult     Slot = "result"
)

func ParseSlot(value string) (Slot, error) {
	switch s := Slot(value); s {
	case SlotProduct, SlotStyle, SlotBackground, SlotMask, SlotResult:
		return s, nil
	default:
		return "", ErrUnknownSlot
	}
}

type session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time
	updatedAt time.Time

	config   prompt.ShotConfig
	creative prompt.CreativeMode
	bundle   prompt.Bundle
	template string

	product    media.Image
	style      media.Image
	background media.Image
	mask       media.Image
	current    media.Image
	history    *History

	productDesc   string
	styleDesc     string
	styleDescFor  prompt.StyleEmphasis
	promptToken   uint64
	templateToken uint64
	promptLoading bool

	busy           map[Op]bool
	lastErr        error
	selectedPreset string
}

func newSession(id string, now time.Time, maxHistory int) *session {
	return &session{
		id:        id,
		createdAt: now,
		updatedAt: now,
		config:    prompt.DefaultShotConfig(),
		history:   NewHistory(maxHistory),
		busy:      make(map[Op]bool),
	}
}

// Snapshot is a read-only copy of a session's visible state.
type Snapshot struct {
	ID             string              `json:"id"`
	Config         prompt.ShotConfig   `json:"config"`
	Creative       prompt.CreativeMode `json:"creative"`
	Prompt         prompt.Bundle       `json:"prompt"`
	Template       string              `json:"template,omitempty"`
	PromptLoading  bool                `json:"promptLoading"`
	HasProduct     bool                `json:"hasProduct"`
	HasStyle       bool                `json:"hasStyle"`
	HasBackground  bool                `json:"hasBackground"`
	HasMask        bool                `json:"hasMask"`
	HasResult      bool                `json:"hasResult"`
	HistoryLen     int                 `json:"historyLen"`
	Busy           []Op                `json:"busy"`
	SelectedPreset string              `json:"selectedPreset,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`

	// Err is the last failure; the edge localises it.
	Err error `json:"-"`
}

func (s *session) snapshotLocked() Snapshot {
	busy := make([]Op, 0, len(s.busy))
	for op, on := range s.busy {
		if on {
			busy = append(busy, op)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i] < busy[j] })

	return Snapshot{
		ID:             s.id,
		Config:         s.config,
		Creative:       s.creative,
		Prompt:         s.bundle,
		Template:       s.template,
		PromptLoading:  s.promptLoading,
		HasProduct:     !s.product.IsZero(),
		HasStyle:       !s.style.IsZero(),
		HasBackground:  !s.background.IsZero(),
		HasMask:        !s.mask.IsZero(),
		HasResult:      !s.current.IsZero(),
		HistoryLen:     s.history.Len(),
		Busy:           busy,
		SelectedPreset: s.selectedPreset,
		CreatedAt:      s.createdAt,
		UpdatedAt:      s.updatedAt,
		Err:            s.lastErr,
	}
}

func (s *session) imageLocked(slot Slot) media.Image {
	switch slot {
	case SlotProduct:
		return s.product
	case SlotStyle:
		return s.style
	case SlotBackground:
		return s.background
	case SlotMask:
		return s.mask
	case SlotResult:
		return s.current
	}
	return media.Image{}
}

// beginLocked marks op as running. Callers must pair it with endLocked.
func (s *session) beginLocked(op Op) error {
	if s.busy[op] {
		return opErr(op, ErrBusy)
	}
	s.busy[op] = true
	s.lastErr = nil
	return nil
}

func (s *session) endLocked(op Op, err error, now time.Time) {
	delete(s.busy, op)
	if err != nil {
		s.lastErr = opErr(op, err)
	}
	s.updatedAt = now
}
