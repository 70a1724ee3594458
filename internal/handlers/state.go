package handlers

import (
	"sync"
	"time"
)

// awaiting names what the next photo or text from the user is for.
type awaiting string

const (
	awaitNone       awaiting = ""
	awaitProduct    awaiting = "product"
	awaitStyle      awaiting = "style"
	awaitBackground awaiting = "background"
	awaitMask       awaiting = "mask"
	awaitKeywords   awaiting = "keywords"
	awaitNegative   awaiting = "negative"
	awaitPrompt     awaiting = "prompt"
	awaitPresetName awaiting = "preset"
)

func (a awaiting) wantsPhoto() bool {
	switch a {
	case awaitProduct, awaitStyle, awaitBackground, awaitMask:
		return true
	}
	return false
}

// UIState is the chat-side part of a wizard: which menu is open, which
// message carries it and what input is expected next. Everything else
// lives in the studio session.
type UIState struct {
	Menu      string
	MessageID int
	Awaiting  awaiting
	UpdatedAt time.Time
}

type stateKey struct {
	ChatID int64
	UserID int64
}

type stateStore struct {
	mu sync.Mutex
	m  map[stateKey]*UIState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[stateKey]*UIState)}
}

func (s *stateStore) Get(chatID, userID int64) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID, userID)
}

func (s *stateStore) Update(chatID, userID int64, fn func(*UIState)) UIState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.UpdatedAt = time.Now()
	return *st
}

// Reset keeps only the wizard message id.
func (s *stateStore) Reset(chatID, userID int64) UIState {
	return s.Update(chatID, userID, func(st *UIState) {
		msgID := st.MessageID
		*st = defaultState()
		st.MessageID = msgID
	})
}

// Prune drops states untouched for longer than maxIdle.
func (s *stateStore) Prune(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, st := range s.m {
		if st.UpdatedAt.Before(cutoff) {
			delete(s.m, key)
		}
	}
}

func (s *stateStore) getOrCreateLocked(chatID, userID int64) *UIState {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := defaultState()
	s.m[key] = &st
	return s.m[key]
}

func defaultState() UIState {
	return UIState{
		Menu:      menuMain,
		Awaiting:  awaitProduct,
		UpdatedAt: time.Now(),
	}
}
