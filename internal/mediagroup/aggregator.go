// Package mediagroup collects the photos of a Telegram album, which arrive
// as separate updates, into one group.
package mediagroup

import (
	"fmt"
	"sync"
	"time"

	"dugo-banana-studio/internal/debounce"
)

const DefaultDebounce = 1200 * time.Millisecond

type Item struct {
	ChatID       int64
	UserID       int64
	LanguageCode string
	MediaGroupID string
	Caption      string
	FileID       string
}

// Group holds an album's file ids in arrival order.
type Group struct {
	ChatID       int64
	UserID       int64
	LanguageCode string
	Caption      string
	FileIDs      []string
}

type Options struct {
	Debounce time.Duration
	OnFlush  func(Group)
}

type Aggregator struct {
	mu        sync.Mutex
	debouncer *debounce.Debouncer
	onFlush   func(Group)
	groups    map[string]*Group
}

func New(opts Options) *Aggregator {
	delay := opts.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}

	return &Aggregator{
		debouncer: debounce.New(delay),
		onFlush:   opts.OnFlush,
		groups:    make(map[string]*Group),
	}
}

// Add queues item; the group is flushed once no photo of the album arrived
// for the debounce window.
func (a *Aggregator) Add(item Item) {
	if item.MediaGroupID == "" || item.FileID == "" {
		return
	}

	key := makeKey(item.ChatID, item.MediaGroupID)

	a.mu.Lock()
	g, ok := a.groups[key]
	if !ok {
		g = &Group{
			ChatID:       item.ChatID,
			UserID:       item.UserID,
			LanguageCode: item.LanguageCode,
			Caption:      item.Caption,
		}
		a.groups[key] = g
	}
	g.FileIDs = append(g.FileIDs, item.FileID)
	if item.Caption != "" {
		g.Caption = item.Caption
	}
	a.mu.Unlock()

	a.debouncer.Trigger(key, func() {
		a.flush(key)
	})
}

// Stop drops every pending group.
func (a *Aggregator) Stop() {
	a.debouncer.Stop()
	a.mu.Lock()
	a.groups = make(map[string]*Group)
	a.mu.Unlock()
}

func (a *Aggregator) flush(key string) {
	a.mu.Lock()
	g, ok := a.groups[key]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.groups, key)
	group := *g
	onFlush := a.onFlush
	a.mu.Unlock()

	if onFlush != nil {
		onFlush(group)
	}
}

func makeKey(chatID int64, mediaGroupID string) string {
	return fmt.Sprintf("%d:%s", chatID, mediaGroupID)
}
