package studio

import (
	"time"

	"dugo-banana-studio/internal/media"
)

type Entry struct {
	ID        string      `json:"id"`
	Origin    Op          `json:"origin"`
	CreatedAt time.Time   `json:"createdAt"`
	Image     media.Image `json:"-"`
}

// History is most-recent-first. Entries are only ever added at the front or
// dropped all at once by Clear. It grows without bound unless the operator
// set a positive limit, in which case the oldest entries fall off.
type History struct {
	entries []Entry
	limit   int
}

// NewHistory returns an unbounded history when limit <= 0.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

func (h *History) Add(e Entry) {
	h.entries = append([]Entry{e}, h.entries...)
	if h.limit > 0 && len(h.entries) > h.limit {
		h.entries = h.entries[:h.limit]
	}
}

func (h *History) At(i int) (Entry, bool) {
	if i < 0 || i >= len(h.entries) {
		return Entry{}, false
	}
	return h.entries[i], true
}

func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns a copy safe to hand out of the session lock.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *History) Clear() {
	h.entries = nil
}
