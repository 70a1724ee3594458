package debounce

import (
	"sync"
	"time"
)

const DefaultDelay = 500 * time.Millisecond

// Debouncer runs the most recently triggered func for a key once the key has
// been quiet for the configured delay. Each key has at most one pending func.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]*entry
	seq     uint64
	stopped bool
}

type entry struct {
	id    uint64
	timer *time.Timer
	fn    func()
}

func New(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*entry),
	}
}

func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger (re)starts the quiet period for key; fn replaces any func queued
// by an earlier Trigger.
func (d *Debouncer) Trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if e, ok := d.pending[key]; ok {
		e.timer.Stop()
	}

	d.seq++
	e := &entry{id: d.seq, fn: fn}
	id := e.id
	e.timer = time.AfterFunc(d.delay, func() {
		d.fire(key, id)
	})
	d.pending[key] = e
}

// Cancel drops the pending func for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs the pending func for key right away on the calling goroutine.
func (d *Debouncer) Flush(key string) bool {
	d.mu.Lock()
	e, ok := d.pending[key]
	if ok {
		e.timer.Stop()
		delete(d.pending, key)
	}
	d.mu.Unlock()

	if ok && e.fn != nil {
		e.fn()
	}
	return ok
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels every pending func; later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, e := range d.pending {
		e.timer.Stop()
		delete(d.pending, key)
	}
}

func (d *Debouncer) fire(key string, id uint64) {
	d.mu.Lock()
	e, ok := d.pending[key]
	if !ok || e.id != id {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	if e.fn != nil {
		e.fn()
	}
}
