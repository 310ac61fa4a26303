package countdown

import (
	"sync"
	"time"
)

type timer struct {
	t   *time.Timer
	gen uint64
}

// Timers keeps at most one pending auto-close per session. Scheduling again
// replaces the previous timer; a timer that fires after being replaced or
// cancelled does nothing.
type Timers struct {
	mu      sync.Mutex
	pending map[string]*timer
	gen     uint64
}

func New() *Timers {
	return &Timers{pending: make(map[string]*timer)}
}

// Schedule runs fire after d unless the key is cancelled or rescheduled first.
func (ts *Timers) Schedule(key string, d time.Duration, fire func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if prev, ok := ts.pending[key]; ok {
		prev.t.Stop()
	}

	ts.gen++
	gen := ts.gen
	entry := &timer{gen: gen}
	entry.t = time.AfterFunc(d, func() {
		ts.mu.Lock()
		current, ok := ts.pending[key]
		if !ok || current.gen != gen {
			ts.mu.Unlock()
			return
		}
		delete(ts.pending, key)
		ts.mu.Unlock()
		fire()
	})
	ts.pending[key] = entry
}

// Cancel stops the pending timer for key. It reports whether one existed.
func (ts *Timers) Cancel(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.pending[key]
	if !ok {
		return false
	}
	entry.t.Stop()
	delete(ts.pending, key)
	return true
}

func (ts *Timers) Pending(key string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.pending[key]
	return ok
}

// Stop cancels everything. Used on shutdown.
func (ts *Timers) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, entry := range ts.pending {
		entry.t.Stop()
		delete(ts.pending, key)
	}
}
