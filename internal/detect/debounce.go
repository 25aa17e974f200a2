package detect

import (
	"sync"
	"time"
)

// Debouncer runs a task once the quiet period has elapsed since the last
// Schedule call. Each Schedule cancels the pending timer before arming a new
// one; Stop cancels outright. The timer handle is explicit so teardown never
// leaks a pending detection.
type Debouncer struct {
	quiet time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 400 * time.Millisecond
	}
	return &Debouncer{quiet: quiet}
}

// Schedule arms fn to run after the quiet period, replacing any pending run.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, fn)
}

// Stop cancels any pending run. Safe to call repeatedly.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
