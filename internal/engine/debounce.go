package engine

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window for rebuild requests. Bursts
// of change arriving within the window coalesce into a single build pass.
const DefaultQuietPeriod = 1000 * time.Millisecond

// debouncer is a single-slot restartable timer. Trigger cancels any armed
// timer and re-arms it; when the quiet period elapses the firing is
// signalled on a buffered channel so the owning loop runs the build
// itself. Two builds can therefore never overlap: a Trigger arriving
// while a build runs arms a fresh timer, and its firing is only consumed
// after the current build returns.
type debouncer struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
	fire  chan struct{}
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{
		quiet: quiet,
		fire:  make(chan struct{}, 1),
	}
}

// Trigger arms the timer, cancelling and restarting it if already armed.
// Safe to call from any event handler.
func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.signal)
}

// signal clears the timer handle and wakes the owner. The buffer of one
// coalesces a firing that races with a pending, unconsumed one.
func (d *debouncer) signal() {
	d.mu.Lock()
	d.timer = nil
	d.mu.Unlock()

	select {
	case d.fire <- struct{}{}:
	default:
	}
}

// Cancel clears an armed timer. Called on shutdown.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Fired returns the channel signalled when the quiet period elapses.
func (d *debouncer) Fired() <-chan struct{} {
	return d.fire
}

// Armed reports whether a timer is currently pending.
func (d *debouncer) Armed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
