// Package schedule provides timing primitives for rate-limiting work:
// debounce (wait for input to quiesce) and throttle (run at most once per
// interval). Each instance owns its own timer state and is safe for
// concurrent use.
package schedule

import (
	"sync"
	"time"
)

// Debouncer delays propagation of the latest value until a quiet period of
// the configured delay has elapsed; every call cancels and restarts the
// pending timer. Deferred deliveries run fn on the timer goroutine;
// immediate-mode leading deliveries run fn on the caller's goroutine.
type Debouncer[T any] struct {
	delay     time.Duration
	fn        func(T)
	immediate bool

	mu      sync.Mutex
	timer   *time.Timer
	value   T
	pending bool
	quiet   bool // immediate mode: true when outside a suppression window
	stopped bool
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*debounceConfig)

type debounceConfig struct {
	immediate bool
}

// WithImmediate makes the first call in a quiet period propagate
// immediately; subsequent calls within the delay window are suppressed
// (and extend the window) until input quiesces again.
func WithImmediate() DebounceOption {
	return func(c *debounceConfig) { c.immediate = true }
}

// NewDebouncer returns a Debouncer that invokes fn with the most recent
// value once calls have quiesced for delay. A non-positive delay or nil fn
// is a configuration error and panics.
func NewDebouncer[T any](delay time.Duration, fn func(T), opts ...DebounceOption) *Debouncer[T] {
	if delay <= 0 {
		panic("schedule: debounce delay must be positive")
	}
	if fn == nil {
		panic("schedule: debounce fn must not be nil")
	}
	var cfg debounceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Debouncer[T]{
		delay:     delay,
		fn:        fn,
		immediate: cfg.immediate,
		quiet:     true,
	}
}

// Call records v as the latest value and restarts the quiet-period timer.
func (d *Debouncer[T]) Call(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.immediate && d.quiet {
		d.quiet = false
		d.restartLocked()
		d.mu.Unlock()
		d.fn(v)
		return
	}
	d.value = v
	if !d.immediate {
		d.pending = true
	}
	d.restartLocked()
	d.mu.Unlock()
}

// Flush propagates the pending value now, if there is one.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.quiet = true
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.value
	d.mu.Unlock()
	d.fn(v)
}

// Cancel discards the pending value without propagating it.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.quiet = true
	d.mu.Unlock()
}

// Pending reports whether a value is waiting to propagate.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending value and prevents further use.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.stopped = true
	d.mu.Unlock()
}

// restartLocked arms the quiet-period timer. Must be called with the lock
// held.
func (d *Debouncer[T]) restartLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// fire runs at the end of a quiet period.
func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	d.timer = nil
	d.quiet = true
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	v := d.value
	d.mu.Unlock()
	d.fn(v)
}
