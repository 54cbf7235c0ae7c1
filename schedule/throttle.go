package schedule

import (
	"sync"
	"time"
)

// Throttler runs fn at most once per delay window. With the leading edge
// enabled (the default) the first call in a window runs immediately on the
// caller's goroutine; with the trailing edge enabled (also the default) a
// call arriving mid-window is deferred and runs once at the window boundary
// with the most recent value, on the timer goroutine.
type Throttler[T any] struct {
	delay    time.Duration
	fn       func(T)
	leading  bool
	trailing bool

	mu      sync.Mutex
	open    bool // a window is in progress
	timer   *time.Timer
	value   T
	pending bool
	stopped bool
}

// ThrottleOption configures a Throttler.
type ThrottleOption func(*throttleConfig)

type throttleConfig struct {
	leading  bool
	trailing bool
}

// WithLeading controls whether the first call in a window runs immediately.
// Defaults to true.
func WithLeading(on bool) ThrottleOption {
	return func(c *throttleConfig) { c.leading = on }
}

// WithTrailing controls whether a call arriving mid-window runs at the
// window boundary with the most recent value. Defaults to true.
func WithTrailing(on bool) ThrottleOption {
	return func(c *throttleConfig) { c.trailing = on }
}

// NewThrottler returns a Throttler invoking fn at most once per delay.
// A non-positive delay, nil fn, or disabling both edges is a configuration
// error and panics — with both edges off every call would be dropped.
func NewThrottler[T any](delay time.Duration, fn func(T), opts ...ThrottleOption) *Throttler[T] {
	if delay <= 0 {
		panic("schedule: throttle delay must be positive")
	}
	if fn == nil {
		panic("schedule: throttle fn must not be nil")
	}
	cfg := throttleConfig{leading: true, trailing: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.leading && !cfg.trailing {
		panic("schedule: throttle requires at least one of leading or trailing")
	}
	return &Throttler[T]{
		delay:    delay,
		fn:       fn,
		leading:  cfg.leading,
		trailing: cfg.trailing,
	}
}

// Call submits v. Depending on the configured edges it runs fn now, defers
// it to the window boundary, or drops it.
func (t *Throttler[T]) Call(v T) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if !t.open {
		t.open = true
		t.timer = time.AfterFunc(t.delay, t.boundary)
		if t.leading {
			t.mu.Unlock()
			t.fn(v)
			return
		}
		if t.trailing {
			t.value = v
			t.pending = true
		}
		t.mu.Unlock()
		return
	}
	if t.trailing {
		t.value = v
		t.pending = true
	}
	t.mu.Unlock()
}

// Stop cancels any deferred trailing call and prevents further use.
func (t *Throttler[T]) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = false
	t.open = false
	t.stopped = true
	t.mu.Unlock()
}

// boundary runs at the end of a window. A deferred trailing call both runs
// here and opens the next window, so back-to-back trailing runs still honor
// the rate limit.
func (t *Throttler[T]) boundary() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	if !t.pending {
		t.open = false
		t.timer = nil
		t.mu.Unlock()
		return
	}
	t.pending = false
	v := t.value
	t.timer = time.AfterFunc(t.delay, t.boundary)
	t.mu.Unlock()
	t.fn(v)
}
