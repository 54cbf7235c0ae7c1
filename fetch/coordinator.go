package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promptdeck/go-datakit/cache"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// attempt is one logical fetch, spanning the initial call and its retries.
// done is closed after the attempt has either committed visible state or
// been discarded as superseded.
type attempt struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator orchestrates fetches for a single cache key. See the package
// documentation for the full semantics.
type Coordinator[T any] struct {
	key     string
	fetcher Fetcher[T]
	cfg     Config
	store   cache.Store
	log     zerolog.Logger

	mu           sync.Mutex
	status       Status
	data         T
	hasData      bool // last-good value retained for stale serving
	err          error
	stale        bool
	retries      int
	closed       bool
	current      *attempt
	refreshTimer *time.Timer
	onChange     func(Snapshot[T])
}

// New returns a coordinator for key backed by fetcher. Configuration
// errors are returned, never clamped.
func New[T any](key string, fetcher Fetcher[T], opts ...Option) (*Coordinator[T], error) {
	if key == "" {
		return nil, &ConfigError{Field: "Key", Message: "must not be empty"}
	}
	if fetcher == nil {
		return nil, &ConfigError{Field: "Fetcher", Message: "must not be nil"}
	}
	o := options{cfg: DefaultConfig(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.cfg.Validate(); err != nil {
		return nil, err
	}
	if o.store == nil {
		o.store = cache.Default()
	}
	return &Coordinator[T]{
		key:     key,
		fetcher: fetcher,
		cfg:     o.cfg,
		store:   o.store,
		log:     o.log.With().Str("component", "fetch").Str("key", key).Logger(),
	}, nil
}

// Key returns the coordinator's cache key.
func (c *Coordinator[T]) Key() string { return c.key }

// OnChange registers a callback invoked after every visible state
// transition. The callback runs outside the coordinator's lock, on
// whichever goroutine caused the transition.
func (c *Coordinator[T]) OnChange(fn func(Snapshot[T])) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Snapshot returns the visible state as one consistent read.
func (c *Coordinator[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Status returns the current fetch status.
func (c *Coordinator[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Data returns the most recent value, which may be stale.
func (c *Coordinator[T]) Data() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data
}

// Err returns the terminal error, if the coordinator is in the error state.
func (c *Coordinator[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// IsStale reports whether the current value outlived its TTL and is being
// served because retries were exhausted.
func (c *Coordinator[T]) IsStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stale
}

// Load returns the cached value for the key if fresh, otherwise fetches,
// stores, and returns it. Waiting is bounded by ctx: if ctx ends first the
// fetch continues in the background and may still populate the cache.
func (c *Coordinator[T]) Load(ctx context.Context) (T, error) {
	return c.load(ctx, false, false)
}

// Refresh fetches unconditionally, bypassing the cached value.
func (c *Coordinator[T]) Refresh(ctx context.Context) (T, error) {
	return c.load(ctx, true, false)
}

// Invalidate drops the key from the store and resets the coordinator to
// idle. An in-flight fetch is not cancelled; if it lands it repopulates
// the cache under the same key.
func (c *Coordinator[T]) Invalidate() {
	c.mu.Lock()
	c.store.Delete(c.key)
	var zero T
	c.data, c.hasData = zero, false
	c.err = nil
	c.stale = false
	c.retries = 0
	c.status = StatusIdle
	c.stopRefreshLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.emit(snap)
}

// Close tears the coordinator down: the in-flight fetch is cancelled, the
// background refresh timer stopped, and subsequent Loads return ErrClosed.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	a := c.current
	c.current = nil
	c.stopRefreshLocked()
	c.mu.Unlock()
	if a != nil {
		a.cancel()
	}
}

func (c *Coordinator[T]) load(ctx context.Context, force, silent bool) (T, error) {
	var zero T
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return zero, ErrClosed
	}
	if !force {
		if v, ok := cache.Get[T](c.store, c.key); ok {
			changed := c.status != StatusSuccess || c.stale || c.err != nil
			c.data, c.hasData = v, true
			c.err = nil
			c.stale = false
			c.status = StatusSuccess
			var snap Snapshot[T]
			if changed {
				snap = c.snapshotLocked()
			}
			c.mu.Unlock()
			if changed {
				c.emit(snap)
			}
			return v, nil
		}
	}
	if !c.cfg.Enabled {
		c.mu.Unlock()
		return zero, ErrDisabled
	}
	prev := c.current
	actx, cancel := context.WithCancel(context.Background())
	a := &attempt{id: uuid.NewString(), cancel: cancel, done: make(chan struct{})}
	c.current = a
	var snap Snapshot[T]
	notify := false
	if !silent && c.status != StatusLoading {
		c.status = StatusLoading
		snap = c.snapshotLocked()
		notify = true
	}
	c.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
	if notify {
		c.emit(snap)
	}
	c.log.Debug().Str("attempt", a.id).Bool("forced", force).Bool("silent", silent).Msg("fetch starting")
	go c.run(actx, a, force)
	return c.await(ctx, a)
}

// await blocks until the latest attempt for the key settles, following the
// chain when the attempt it started with is superseded.
func (c *Coordinator[T]) await(ctx context.Context, a *attempt) (T, error) {
	var zero T
	for {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-a.done:
		}
		c.mu.Lock()
		cur := c.current
		c.mu.Unlock()
		if cur == nil || cur == a {
			break
		}
		a = cur
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, ErrClosed
	}
	if c.status == StatusError {
		return zero, c.err
	}
	return c.data, nil
}

// run executes the fetch state machine for one attempt: initial call plus
// retries with linearly increasing backoff.
func (c *Coordinator[T]) run(ctx context.Context, a *attempt, force bool) {
	defer close(a.done)
	var lastErr error
	for attemptNum := 0; ; attemptNum++ {
		if attemptNum > 0 {
			delay := time.Duration(attemptNum) * c.cfg.RetryDelay
			c.log.Warn().Str("attempt", a.id).Int("retry", attemptNum).
				Dur("delay", delay).Err(lastErr).Msg("fetch retrying")
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
		val, err := c.fetchOnce(ctx, a.id, attemptNum, force)
		if err == nil {
			c.commit(a, val)
			return
		}
		if ctx.Err() != nil {
			// Superseded or torn down: discard silently, no visible
			// state or retry-counter effect.
			c.log.Debug().Str("attempt", a.id).Msg("fetch superseded")
			return
		}
		lastErr = err
		if attemptNum >= c.cfg.MaxRetries {
			c.exhaust(a, lastErr)
			return
		}
		c.mu.Lock()
		if c.current != a {
			c.mu.Unlock()
			return
		}
		c.retries = attemptNum + 1
		c.mu.Unlock()
	}
}

// fetchOnce invokes the fetcher once inside a tracing span.
func (c *Coordinator[T]) fetchOnce(ctx context.Context, id string, attemptNum int, force bool) (T, error) {
	ctx, span := tracer.Start(ctx, "fetch "+c.key, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("fetch.key", c.key),
		attribute.String("fetch.attempt_id", id),
		attribute.Int("fetch.attempt", attemptNum),
		attribute.Bool("fetch.forced", force),
	)
	val, err := c.fetcher(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return val, err
}

// commit publishes a successful fetch, provided the attempt is still the
// latest one for the key.
func (c *Coordinator[T]) commit(a *attempt, val T) {
	c.mu.Lock()
	if c.current != a || c.closed {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.store.Set(c.key, val, c.cfg.TTL)
	c.data, c.hasData = val, true
	c.err = nil
	c.stale = false
	c.retries = 0
	c.status = StatusSuccess
	c.scheduleRefreshLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.log.Debug().Str("attempt", a.id).Msg("fetch succeeded")
	c.emit(snap)
}

// exhaust publishes the terminal outcome of a failed attempt: the retained
// last-good value flagged stale when allowed, the fetcher's error verbatim
// otherwise.
func (c *Coordinator[T]) exhaust(a *attempt, lastErr error) {
	c.mu.Lock()
	if c.current != a || c.closed {
		c.mu.Unlock()
		return
	}
	c.current = nil
	if c.cfg.StaleWhileRevalidate && c.hasData {
		c.stale = true
		c.err = nil
		c.status = StatusSuccess
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.Warn().Str("attempt", a.id).Err(lastErr).Msg("retries exhausted, serving stale value")
		c.emit(snap)
		return
	}
	c.err = lastErr
	c.stale = false
	c.status = StatusError
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.log.Error().Str("attempt", a.id).Err(lastErr).Msg("retries exhausted")
	c.emit(snap)
}

// scheduleRefreshLocked arms the silent background refresh timer. Must be
// called with the lock held.
func (c *Coordinator[T]) scheduleRefreshLocked() {
	if !c.cfg.BackgroundRefresh || c.cfg.TTL <= 0 {
		return
	}
	c.stopRefreshLocked()
	delay := time.Duration(c.cfg.RefreshAt * float64(c.cfg.TTL))
	c.refreshTimer = time.AfterFunc(delay, func() {
		if _, err := c.load(context.Background(), true, true); err != nil &&
			!errors.Is(err, ErrClosed) && !errors.Is(err, ErrDisabled) {
			c.log.Warn().Err(err).Msg("background refresh failed")
		}
	})
}

func (c *Coordinator[T]) stopRefreshLocked() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
}

func (c *Coordinator[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Status:  c.status,
		Data:    c.data,
		Err:     c.err,
		Stale:   c.stale,
		Retries: c.retries,
	}
}

func (c *Coordinator[T]) emit(snap Snapshot[T]) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}
