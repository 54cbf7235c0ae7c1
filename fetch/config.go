package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/go-datakit/cache"
	"github.com/rs/zerolog"
)

// Fetcher produces the value for a coordinator's key. Cancellation is
// signalled through ctx when the attempt is superseded or the coordinator
// is closed.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Status is the coordinator's visible fetch state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Snapshot is one consistent read of a coordinator's visible state.
type Snapshot[T any] struct {
	Status  Status
	Data    T
	Err     error
	Stale   bool
	Retries int
}

var (
	// ErrDisabled is returned by Load and Refresh when the coordinator is
	// disabled and no fresh cached value exists.
	ErrDisabled = errors.New("fetch: coordinator disabled")

	// ErrClosed is returned by Load and Refresh after Close.
	ErrClosed = errors.New("fetch: coordinator closed")
)

// ConfigError reports caller misuse of a coordinator's configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("fetch: invalid %s: %s", e.Field, e.Message)
}

// DefaultRefreshAt is the fraction of the TTL after which a background
// refresh fires.
const DefaultRefreshAt = 0.8

// Config holds a coordinator's behavior knobs.
type Config struct {
	// TTL is the cache lifetime of fetched values. <= 0 defers to the
	// store's default TTL; background refresh requires a positive TTL.
	TTL time.Duration

	// Enabled gates fetching. A disabled coordinator still serves fresh
	// cached values but returns ErrDisabled instead of fetching.
	Enabled bool

	// StaleWhileRevalidate serves the last-good value, flagged stale,
	// when retries are exhausted.
	StaleWhileRevalidate bool

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// RetryDelay is the base backoff; retry n waits n * RetryDelay.
	RetryDelay time.Duration

	// BackgroundRefresh re-fetches silently at RefreshAt * TTL after a
	// successful store write.
	BackgroundRefresh bool

	// RefreshAt is the TTL fraction for background refresh, in (0, 1).
	RefreshAt float64
}

// DefaultConfig returns the standard coordinator configuration.
func DefaultConfig() Config {
	return Config{
		TTL:                  5 * time.Minute,
		Enabled:              true,
		StaleWhileRevalidate: true,
		MaxRetries:           3,
		RetryDelay:           time.Second,
		RefreshAt:            DefaultRefreshAt,
	}
}

// Validate reports the first configuration error, or nil.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "MaxRetries", Message: "must not be negative"}
	}
	if c.RetryDelay < 0 {
		return &ConfigError{Field: "RetryDelay", Message: "must not be negative"}
	}
	if c.MaxRetries > 0 && c.RetryDelay == 0 {
		return &ConfigError{Field: "RetryDelay", Message: "must be positive when retries are enabled"}
	}
	if c.RefreshAt <= 0 || c.RefreshAt >= 1 {
		return &ConfigError{Field: "RefreshAt", Message: "must be in (0, 1)"}
	}
	if c.BackgroundRefresh && c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be positive when background refresh is enabled"}
	}
	return nil
}

type options struct {
	cfg   Config
	store cache.Store
	log   zerolog.Logger
}

// Option configures a Coordinator.
type Option func(*options)

// WithStore sets the backing store. Defaults to cache.Default().
func WithStore(s cache.Store) Option {
	return func(o *options) { o.store = s }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithTTL sets the cache lifetime of fetched values.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.cfg.TTL = d }
}

// WithMaxRetries sets the number of retries after the initial attempt.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.cfg.MaxRetries = n }
}

// WithRetryDelay sets the base backoff delay.
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) { o.cfg.RetryDelay = d }
}

// WithStaleWhileRevalidate toggles serving the last-good value when
// retries are exhausted.
func WithStaleWhileRevalidate(on bool) Option {
	return func(o *options) { o.cfg.StaleWhileRevalidate = on }
}

// WithBackgroundRefresh toggles silent re-fetching before the TTL lapses.
func WithBackgroundRefresh(on bool) Option {
	return func(o *options) { o.cfg.BackgroundRefresh = on }
}

// WithRefreshAt sets the TTL fraction at which a background refresh fires.
func WithRefreshAt(fraction float64) Option {
	return func(o *options) { o.cfg.RefreshAt = fraction }
}

// WithDisabled constructs the coordinator disabled: it serves fresh cached
// values but never fetches.
func WithDisabled() Option {
	return func(o *options) { o.cfg.Enabled = false }
}

// WithLogger sets the logger for fetch lifecycle events. Defaults to a
// no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}
