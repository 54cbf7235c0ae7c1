package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
)

type Store interface {
	// Set stores a value under key with a TTL. If ttl <= 0, the store's
	// configured default TTL is used. Writing a new key to a full store
	// evicts the least-recently-accessed entry first. Never fails.
	Set(key string, val any, ttl time.Duration)

	// Get returns the value for key if present and unexpired, updating its
	// last-access time and hit count. An expired entry is removed and
	// reported absent.
	Get(key string) (any, bool)

	// Has reports whether key is present and unexpired without touching
	// its access metadata.
	Has(key string) bool

	// Delete removes key and its expiry timer. It reports whether a live
	// entry was removed and is idempotent on absent keys.
	Delete(key string) bool

	// Clear removes all entries and cancels all expiry timers.
	Clear()

	// Len returns the number of live (unexpired) entries.
	Len() int

	// Stats returns a diagnostic snapshot. O(entries); observability only.
	Stats() Stats

	// Close cancels all expiry timers and stops scheduling new ones. The
	// store remains readable and writable afterwards; lazy expiry on read
	// still applies. Process-lifetime stores never need it, tests do.
	Close()
}

// Stats is a point-in-time diagnostic snapshot of a store.
type Stats struct {
	Entries        int
	MaxEntries     int
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	Expired        uint64
	EstimatedBytes int
	OldestEntryAge time.Duration
	HitRate        float64
}

// DefaultMaxEntries is the entry bound used when WithMaxEntries is omitted.
const DefaultMaxEntries = 500

// DefaultTTL is the per-entry TTL used when both Set and WithDefaultTTL
// omit one.
const DefaultTTL = 5 * time.Minute

// config holds the resolved configuration for a store.
type config struct {
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
	log        zerolog.Logger
	name       string
}

// Option configures a Store.
type Option func(*config)

func defaultStoreConfig() config {
	return config{
		maxEntries: DefaultMaxEntries,
		defaultTTL: DefaultTTL,
		now:        time.Now,
		log:        zerolog.Nop(),
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxEntries < 1 {
		cfg.maxEntries = 1
	}
	return cfg
}

// WithMaxEntries sets the upper bound on live entries. Defaults to
// DefaultMaxEntries. Values below 1 are raised to 1.
func WithMaxEntries(n int) Option {
	return func(c *config) { c.maxEntries = n }
}

// WithDefaultTTL sets the TTL applied when Set is called with ttl <= 0.
// Defaults to DefaultTTL. A value <= 0 disables default expiry.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *config) { c.defaultTTL = d }
}

// WithLogger sets the logger used for eviction and expiry events.
// Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithNowFunc replaces the clock used for expiry and recency decisions.
// Intended for tests; expiry timers still run on the wall clock, but the
// defensive check-on-read uses this clock, so advancing it is enough to
// make entries expire.
func WithNowFunc(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// WithName sets a diagnostic label attached to log events.
func WithName(name string) Option {
	return func(c *config) { c.name = name }
}

// Get retrieves a typed value from a store via type assertion. A present
// value of the wrong type is reported absent.
func Get[T any](s Store, key string) (T, bool) {
	val, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := val.(T)
	return typed, ok
}

// maxKeyLen bounds keys produced by Key; longer keys are hashed.
const maxKeyLen = 128

// Key builds a stable cache key from its parts, joined with "::". Keys that
// would exceed a fixed length keep a readable prefix and append an xxhash
// of the full key, so arbitrarily long inputs produce bounded keys.
func Key(parts ...any) string {
	ss := make([]string, len(parts))
	for i, p := range parts {
		ss[i] = fmt.Sprintf("%v", p)
	}
	key := strings.Join(ss, "::")
	if len(key) <= maxKeyLen {
		return key
	}
	return fmt.Sprintf("%s::%016x", key[:maxKeyLen-19], xxhash.Sum64String(key))
}

var (
	defaultOnce  sync.Once
	defaultStore Store
)

// Default returns the process-wide default store, created on first use.
// Code that needs isolation (tests, logical cache domains) should construct
// its own instance with New or wrap this one with Scoped.
func Default() Store {
	defaultOnce.Do(func() {
		defaultStore = New(WithName("default"))
	})
	return defaultStore
}
