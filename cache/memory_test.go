package cache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually-advanced clock for expiry tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestSetGet(t *testing.T) {
	s := New()
	defer s.Close()
	_, found := s.Get("missing")
	assert.False(t, found)
	s.Set("k", "value", time.Minute)
	val, found := s.Get("k")
	assert.True(t, found)
	assert.Equal(t, "value", val)
	assert.Equal(t, 1, s.Len())
}

func TestTypedGet(t *testing.T) {
	type user struct{ Name string }
	s := New()
	defer s.Close()
	s.Set("u", user{Name: "ada"}, time.Minute)
	u, found := Get[user](s, "u")
	require.True(t, found)
	assert.Equal(t, "ada", u.Name)
	_, found = Get[int](s, "u")
	assert.False(t, found)
}

func TestTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now))
	defer s.Close()
	s.Set("k", "v", 100*time.Millisecond)
	_, found := s.Get("k")
	assert.True(t, found)
	clock.Advance(150 * time.Millisecond)
	_, found = s.Get("k")
	assert.False(t, found)
	assert.Equal(t, 0, s.Len())
}

func TestDefaultTTLApplies(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now), WithDefaultTTL(time.Second))
	defer s.Close()
	s.Set("k", "v", 0)
	clock.Advance(999 * time.Millisecond)
	assert.True(t, s.Has("k"))
	clock.Advance(time.Millisecond)
	assert.False(t, s.Has("k"))
}

func TestNoExpiryWhenDefaultDisabled(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now), WithDefaultTTL(0))
	defer s.Close()
	s.Set("k", "v", 0)
	clock.Advance(24 * 365 * time.Hour)
	assert.True(t, s.Has("k"))
}

func TestTimerEagerExpiry(t *testing.T) {
	s := New()
	defer s.Close()
	s.Set("k", "v", 20*time.Millisecond)
	assert.Eventually(t, func() bool {
		m := s.(*memoryStore)
		m.mu.Lock()
		defer m.mu.Unlock()
		_, present := m.entries["k"]
		return !present
	}, time.Second, 5*time.Millisecond, "timer should delete the entry without any read")
}

func TestOverwriteRefreshes(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now))
	defer s.Close()
	s.Set("k", "v1", 100*time.Millisecond)
	s.Get("k")
	clock.Advance(80 * time.Millisecond)
	s.Set("k", "v2", 100*time.Millisecond)
	clock.Advance(80 * time.Millisecond)
	val, found := s.Get("k")
	require.True(t, found)
	assert.Equal(t, "v2", val)
	assert.Equal(t, 1, s.Len())
}

func TestCapacityBound(t *testing.T) {
	s := New(WithMaxEntries(10))
	defer s.Close()
	for i := 0; i < 100; i++ {
		s.Set(fmt.Sprintf("k%d", i), i, time.Minute)
		assert.LessOrEqual(t, s.Len(), 10)
	}
	assert.Equal(t, 10, s.Len())
}

func TestLRUEviction(t *testing.T) {
	s := New(WithMaxEntries(2))
	defer s.Close()
	s.Set("A", 1, time.Minute)
	s.Set("B", 2, time.Minute)
	_, found := s.Get("A") // A becomes most recently accessed
	require.True(t, found)
	s.Set("C", 3, time.Minute)
	assert.True(t, s.Has("A"))
	assert.False(t, s.Has("B"))
	assert.True(t, s.Has("C"))
}

func TestEvictionPrefersExpired(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now), WithMaxEntries(2))
	defer s.Close()
	s.Set("short", 1, 10*time.Millisecond)
	s.Set("long", 2, time.Hour)
	clock.Advance(20 * time.Millisecond)
	// "long" was accessed more recently, but "short" is expired and must
	// be reclaimed instead of evicting a live entry.
	s.Set("new", 3, time.Hour)
	assert.True(t, s.Has("long"))
	assert.True(t, s.Has("new"))
	assert.False(t, s.Has("short"))
}

func TestHasDoesNotTouchRecency(t *testing.T) {
	s := New(WithMaxEntries(2))
	defer s.Close()
	s.Set("A", 1, time.Minute)
	s.Set("B", 2, time.Minute)
	assert.True(t, s.Has("A")) // must not promote A
	s.Set("C", 3, time.Minute)
	assert.False(t, s.Has("A"))
	assert.True(t, s.Has("B"))
}

func TestDeleteIdempotent(t *testing.T) {
	s := New()
	defer s.Close()
	s.Set("k", "v", time.Minute)
	assert.True(t, s.Delete("k"))
	assert.False(t, s.Delete("k"))
	assert.False(t, s.Delete("never-existed"))
}

func TestClear(t *testing.T) {
	s := New()
	defer s.Close()
	s.Set("a", 1, time.Minute)
	s.Set("b", 2, time.Minute)
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
	s.Set("c", 3, time.Minute)
	assert.Equal(t, 1, s.Len())
}

func TestStats(t *testing.T) {
	clock := newFakeClock()
	s := New(WithNowFunc(clock.Now), WithMaxEntries(2))
	defer s.Close()
	s.Set("A", "payload-a", time.Minute)
	s.Set("B", "payload-b", time.Minute)
	s.Get("A")
	s.Get("A")
	s.Get("missing")
	clock.Advance(30 * time.Second)
	s.Set("C", "payload-c", time.Minute) // evicts B
	st := s.Stats()
	assert.Equal(t, 2, st.Entries)
	assert.Equal(t, 2, st.MaxEntries)
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Greater(t, st.EstimatedBytes, 0)
	assert.Equal(t, 30*time.Second, st.OldestEntryAge)
	assert.InDelta(t, 2.0/3.0, st.HitRate, 1e-9)
}

func TestCloseStopsTimers(t *testing.T) {
	s := New()
	s.Set("k", "v", time.Minute)
	s.Close()
	// Still usable after Close; no timers are scheduled.
	s.Set("j", "w", time.Minute)
	assert.True(t, s.Has("k"))
	assert.True(t, s.Has("j"))
}

func TestKeyBuilder(t *testing.T) {
	assert.Equal(t, "prompts::team-1::page::2", Key("prompts", "team-1", "page", 2))
	assert.Equal(t, Key("a", 1), Key("a", 1))
	long := Key("prefix", strings.Repeat("x", 500))
	assert.LessOrEqual(t, len(long), maxKeyLen)
	assert.True(t, strings.HasPrefix(long, "prefix::"))
	assert.NotEqual(t, long, Key("prefix", strings.Repeat("y", 500)))
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
