package cache

import (
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// entry is one cached key. Entries double as nodes of the intrusive LRU
// list: head is most recently accessed, tail is the eviction victim.
type entry struct {
	key            string
	value          any
	storedAt       time.Time
	expiresAt      time.Time // zero = never
	hits           int
	lastAccessedAt time.Time
	gen            uint64 // guards against stale expiry timers
	timer          *time.Timer
	prev, next     *entry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type memoryStore struct {
	mu      sync.Mutex
	cfg     config
	entries map[string]*entry
	head    *entry
	tail    *entry
	closed  bool

	hits      uint64
	misses    uint64
	evictions uint64
	expired   uint64
}

var _ Store = (*memoryStore)(nil)

// New returns a new in-memory Store.
func New(opts ...Option) Store {
	return &memoryStore{
		cfg:     applyOptions(opts),
		entries: make(map[string]*entry),
	}
}

func (m *memoryStore) Set(key string, val any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = m.cfg.defaultTTL
	}
	now := m.cfg.now()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok {
		e.value = val
		e.storedAt = now
		e.expiresAt = expires
		e.lastAccessedAt = now
		e.hits = 0
		m.moveToFront(e)
		m.scheduleExpiry(e, ttl)
		return
	}
	if len(m.entries) >= m.cfg.maxEntries {
		m.makeRoom(now)
	}
	e := &entry{
		key:            key,
		value:          val,
		storedAt:       now,
		expiresAt:      expires,
		lastAccessedAt: now,
	}
	m.entries[key] = e
	m.pushFront(e)
	m.scheduleExpiry(e, ttl)
}

func (m *memoryStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	now := m.cfg.now()
	if e.expired(now) {
		m.remove(e)
		m.expired++
		m.misses++
		return nil, false
	}
	e.hits++
	e.lastAccessedAt = now
	m.moveToFront(e)
	m.hits++
	return e.value, true
}

func (m *memoryStore) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	if e.expired(m.cfg.now()) {
		m.remove(e)
		m.expired++
		return false
	}
	return true
}

func (m *memoryStore) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return false
	}
	live := !e.expired(m.cfg.now())
	m.remove(e)
	return live
}

func (m *memoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		e.gen++
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.entries = make(map[string]*entry)
	m.head, m.tail = nil, nil
}

func (m *memoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.cfg.now()
	n := 0
	for _, e := range m.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// Keys returns the keys of all live entries, in no particular order.
// Used by Scoped to clear a single cache domain.
func (m *memoryStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.cfg.now()
	keys := make([]string, 0, len(m.entries))
	for k, e := range m.entries {
		if !e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *memoryStore) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.cfg.now()
	st := Stats{
		MaxEntries: m.cfg.maxEntries,
		Hits:       m.hits,
		Misses:     m.misses,
		Evictions:  m.evictions,
		Expired:    m.expired,
	}
	for k, e := range m.entries {
		if e.expired(now) {
			continue
		}
		st.Entries++
		st.EstimatedBytes += len(k) + estimateSize(e.value)
		if age := now.Sub(e.storedAt); age > st.OldestEntryAge {
			st.OldestEntryAge = age
		}
	}
	if lookups := m.hits + m.misses; lookups > 0 {
		st.HitRate = float64(m.hits) / float64(lookups)
	}
	return st
}

func (m *memoryStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	for _, e := range m.entries {
		e.gen++
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
}

// scheduleExpiry arms the authoritative delete timer for an entry. Must be
// called with the lock held. The generation counter makes a timer that was
// already in flight when its key was rewritten a no-op.
func (m *memoryStore) scheduleExpiry(e *entry, ttl time.Duration) {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if m.closed || ttl <= 0 {
		return
	}
	key, gen := e.key, e.gen
	e.timer = time.AfterFunc(ttl, func() {
		m.expireKey(key, gen)
	})
}

func (m *memoryStore) expireKey(key string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || e.gen != gen {
		return
	}
	if !e.expired(m.cfg.now()) {
		// Timer fired early relative to the configured clock; the
		// defensive check on read covers the remainder.
		return
	}
	m.remove(e)
	m.expired++
	m.cfg.log.Debug().Str("cache", m.cfg.name).Str("key", key).Msg("entry expired")
}

// makeRoom frees at least one slot. Expired entries are reclaimed first,
// scanning from the cold end of the LRU list; only if none are found is the
// least-recently-accessed live entry evicted. Must be called with the lock
// held.
func (m *memoryStore) makeRoom(now time.Time) {
	for e := m.tail; e != nil && len(m.entries) >= m.cfg.maxEntries; {
		prev := e.prev
		if e.expired(now) {
			m.remove(e)
			m.expired++
		}
		e = prev
	}
	if len(m.entries) >= m.cfg.maxEntries && m.tail != nil {
		victim := m.tail
		m.remove(victim)
		m.evictions++
		m.cfg.log.Debug().Str("cache", m.cfg.name).Str("key", victim.key).
			Time("last_accessed", victim.lastAccessedAt).Msg("entry evicted")
	}
}

// remove unlinks an entry, stops its timer, and deletes it from the map.
// Must be called with the lock held.
func (m *memoryStore) remove(e *entry) {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	m.unlink(e)
	delete(m.entries, e.key)
}

func (m *memoryStore) pushFront(e *entry) {
	e.prev = nil
	e.next = m.head
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
}

func (m *memoryStore) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if m.head == e {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if m.tail == e {
		m.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (m *memoryStore) moveToFront(e *entry) {
	if m.head == e {
		return
	}
	m.unlink(e)
	m.pushFront(e)
}

// estimateSize returns a best-effort msgpack size for a value. Values that
// cannot be serialized contribute a fixed overhead instead.
func estimateSize(val any) int {
	data, err := msgpack.Marshal(val)
	if err != nil {
		return 16
	}
	return len(data)
}
