package cache

import (
	"strings"
	"time"
)

// keyLister is implemented by stores that can enumerate their live keys.
// Scoped uses it to confine Clear, Len, and Stats to one domain.
type keyLister interface {
	Keys() []string
}

type scopedStore struct {
	parent Store
	prefix string
}

var _ Store = (*scopedStore)(nil)

// Scoped wraps a store with a key-namespace prefix, giving one logical
// cache domain on a shared instance. Writes and reads are transparently
// prefixed; Clear removes only this domain's keys (when the parent can
// enumerate keys, as the stores returned by New can). Scopes nest.
func Scoped(s Store, prefix string) Store {
	return &scopedStore{parent: s, prefix: prefix + "::"}
}

func (s *scopedStore) Set(key string, val any, ttl time.Duration) {
	s.parent.Set(s.prefix+key, val, ttl)
}

func (s *scopedStore) Get(key string) (any, bool) {
	return s.parent.Get(s.prefix + key)
}

func (s *scopedStore) Has(key string) bool {
	return s.parent.Has(s.prefix + key)
}

func (s *scopedStore) Delete(key string) bool {
	return s.parent.Delete(s.prefix + key)
}

func (s *scopedStore) Clear() {
	keys, ok := s.keys()
	if !ok {
		// Parent cannot enumerate; clearing everything is the only way
		// to honor the contract that this domain's keys are gone.
		s.parent.Clear()
		return
	}
	for _, k := range keys {
		s.parent.Delete(k)
	}
}

func (s *scopedStore) Len() int {
	keys, ok := s.keys()
	if !ok {
		return s.parent.Len()
	}
	return len(keys)
}

func (s *scopedStore) Stats() Stats {
	st := s.parent.Stats()
	if keys, ok := s.keys(); ok {
		st.Entries = len(keys)
	}
	return st
}

// Close is a no-op: the parent owns the timers and is closed by whoever
// constructed it.
func (s *scopedStore) Close() {}

// Keys enumerates this domain's live keys with the prefix stripped, so
// nested scopes filter correctly.
func (s *scopedStore) Keys() []string {
	keys, _ := s.keys()
	trimmed := make([]string, 0, len(keys))
	for _, k := range keys {
		trimmed = append(trimmed, strings.TrimPrefix(k, s.prefix))
	}
	return trimmed
}

func (s *scopedStore) keys() ([]string, bool) {
	lister, ok := s.parent.(keyLister)
	if !ok {
		return nil, false
	}
	var keys []string
	for _, k := range lister.Keys() {
		if strings.HasPrefix(k, s.prefix) {
			keys = append(keys, k)
		}
	}
	return keys, true
}
