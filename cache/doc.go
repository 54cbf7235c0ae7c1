// Package cache provides a bounded in-memory key/value store with per-entry
// TTL expiry and least-recently-used eviction.
//
// # Store Interface
//
// The [Store] interface defines the full surface: [Store.Set], [Store.Get],
// [Store.Has], [Store.Delete], [Store.Clear], [Store.Len], [Store.Stats],
// and [Store.Close]. None of these operations can fail — the store performs
// no I/O, so there are no errors to return.
//
// The interface uses [any] for values rather than generics because Go does
// not allow generic methods on interfaces. Type safety is provided by the
// package-level generic function [Get].
//
// # Capacity and Eviction
//
// A store holds at most a fixed number of entries ([WithMaxEntries],
// default [DefaultMaxEntries]). Writing a new key to a full store first
// evicts exactly one entry — the one with the oldest last-access time, ties
// broken by earliest write time — so the bound holds before the insert
// completes and callers never observe a transient over-capacity state.
// Expired entries are reclaimed in preference to evicting a live victim.
// Recency is tracked with an intrusive doubly-linked list, making eviction
// O(1) rather than a scan.
//
// # Expiry
//
// Every entry carries a TTL ([WithDefaultTTL] supplies one when Set omits
// it; a TTL <= 0 at both levels means the entry never expires). Expiry is
// enforced twice over:
//
//   - An authoritative per-entry timer deletes the entry when its TTL
//     elapses. The timer is rescheduled when the key is overwritten and
//     cancelled when the key is deleted.
//
//   - A defensive check on every read treats an entry at or past its
//     deadline as absent — and removes it — regardless of whether the timer
//     has fired yet. This tolerates timer coalescing and clock adjustments.
//
// The net effect is that readers can never observe an expired entry; an
// expired entry is indistinguishable from an absent one.
//
// # Instances
//
// [New] returns an isolated store, so tests and independent subsystems can
// each own one. [Default] returns a lazily-created process-wide instance
// for code that wants the conventional shared cache. [Scoped] wraps any
// store with a key-prefix namespace so several logical cache domains can
// share one instance and still be cleared independently.
//
// # Values
//
// Values are stored as-is with no copying, so mutations to stored pointers
// are visible through the cache. Callers must treat stored values as
// immutable.
//
// # Observability
//
// [Store.Stats] returns a diagnostic snapshot (entry count, hit rate,
// eviction and expiry counters, an estimated byte size computed via
// msgpack). It is O(entries) and intended for logging and dashboards, never
// for control flow.
package cache
