package cache

import "context"

// Store is a scoped, in-memory key/value store with per-entry refresh
// metadata. All methods are safe for concurrent use by multiple goroutines.
//
// Consistency: a write is atomic across the whole entry (value, counters,
// loader, params) and a Get after a completed Put for the same (scope, key)
// observes the written entry. Concurrent writers to the same key are
// serialized by the owning shard's lock; last writer wins.
type Store[V any] interface {
	// Get returns a copy of the entry for (scope, key) and a presence flag.
	// An entry whose expire countdown has elapsed is evicted on access and
	// reported as a miss.
	Get(scope, key string) (*Item[V], bool)

	// GetValue returns just the value for (scope, key).
	GetValue(scope, key string) (V, bool)

	// Put inserts or replaces the entry for it.Key, resetting its freshness
	// countdowns to the current tick. The write covers all entry fields
	// atomically. Fails with ErrEmptyKey on a blank scope or key and with
	// ErrClosed after Close.
	Put(it *Item[V]) error

	// Remove deletes (scope, key) if present and returns true on success.
	Remove(scope, key string) bool

	// Has reports whether (scope, key) is present and not expired.
	Has(scope, key string) bool

	// Len returns the total number of resident entries across all scopes.
	Len() int

	// Scopes returns the distinct scopes with at least one resident entry,
	// sorted lexicographically.
	Scopes() []string

	// HasScope reports whether any resident entry belongs to scope.
	HasScope(scope string) bool

	// ClearScope removes every entry in scope and returns how many.
	ClearScope(scope string) int

	// ClearAll removes every entry in every scope.
	ClearAll()

	// Tick advances the store's logical clock by one. Entries whose expire
	// countdown elapsed are evicted; entries whose refresh countdown elapsed
	// are returned (as copies, sorted by key) for the caller to hand to the
	// refresh engine.
	Tick() []*Item[V]

	// GetOrLoad returns the stored value for it.Key, computing it via
	// it.Loader on a miss. Concurrent loads for the same key are coalesced.
	// A loader that reports "no value" stores nothing and returns the zero
	// value with ErrNoValue. Returns ErrNoLoader if it.Loader is nil.
	GetOrLoad(ctx context.Context, it *Item[V]) (V, error)

	// Close marks the store closed. Subsequent reads miss and writes fail.
	Close() error
}
