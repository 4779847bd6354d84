package cache

import (
	"sync"

	"github.com/IvanBrykalov/depcache/internal/util"
)

// shard is an independent partition of the store with its own lock and map.
type shard[V any] struct {
	// ---- guarded by mu ----
	mu sync.RWMutex
	m  map[ItemKey]*node[V]

	opt Options[V]

	// ---- hot counters (own cache line to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
}

func newShard[V any](opt Options[V]) *shard[V] {
	return &shard[V]{
		m:   make(map[ItemKey]*node[V]),
		opt: opt,
	}
}

// get returns a copy of the entry, lazily evicting it when expired.
// now is the store's current tick.
func (s *shard[V]) get(k ItemKey, now int64) (*Item[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		return nil, false
	}
	if n.expired(now) {
		s.evictLocked(n, EvictExpired)
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		return nil, false
	}
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	it := n.item // shallow copy; slices stay shared with the node
	return &it, true
}

// put inserts or replaces the entry, stamping it with the current tick.
func (s *shard[V]) put(it *Item[V], now int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.m[it.Key]; ok {
		n.item = *it
		n.putAt = now
		return
	}
	s.m[it.Key] = &node[V]{item: *it, putAt: now}
}

// remove deletes the entry if present. Returns true if it existed.
func (s *shard[V]) remove(k ItemKey, reason EvictReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.m[k]
	if !ok {
		return false
	}
	s.evictLocked(n, reason)
	return true
}

// has reports presence without promoting counters; expired entries do not
// count as present (they are left for the next Get or Tick to collect).
func (s *shard[V]) has(k ItemKey, now int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.m[k]
	return ok && !n.expired(now)
}

func (s *shard[V]) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// sweep evicts every expired entry and appends copies of the entries due
// for refresh to out. now is the tick after advancing.
func (s *shard[V]) sweep(now int64, out []*Item[V]) []*Item[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range s.m {
		switch {
		case n.expired(now):
			s.evictLocked(n, EvictExpired)
		case n.due(now):
			it := n.item
			out = append(out, &it)
		}
	}
	return out
}

// collectScopes adds every scope with a resident entry to the set.
func (s *shard[V]) collectScopes(set map[string]struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.m {
		set[k.Scope] = struct{}{}
	}
}

// hasScope reports whether any resident entry belongs to scope.
func (s *shard[V]) hasScope(scope string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.m {
		if k.Scope == scope {
			return true
		}
	}
	return false
}

// clearScope removes every entry in scope; empty scope clears all.
// Returns the number of removed entries.
func (s *shard[V]) clearScope(scope string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, n := range s.m {
		if scope != "" && k.Scope != scope {
			continue
		}
		s.evictLocked(n, EvictScope)
		removed++
	}
	return removed
}

// evictLocked removes n from the map and fires metrics/callbacks.
// Caller holds mu.
func (s *shard[V]) evictLocked(n *node[V], reason EvictReason) {
	delete(s.m, n.item.Key)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Called under the shard lock; if this ever becomes a latency
		// problem, collect (key, value) pairs and call back after unlock.
		cb(n.item.Key, n.item.Value, reason)
	}
}
