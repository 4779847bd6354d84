// Package cache provides a generic, sharded, scoped in-memory store whose
// entries carry refresh metadata: dependency keys, logical expire/refresh
// countdowns, and the loader capable of recomputing the value. It is the
// storage half of the depcache refresh engine; package refresh consumes it
// through the Store interface.
//
// Design
//
//   - Addressing: entries are keyed by (scope, key). A scope is a namespace
//     partition, so unrelated subsystems never collide on key strings.
//
//   - Concurrency: the store is split into shards, each protected by an
//     RWMutex. Shard selection hashes scope and key with xxhash64 and masks
//     into a power-of-two shard count. A write locks only the owning shard,
//     is atomic across every entry field, and last-writer-wins on races.
//
//   - Logical time: instead of wall-clock TTLs the store keeps a tick
//     counter advanced by Tick(). Each entry records the tick of its last
//     write; TicksToExpire and TicksToRefresh are countdowns from there.
//     Tick() evicts expired entries and returns the ones due for refresh.
//     Expiry is also enforced lazily on Get. Logical ticks make expiry and
//     refresh behavior fully deterministic in tests.
//
//   - Loaders: every entry may carry its own Loader and parameter list.
//     GetOrLoad creates entries on first computation, coalescing concurrent
//     loads for the same key (singleflight). A loader reporting "no value"
//     is an explicit tombstone, not an error condition (GetOrLoad surfaces
//     it as ErrNoValue and stores nothing).
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict signals; NoopMetrics
//     is the default. A Prometheus adapter lives in metrics/prom.
//
//   - Callbacks: Options.OnEvict(k, v, reason) fires for every eviction
//     (reason is EvictExplicit, EvictExpired, or EvictScope).
//
// Basic usage
//
//	s := cache.New[string](cache.Options[string]{})
//	_ = s.Put(&cache.Item[string]{
//	    Key:            cache.ItemKey{Scope: "pages", Key: "home"},
//	    Value:          "<html>...",
//	    TicksToRefresh: 3,
//	})
//	if v, ok := s.GetValue("pages", "home"); ok {
//	    _ = v // use value
//	}
//	due := s.Tick() // advance logical time, collect entries due for refresh
//	_ = due
//
// Entries returned by Get and Tick are copies; mutating them does not
// affect the store until they are written back with Put.
package cache
