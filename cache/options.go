package cache

// EvictReason explains why an entry left the store.
type EvictReason int

const (
	// EvictExplicit — removed by a direct Remove call (including refresh
	// tombstones applied by the refresh engine).
	EvictExplicit EvictReason = iota
	// EvictExpired — the entry's expire countdown elapsed; removed either
	// lazily on access or by a Tick sweep.
	EvictExpired
	// EvictScope — removed by ClearScope or ClearAll.
	EvictScope
)

// Metrics exposes store-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
}

// Options configures the store. Zero values are safe; defaults are applied
// in New():
//   - Shards <= 0  => auto (2*GOMAXPROCS rounded up to a power of two)
//   - nil Metrics  => NoopMetrics
type Options[V any] struct {
	// Shards defines the number of shards. If 0, an automatic value is
	// chosen and rounded to the next power of two.
	Shards int

	// Metrics receives Hit/Miss/Evict signals.
	Metrics Metrics

	// OnEvict is called for every eviction, under the shard lock;
	// keep callbacks lightweight.
	OnEvict func(k ItemKey, v V, reason EvictReason)
}
