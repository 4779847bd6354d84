package cache

// node is the shard-owned representation of one resident entry.
// All fields are guarded by the owning shard's lock.
type node[V any] struct {
	item Item[V]

	// putAt is the store tick at which the entry was last written.
	// The expire/refresh countdowns are measured from it.
	putAt int64
}

// expired reports whether the expire countdown elapsed at tick now.
func (n *node[V]) expired(now int64) bool {
	ttl := n.item.TicksToExpire
	return ttl > 0 && now-n.putAt >= ttl
}

// due reports whether the refresh countdown elapsed at tick now.
// An expired entry is never due: eviction wins over refresh.
func (n *node[V]) due(now int64) bool {
	ttr := n.item.TicksToRefresh
	return ttr > 0 && now-n.putAt >= ttr && !n.expired(now)
}
