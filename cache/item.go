package cache

import "context"

// Tick counter values that disable the corresponding countdown.
const (
	NeverExpire  int64 = 0
	NeverRefresh int64 = 0
)

// ItemKey addresses a single entry: a scope (namespace partition) plus an
// opaque key within that scope. Keys are only unique per scope.
type ItemKey struct {
	Scope string
	Key   string
}

// String renders the key for logs and error messages.
func (k ItemKey) String() string { return k.Scope + "/" + k.Key }

// flightKey encodes the key unambiguously for coalescing maps. String is
// not enough: keys are opaque, so ("a/b","c") and ("a","b/c") print the
// same. The NUL separator matches the shard hashing scheme.
func (k ItemKey) flightKey() string { return k.Scope + "\x00" + k.Key }

// Item is one cached value together with its refresh metadata.
//
// DependencyKeys lists the entries whose values this item's computation
// consumed. The refresh engine uses them to order a batch so that an item
// is never recomputed against a stale dependency.
//
// TicksToExpire and TicksToRefresh are logical countdowns relative to the
// store's tick counter: after TicksToExpire ticks since the last write the
// entry is evicted; after TicksToRefresh ticks it is reported as due for
// refresh by Store.Tick. Zero (NeverExpire/NeverRefresh) disables either.
type Item[V any] struct {
	Key            ItemKey
	Value          V
	DependencyKeys []ItemKey
	TicksToExpire  int64
	TicksToRefresh int64
	Loader         Loader[V]
	LoaderParams   []any
}

// Loader recomputes an item's value.
//
// Load returns (value, true, nil) on success. Returning ok == false with a
// nil error is the explicit "no value" signal: the entry should be removed
// from the store rather than updated. An error means the recomputation
// failed and the stored value stays as-is.
//
// Load may block on I/O; any timeout is the loader's own responsibility
// (honor ctx inside the implementation).
type Loader[V any] interface {
	Load(ctx context.Context, params ...any) (V, bool, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc[V any] func(ctx context.Context, params ...any) (V, bool, error)

// Load implements Loader.
func (f LoaderFunc[V]) Load(ctx context.Context, params ...any) (V, bool, error) {
	return f(ctx, params...)
}
