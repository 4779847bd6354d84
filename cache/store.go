package cache

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/singleflight"

	"github.com/IvanBrykalov/depcache/internal/util"
)

var log = logging.Logger("depcache")

var (
	// ErrNoLoader is returned by GetOrLoad when the item carries no Loader.
	ErrNoLoader = errors.New("cache: no loader provided")
	// ErrNoValue is returned by GetOrLoad when the loader explicitly
	// reported "no value" for the key.
	ErrNoValue = errors.New("cache: loader produced no value")
	// ErrEmptyKey is returned by Put for a blank scope or key.
	ErrEmptyKey = errors.New("cache: empty scope or key")
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("cache: store closed")
)

// store is a sharded in-memory scoped KV store with tick-driven expiry.
// All methods are safe for concurrent use by multiple goroutines.
type store[V any] struct {
	shards []*shard[V]
	closed atomic.Bool

	// tick is the store's logical clock, advanced by Tick().
	tick atomic.Int64

	// singleflight group coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group
}

// New constructs a Store with the provided Options.
// Defaults:
//   - nil Metrics  -> NoopMetrics
//   - Shards <= 0  -> auto, rounded up to the next power of two
func New[V any](opt Options[V]) Store[V] {
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}

	sh := opt.Shards
	if sh <= 0 {
		sh = util.ReasonableShardCount()
	} else {
		sh = int(util.NextPow2(uint64(sh)))
	}

	cs := make([]*shard[V], sh)
	for i := range cs {
		cs[i] = newShard(opt)
	}

	return &store[V]{shards: cs}
}

// ---- Store[V] implementation ----

func (s *store[V]) Get(scope, key string) (*Item[V], bool) {
	if s.closed.Load() {
		return nil, false
	}
	return s.getShard(scope, key).get(ItemKey{Scope: scope, Key: key}, s.now())
}

func (s *store[V]) GetValue(scope, key string) (V, bool) {
	it, ok := s.Get(scope, key)
	if !ok {
		var zero V
		return zero, false
	}
	return it.Value, true
}

func (s *store[V]) Put(it *Item[V]) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if it.Key.Scope == "" || it.Key.Key == "" {
		return ErrEmptyKey
	}
	s.getShard(it.Key.Scope, it.Key.Key).put(it, s.now())
	return nil
}

func (s *store[V]) Remove(scope, key string) bool {
	if s.closed.Load() {
		return false
	}
	return s.getShard(scope, key).remove(ItemKey{Scope: scope, Key: key}, EvictExplicit)
}

func (s *store[V]) Has(scope, key string) bool {
	if s.closed.Load() {
		return false
	}
	return s.getShard(scope, key).has(ItemKey{Scope: scope, Key: key}, s.now())
}

func (s *store[V]) Len() int {
	if s.closed.Load() {
		return 0
	}
	total := 0
	for _, sh := range s.shards {
		total += sh.len()
	}
	return total
}

func (s *store[V]) Scopes() []string {
	if s.closed.Load() {
		return nil
	}
	set := make(map[string]struct{})
	for _, sh := range s.shards {
		sh.collectScopes(set)
	}
	scopes := make([]string, 0, len(set))
	for sc := range set {
		scopes = append(scopes, sc)
	}
	sort.Strings(scopes)
	return scopes
}

func (s *store[V]) HasScope(scope string) bool {
	if s.closed.Load() {
		return false
	}
	for _, sh := range s.shards {
		if sh.hasScope(scope) {
			return true
		}
	}
	return false
}

func (s *store[V]) ClearScope(scope string) int {
	if s.closed.Load() || scope == "" {
		return 0
	}
	removed := 0
	for _, sh := range s.shards {
		removed += sh.clearScope(scope)
	}
	return removed
}

func (s *store[V]) ClearAll() {
	if s.closed.Load() {
		return
	}
	for _, sh := range s.shards {
		sh.clearScope("")
	}
}

// Tick advances the logical clock, evicts expired entries, and returns
// copies of the entries due for refresh, sorted by key so callers get a
// reproducible batch for identical store contents.
func (s *store[V]) Tick() []*Item[V] {
	if s.closed.Load() {
		return nil
	}
	now := s.tick.Add(1)

	var due []*Item[V]
	for _, sh := range s.shards {
		due = sh.sweep(now, due)
	}
	sort.Slice(due, func(i, j int) bool {
		a, b := due[i].Key, due[j].Key
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		return a.Key < b.Key
	})
	log.Debugw("tick sweep", "tick", now, "due", len(due))
	return due
}

// GetOrLoad returns the value for it.Key, loading it on a miss via
// it.Loader; concurrent loads for the same key are coalesced.
func (s *store[V]) GetOrLoad(ctx context.Context, it *Item[V]) (V, error) {
	var zero V

	// fast path
	if v, ok := s.GetValue(it.Key.Scope, it.Key.Key); ok {
		return v, nil
	}
	if s.closed.Load() {
		return zero, ErrClosed
	}
	if it.Loader == nil {
		return zero, ErrNoLoader
	}

	// singleflight: exactly one real load per key; followers that lose
	// their context stop waiting without cancelling the leader.
	ch := s.sf.DoChan(it.Key.flightKey(), func() (any, error) {
		// double-check after flight join
		if v, ok := s.GetValue(it.Key.Scope, it.Key.Key); ok {
			return v, nil
		}
		v, ok, err := it.Loader.Load(ctx, it.LoaderParams...)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNoValue
		}
		loaded := *it
		loaded.Value = v
		if err := s.Put(&loaded); err != nil {
			return nil, err
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks the store as closed. Future reads miss and writes fail.
func (s *store[V]) Close() error {
	s.closed.Store(true)
	return nil
}

// ---- helpers ----

// getShard picks a shard by hashing scope and key.
// len(s.shards) is guaranteed to be a power of two.
func (s *store[V]) getShard(scope, key string) *shard[V] {
	h := util.HashScopedKey(scope, key)
	return s.shards[util.ShardIndex(h, len(s.shards))]
}

// now returns the current logical tick.
func (s *store[V]) now() int64 { return s.tick.Load() }
