package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/depcache/cache"
)

// recordingLoader tracks invocation order across a batch.
type recordingLoader struct {
	mu    sync.Mutex
	calls []cache.ItemKey
}

func (rl *recordingLoader) loaderFor(key cache.ItemKey, value string) cache.Loader[string] {
	return cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
		rl.mu.Lock()
		rl.calls = append(rl.calls, key)
		rl.mu.Unlock()
		return value, true, nil
	})
}

func seedStore(t *testing.T, items ...*cache.Item[string]) cache.Store[string] {
	t.Helper()
	store := cache.New[string](cache.Options[string]{})
	t.Cleanup(func() { _ = store.Close() })
	for _, it := range items {
		require.NoError(t, store.Put(it))
	}
	return store
}

// Entries A(deps:[]), B(deps:[A]), C(deps:[B]) submitted as [C,A,B] must be
// refreshed as [A,B,C], all successfully.
func TestRefresher_ChainRefreshesInDependencyOrder(t *testing.T) {
	t.Parallel()

	rl := &recordingLoader{}
	a := item("s", "a")
	a.Loader = rl.loaderFor(a.Key, "fresh:a")
	b := item("s", "b", a.Key)
	b.Loader = rl.loaderFor(b.Key, "fresh:b")
	c := item("s", "c", b.Key)
	c.Loader = rl.loaderFor(c.Key, "fresh:c")

	store := seedStore(t, a, b, c)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{c, a, b}, store)
	require.NoError(t, err)

	want := []cache.ItemKey{a.Key, b.Key, c.Key}
	assert.Equal(t, want, res.Refreshed)
	assert.Empty(t, res.Failed)
	assert.Empty(t, res.Evicted)
	assert.True(t, res.Ok())
	assert.Equal(t, want, rl.calls, "loaders must run dependencies first")

	for _, key := range want {
		v, ok := store.GetValue(key.Scope, key.Key)
		require.True(t, ok)
		assert.Equal(t, "fresh:"+key.Key, v)
	}
}

// A refreshed entry keeps its dependency keys, counters, loader and params;
// only the value changes.
func TestRefresher_PreservesMetadata(t *testing.T) {
	t.Parallel()

	it := item("s", "a", k("s", "dep"))
	it.TicksToExpire = 10
	it.TicksToRefresh = 3
	it.LoaderParams = []any{"p"}

	store := seedStore(t, it)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{it}, store)
	require.NoError(t, err)
	require.True(t, res.Ok())

	stored, ok := store.Get("s", "a")
	require.True(t, ok)
	assert.Equal(t, "new:a", stored.Value)
	assert.Equal(t, []cache.ItemKey{k("s", "dep")}, stored.DependencyKeys)
	assert.Equal(t, int64(10), stored.TicksToExpire)
	assert.Equal(t, int64(3), stored.TicksToRefresh)
	assert.NotNil(t, stored.Loader)
	assert.Equal(t, []any{"p"}, stored.LoaderParams)
}

// A loader returning "no value" removes the entry from the store entirely.
func TestRefresher_TombstoneEvicts(t *testing.T) {
	t.Parallel()

	gone := &cache.Item[string]{
		Key:   k("s", "gone"),
		Value: "old",
		Loader: cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
			return "", false, nil
		}),
	}
	store := seedStore(t, gone)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{gone}, store)
	require.NoError(t, err)

	assert.Equal(t, []cache.ItemKey{gone.Key}, res.Evicted)
	assert.Empty(t, res.Refreshed)
	assert.True(t, res.Ok(), "a tombstone is a valid outcome, not a failure")
	assert.False(t, store.Has("s", "gone"), "entry must not be resurrected")
}

// An entry without a loader fails individually; the store copy stays as-is.
func TestRefresher_MissingLoader(t *testing.T) {
	t.Parallel()

	d := &cache.Item[string]{Key: k("s", "d"), Value: "old"}
	store := seedStore(t, d)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{d}, store)
	require.NoError(t, err, "a per-entry failure never aborts the batch")

	require.Len(t, res.Failed, 1)
	assert.Equal(t, d.Key, res.Failed[0].Key)
	assert.Equal(t, ReasonMissingLoader, res.Failed[0].Reason)
	assert.ErrorIs(t, res.Failed[0], ErrMissingLoader)

	v, ok := store.GetValue("s", "d")
	require.True(t, ok)
	assert.Equal(t, "old", v, "store entry must be unchanged")
}

// A failing loader does not prevent independent or dependent entries from
// being attempted; the dependent refreshes against the stale dependency.
func TestRefresher_LoaderFailureIsIsolated(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend down")
	x := &cache.Item[string]{
		Key:   k("s", "x"),
		Value: "stale",
		Loader: cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
			return "", false, boom
		}),
	}
	y := item("s", "y", x.Key) // depends on the failing entry
	z := item("s", "z")        // independent

	store := seedStore(t, x, y, z)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{x, y, z}, store)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, x.Key, res.Failed[0].Key)
	assert.Equal(t, ReasonLoaderFailure, res.Failed[0].Reason)
	assert.ErrorIs(t, res.Failed[0], boom)

	assert.ElementsMatch(t, []cache.ItemKey{y.Key, z.Key}, res.Refreshed)

	v, _ := store.GetValue("s", "x")
	assert.Equal(t, "stale", v, "failed entry keeps its stale value")
	v, _ = store.GetValue("s", "y")
	assert.Equal(t, "new:y", v, "dependent still refreshed (accepted degradation)")
}

// A panicking loader is converted into a per-entry failure.
func TestRefresher_LoaderPanicIsolated(t *testing.T) {
	t.Parallel()

	angry := &cache.Item[string]{
		Key: k("s", "angry"),
		Loader: cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
			panic("loader bug")
		}),
	}
	calm := item("s", "calm")

	store := seedStore(t)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{angry, calm}, store)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, ReasonLoaderFailure, res.Failed[0].Reason)
	assert.Contains(t, res.Failed[0].Err.Error(), "loader bug")
	assert.Equal(t, []cache.ItemKey{calm.Key}, res.Refreshed)
}

// A cycle fails the whole batch before any refresh: loaders never run and
// the store is untouched.
func TestRefresher_CycleAbortsBatch(t *testing.T) {
	t.Parallel()

	rl := &recordingLoader{}
	a := item("s", "a", k("s", "b"))
	a.Loader = rl.loaderFor(a.Key, "fresh:a")
	b := item("s", "b", k("s", "a"))
	b.Loader = rl.loaderFor(b.Key, "fresh:b")

	store := seedStore(t, a, b)
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{a, b}, store)
	require.Nil(t, res)

	var cyc *CycleError
	require.ErrorAs(t, err, &cyc)
	assert.ElementsMatch(t, []cache.ItemKey{a.Key, b.Key}, cyc.Keys)

	assert.Empty(t, rl.calls, "no loader may run under an invalid order")
	v, _ := store.GetValue("s", "a")
	assert.Equal(t, "old:a", v, "store must be untouched")
}

// A failed write-back discards the refreshed value and records the entry.
func TestRefresher_StoreWriteFailure(t *testing.T) {
	t.Parallel()

	it := item("s", "a")
	inner := seedStore(t, it)
	store := &failingPutStore{Store: inner, err: errors.New("disk full")}
	ref := New[string](Options[string]{})

	res, err := ref.RefreshBatch(context.Background(), []*cache.Item[string]{it}, store)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	assert.Equal(t, ReasonStoreWrite, res.Failed[0].Reason)
	assert.Empty(t, res.Refreshed)

	v, _ := inner.GetValue("s", "a")
	assert.Equal(t, "old:a", v, "no partial or dirty write")
}

// failingPutStore wraps a Store and fails every Put.
type failingPutStore struct {
	cache.Store[string]
	err error
}

func (f *failingPutStore) Put(*cache.Item[string]) error { return f.err }

func TestBatchResult_Err(t *testing.T) {
	t.Parallel()

	clean := &BatchResult{Refreshed: []cache.ItemKey{k("s", "a")}}
	assert.NoError(t, clean.Err())
	assert.True(t, clean.Ok())

	boom := errors.New("boom")
	dirty := &BatchResult{Failed: []Failure{
		{Key: k("s", "a"), Reason: ReasonLoaderFailure, Err: boom},
		{Key: k("s", "b"), Reason: ReasonMissingLoader, Err: ErrMissingLoader},
	}}
	err := dirty.Err()
	require.Error(t, err)
	assert.False(t, dirty.Ok())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrMissingLoader)
}

// Metrics hooks fire per outcome and per batch.
func TestRefresher_Metrics(t *testing.T) {
	t.Parallel()

	m := &capturedMetrics{}
	ok := item("s", "ok")
	noLoader := &cache.Item[string]{Key: k("s", "none"), Value: "old"}
	gone := &cache.Item[string]{
		Key: k("s", "gone"),
		Loader: cache.LoaderFunc[string](func(context.Context, ...any) (string, bool, error) {
			return "", false, nil
		}),
	}

	store := seedStore(t, ok, noLoader, gone)
	ref := New[string](Options[string]{Metrics: m})

	_, err := ref.RefreshBatch(context.Background(),
		[]*cache.Item[string]{ok, noLoader, gone}, store)
	require.NoError(t, err)

	assert.Equal(t, 1, m.refreshed)
	assert.Equal(t, 1, m.evicted)
	assert.Equal(t, []FailureReason{ReasonMissingLoader}, m.failed)
	assert.Equal(t, 1, m.batches)
	assert.Zero(t, m.cycles)

	// And the cycle counter on a poisoned batch.
	a := item("s", "a", k("s", "a"))
	_, err = ref.RefreshBatch(context.Background(), []*cache.Item[string]{a}, store)
	require.Error(t, err)
	assert.Equal(t, 1, m.cycles)
}

type capturedMetrics struct {
	mu        sync.Mutex
	refreshed int
	evicted   int
	failed    []FailureReason
	cycles    int
	batches   int
}

func (m *capturedMetrics) ItemRefreshed() { m.mu.Lock(); m.refreshed++; m.mu.Unlock() }
func (m *capturedMetrics) ItemEvicted()   { m.mu.Lock(); m.evicted++; m.mu.Unlock() }
func (m *capturedMetrics) ItemFailed(r FailureReason) {
	m.mu.Lock()
	m.failed = append(m.failed, r)
	m.mu.Unlock()
}
func (m *capturedMetrics) CycleDetected() { m.mu.Lock(); m.cycles++; m.mu.Unlock() }
func (m *capturedMetrics) BatchDone(_, _, _ int, _ time.Duration) {
	m.mu.Lock()
	m.batches++
	m.mu.Unlock()
}
