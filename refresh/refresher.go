package refresh

import (
	"context"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/IvanBrykalov/depcache/cache"
)

var log = logging.Logger("refresh")

// Metrics exposes engine-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	ItemRefreshed()
	ItemEvicted()
	ItemFailed(reason FailureReason)
	CycleDetected()
	BatchDone(refreshed, evicted, failed int, dur time.Duration)
}

// NoopMetrics is the default do-nothing Metrics implementation.
type NoopMetrics struct{}

func (NoopMetrics) ItemRefreshed()                         {}
func (NoopMetrics) ItemEvicted()                           {}
func (NoopMetrics) ItemFailed(FailureReason)               {}
func (NoopMetrics) CycleDetected()                         {}
func (NoopMetrics) BatchDone(int, int, int, time.Duration) {}

var _ Metrics = NoopMetrics{}

// Options configures a Refresher. Zero values are safe:
//   - nil Sorter  => TopologicalSorter
//   - nil Metrics => NoopMetrics
type Options[V any] struct {
	// Sorter orders each batch before any entry is refreshed.
	Sorter Sorter[V]

	// Metrics receives per-item and per-batch signals.
	Metrics Metrics
}

// Refresher drives refresh batches: it asks the Sorter for a safe order,
// invokes each entry's loader, applies the outcome to the store, and
// isolates per-entry failures so one bad entry never aborts the batch.
type Refresher[V any] struct {
	sorter  Sorter[V]
	metrics Metrics
}

// New constructs a Refresher with the provided Options.
func New[V any](opt Options[V]) *Refresher[V] {
	if opt.Sorter == nil {
		opt.Sorter = NewTopologicalSorter[V]()
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &Refresher[V]{sorter: opt.Sorter, metrics: opt.Metrics}
}

// RefreshBatch refreshes the given entries against the store, dependencies
// first. The returned error is non-nil only for the batch-fatal sort
// failure (*CycleError), in which case the store has not been touched.
// Per-entry failures are collected in the result and never abort the batch;
// a batch runs to completion once started.
func (r *Refresher[V]) RefreshBatch(ctx context.Context, items []*cache.Item[V], store cache.Store[V]) (*BatchResult, error) {
	start := time.Now()

	sorted, err := r.sorter.SortTopologically(items, store)
	if err != nil {
		r.metrics.CycleDetected()
		return nil, err
	}

	res := &BatchResult{}
	for _, it := range sorted {
		r.refreshItem(ctx, it, store, res)
	}

	r.metrics.BatchDone(len(res.Refreshed), len(res.Evicted), len(res.Failed), time.Since(start))
	return res, nil
}

// refreshItem refreshes a single entry and records the outcome in res.
// A failure here is terminal for the entry within this batch; later
// entries still run even when they depend on it (a logged, accepted
// stale-dependency degradation).
func (r *Refresher[V]) refreshItem(ctx context.Context, it *cache.Item[V], store cache.Store[V], res *BatchResult) {
	if it.Loader == nil {
		r.fail(res, it.Key, ReasonMissingLoader, ErrMissingLoader)
		return
	}

	log.Debugw("refreshing", "item", it.Key)

	v, ok, err := r.load(ctx, it)
	if err != nil {
		r.fail(res, it.Key, ReasonLoaderFailure, err)
		return
	}

	if !ok {
		// Explicit tombstone: the recomputation says the value no longer
		// exists, so the entry leaves the store entirely.
		store.Remove(it.Key.Scope, it.Key.Key)
		res.Evicted = append(res.Evicted, it.Key)
		r.metrics.ItemEvicted()
		log.Debugw("evicted on refresh", "item", it.Key)
		return
	}

	// Write back under the same key, preserving dependency keys, tick
	// counters, loader, and params; only the value changes (the store
	// restamps the entry's freshness on Put).
	next := *it
	next.Value = v
	if err := store.Put(&next); err != nil {
		r.fail(res, it.Key, ReasonStoreWrite, err)
		return
	}
	res.Refreshed = append(res.Refreshed, it.Key)
	r.metrics.ItemRefreshed()
}

// load invokes the entry's loader, converting a panic into a plain error
// so a faulty loader cannot take the whole batch down.
func (r *Refresher[V]) load(ctx context.Context, it *cache.Item[V]) (v V, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			err = fmt.Errorf("loader panic: %v", p)
		}
	}()
	return it.Loader.Load(ctx, it.LoaderParams...)
}

// fail records a per-entry failure and logs it.
func (r *Refresher[V]) fail(res *BatchResult, k cache.ItemKey, reason FailureReason, err error) {
	res.Failed = append(res.Failed, Failure{Key: k, Reason: reason, Err: err})
	r.metrics.ItemFailed(reason)
	log.Errorw("refresh failed", "item", k, "reason", reason.String(), "err", err)
}
