// Package prom exports the store's and the refresh engine's metrics to
// Prometheus. Both adapters follow the same shape: a constructor taking a
// Registerer (nil => prometheus.DefaultRegisterer), namespace/subsystem,
// and optional constant labels.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/depcache/cache"
	"github.com/IvanBrykalov/depcache/refresh"
)

// CacheAdapter implements cache.Metrics over Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type CacheAdapter struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	evicts *prometheus.CounterVec
}

// NewCacheAdapter constructs a Prometheus adapter for store metrics.
func NewCacheAdapter(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *CacheAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &CacheAdapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache hits",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache misses",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Cache evictions by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts)
	return a
}

// Hit increments the hit counter.
func (a *CacheAdapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *CacheAdapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *CacheAdapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(evictReason(r)).Inc()
}

// evictReason maps cache.EvictReason to a stable label value.
func evictReason(r cache.EvictReason) string {
	switch r {
	case cache.EvictExpired:
		return "expired"
	case cache.EvictScope:
		return "scope"
	default:
		return "explicit"
	}
}

// RegisterSize exposes the store's resident entry count as a gauge backed
// by the given length function (typically store.Len).
func RegisterSize(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels, lenFn func() int) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   ns,
		Subsystem:   sub,
		Name:        "size_entries",
		Help:        "Number of resident entries",
		ConstLabels: constLabels,
	}, func() float64 { return float64(lenFn()) }))
}

// RefreshAdapter implements refresh.Metrics over Prometheus collectors.
type RefreshAdapter struct {
	refreshed prometheus.Counter
	evicted   prometheus.Counter
	failures  *prometheus.CounterVec
	cycles    prometheus.Counter
	batches   prometheus.Counter
	duration  prometheus.Histogram
}

// NewRefreshAdapter constructs a Prometheus adapter for engine metrics.
func NewRefreshAdapter(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *RefreshAdapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &RefreshAdapter{
		refreshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "refreshed_total",
			Help:        "Entries refreshed with a new value",
			ConstLabels: constLabels,
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "evicted_total",
			Help:        "Entries tombstoned during refresh",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "failures_total",
				Help:        "Per-entry refresh failures by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "cycle_errors_total",
			Help:        "Batches rejected for dependency cycles",
			ConstLabels: constLabels,
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "batches_total",
			Help:        "Refresh batches completed",
			ConstLabels: constLabels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "batch_duration_seconds",
			Help:        "Wall time per refresh batch",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(a.refreshed, a.evicted, a.failures, a.cycles, a.batches, a.duration)
	return a
}

// ItemRefreshed counts one entry written back with a fresh value.
func (a *RefreshAdapter) ItemRefreshed() { a.refreshed.Inc() }

// ItemEvicted counts one entry tombstoned by its loader.
func (a *RefreshAdapter) ItemEvicted() { a.evicted.Inc() }

// ItemFailed counts one per-entry failure with a reason label.
func (a *RefreshAdapter) ItemFailed(r refresh.FailureReason) {
	a.failures.WithLabelValues(r.String()).Inc()
}

// CycleDetected counts one batch-fatal sort failure.
func (a *RefreshAdapter) CycleDetected() { a.cycles.Inc() }

// BatchDone counts a completed batch and observes its duration.
func (a *RefreshAdapter) BatchDone(refreshed, evicted, failed int, dur time.Duration) {
	a.batches.Inc()
	a.duration.Observe(dur.Seconds())
}

// Compile-time checks: adapters implement their Metrics interfaces.
var (
	_ cache.Metrics   = (*CacheAdapter)(nil)
	_ refresh.Metrics = (*RefreshAdapter)(nil)
)
