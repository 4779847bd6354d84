package refresh

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/depcache/cache"
)

// Runner refreshes independent parts of a batch concurrently.
//
// Entries connected through in-batch dependency edges form a component and
// are always processed strictly sequentially in sorted order; components
// share no keys and no edges, so they may run in parallel without breaking
// any freshness constraint. Within one call the store only ever sees
// per-key writes from a single goroutine.
type Runner[V any] struct {
	refresher   *Refresher[V]
	parallelism int
}

// NewRunner wraps a Refresher for concurrent refreshing.
// parallelism <= 0 defaults to GOMAXPROCS.
func NewRunner[V any](r *Refresher[V], parallelism int) *Runner[V] {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Runner[V]{refresher: r, parallelism: parallelism}
}

// Refresh partitions the batch into independent components and refreshes
// them concurrently, merging the per-component outcomes into one result.
//
// All components are sorted up front: a cycle anywhere fails the whole call
// with *CycleError before a single entry is refreshed, matching the
// sequential RefreshBatch contract.
func (rn *Runner[V]) Refresh(ctx context.Context, items []*cache.Item[V], store cache.Store[V]) (*BatchResult, error) {
	batch, index := dedupItems(items)
	comps := partition(batch, index)

	orders := make([][]*cache.Item[V], len(comps))
	for i, comp := range comps {
		sorted, err := rn.refresher.sorter.SortTopologically(comp, store)
		if err != nil {
			rn.refresher.metrics.CycleDetected()
			return nil, err
		}
		orders[i] = sorted
	}

	var mu sync.Mutex
	res := &BatchResult{}

	g := new(errgroup.Group)
	g.SetLimit(rn.parallelism)
	for _, ordered := range orders {
		g.Go(func() error {
			part := &BatchResult{}
			for _, it := range ordered {
				rn.refresher.refreshItem(ctx, it, store, part)
			}
			mu.Lock()
			res.merge(part)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; per-entry failures live in the result.
	_ = g.Wait()
	return res, nil
}

// partition groups the deduplicated batch into connected components of the
// dependency graph (union-find over in-batch edges, treating edges as
// undirected). Out-of-batch dependency keys connect nothing. Components are
// ordered by their first member's input position, members keep input order.
func partition[V any](batch []*cache.Item[V], index map[cache.ItemKey]int) [][]*cache.Item[V] {
	parent := make([]int, len(batch))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]] // path halving
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for i, it := range batch {
		for _, dep := range it.DependencyKeys {
			if j, ok := index[dep]; ok {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int]int) // root -> component position
	var comps [][]*cache.Item[V]
	for i, it := range batch {
		root := find(i)
		at, ok := byRoot[root]
		if !ok {
			at = len(comps)
			byRoot[root] = at
			comps = append(comps, nil)
		}
		comps[at] = append(comps[at], it)
	}
	return comps
}
