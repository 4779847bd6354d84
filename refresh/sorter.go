package refresh

import (
	"github.com/IvanBrykalov/depcache/cache"
)

// Sorter produces a safe refresh order for a batch of items: every
// dependency present in the batch precedes the items that declare it.
type Sorter[V any] interface {
	// SortTopologically orders items so dependencies come before their
	// dependents. Dependency keys that reference entries outside the batch
	// impose no ordering constraint (they are assumed already fresh).
	// Fails with *CycleError when no such order exists; it never returns a
	// partial order. The store handle is used only to report dangling
	// dependency keys (present neither in the batch nor in the store).
	SortTopologically(items []*cache.Item[V], store cache.Store[V]) ([]*cache.Item[V], error)
}

// TopologicalSorter is the default Sorter. Its output is deterministic:
// ties between ready items are broken by input order, so identical input
// always yields identical output.
type TopologicalSorter[V any] struct{}

// NewTopologicalSorter returns the default dependency sorter.
func NewTopologicalSorter[V any]() *TopologicalSorter[V] {
	return &TopologicalSorter[V]{}
}

// SortTopologically implements Sorter via Kahn's algorithm with stable
// zero-in-degree selection.
func (ts *TopologicalSorter[V]) SortTopologically(items []*cache.Item[V], store cache.Store[V]) ([]*cache.Item[V], error) {
	batch, index := dedupItems(items)
	n := len(batch)

	// Adjacency restricted to the batch: an edge dependency -> dependent
	// for every declared dependency key that is itself being refreshed.
	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i, it := range batch {
		seen := make(map[cache.ItemKey]struct{}, len(it.DependencyKeys))
		for _, dep := range it.DependencyKeys {
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}

			j, inBatch := index[dep]
			if !inBatch {
				// Out-of-batch dependencies are assumed already fresh.
				// Flag the ones the store has never heard of; a dangling
				// key usually means a stale or mistyped declaration.
				if store != nil && !store.Has(dep.Scope, dep.Key) {
					log.Debugw("dangling dependency key",
						"item", it.Key, "dependency", dep)
				}
				continue
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	// Repeatedly pick the first unvisited zero-in-degree item, in input
	// order. If none is left while unvisited items remain, those items sit
	// on or downstream of a cycle.
	sorted := make([]*cache.Item[V], 0, n)
	visited := make([]bool, n)
	for len(sorted) < n {
		picked := -1
		for i := 0; i < n; i++ {
			if !visited[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			cyc := &CycleError{}
			for i := 0; i < n; i++ {
				if !visited[i] {
					cyc.Keys = append(cyc.Keys, batch[i].Key)
				}
			}
			return nil, cyc
		}
		visited[picked] = true
		sorted = append(sorted, batch[picked])
		for _, d := range dependents[picked] {
			indegree[d]--
		}
	}
	return sorted, nil
}

// dedupItems drops nil entries and collapses duplicate keys, keeping each
// key's position from its first occurrence while the last occurrence's
// item wins. Returns the deduplicated batch plus a key -> position index.
func dedupItems[V any](items []*cache.Item[V]) ([]*cache.Item[V], map[cache.ItemKey]int) {
	batch := make([]*cache.Item[V], 0, len(items))
	index := make(map[cache.ItemKey]int, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		if at, ok := index[it.Key]; ok {
			batch[at] = it // last occurrence wins
			continue
		}
		index[it.Key] = len(batch)
		batch = append(batch, it)
	}
	return batch, index
}
