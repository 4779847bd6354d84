// Package refresh implements a dependency-aware cache refresh engine on
// top of the cache.Store abstraction: given a batch of entries due for
// recomputation, it orders them so that no entry is refreshed before the
// dependencies it declares, then invokes each entry's loader and applies
// the outcome back to the store.
//
// Ordering
//
// The Sorter builds a directed graph restricted to the batch: an edge runs
// from a dependency to each entry declaring it, but only when the
// dependency is itself part of the batch: dependency keys referencing
// entries outside the batch are assumed already fresh and impose no
// constraint. The default TopologicalSorter is deterministic (ties broken
// by input order) and fails with *CycleError when the graph contains a
// cycle, including a self-dependency. A cycle aborts the whole batch
// before any store mutation; there is no partial refresh under an invalid
// order.
//
// Failure isolation
//
// Inside a valid order, each entry's outcome is independent: a missing
// loader, a loader error or panic, or a failed write-back is recorded in
// BatchResult.Failed and the batch moves on. Dependents of a failed entry
// still attempt their refresh against the stale dependency, a logged and
// accepted degradation rather than a silent one. A loader reporting "no
// value" removes the entry from the store (a valid terminal outcome, not a
// failure). No failure is ever swallowed: it appears either in
// BatchResult.Failed or as the batch-fatal *CycleError.
//
// Concurrency
//
// A batch is strictly sequential: refresh order is a correctness
// requirement. Runner relaxes this where it is safe, partitioning a batch
// into connected components of the dependency graph and refreshing the
// components concurrently while keeping each one sequential.
//
// Typical wiring
//
//	ref := refresh.New[string](refresh.Options[string]{})
//	due := store.Tick()
//	res, err := ref.RefreshBatch(ctx, due, store)
//	if err != nil {
//	    var cyc *refresh.CycleError
//	    if errors.As(err, &cyc) {
//	        // configuration error: fix the dependency declarations
//	    }
//	}
//	_ = res.Err() // aggregated per-entry failures, nil when clean
package refresh
