package refresh

import (
	"github.com/hashicorp/go-multierror"

	"github.com/IvanBrykalov/depcache/cache"
)

// BatchResult reports the outcome of one refresh batch.
// Every submitted entry lands in exactly one bucket:
//   - Refreshed: the loader produced a new value, written back to the store
//   - Evicted: the loader reported "no value"; the entry was removed
//   - Failed: the entry's refresh failed and was skipped (cause attached)
//
// Slices keep the refresh processing order.
type BatchResult struct {
	Refreshed []cache.ItemKey
	Evicted   []cache.ItemKey
	Failed    []Failure
}

// Ok reports whether every entry in the batch refreshed (or tombstoned)
// cleanly.
func (r *BatchResult) Ok() bool { return len(r.Failed) == 0 }

// Err aggregates all per-entry failures into one error, or nil when the
// batch was clean. Callers that want all-or-nothing semantics can surface
// this; the engine itself never escalates per-entry failures.
func (r *BatchResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var errs *multierror.Error
	for _, f := range r.Failed {
		errs = multierror.Append(errs, f)
	}
	return errs.ErrorOrNil()
}

// merge folds other into r, preserving each slice's relative order.
func (r *BatchResult) merge(other *BatchResult) {
	r.Refreshed = append(r.Refreshed, other.Refreshed...)
	r.Evicted = append(r.Evicted, other.Evicted...)
	r.Failed = append(r.Failed, other.Failed...)
}
