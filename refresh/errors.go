package refresh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IvanBrykalov/depcache/cache"
)

// ErrMissingLoader marks an entry submitted for refresh without a Loader.
// This is a per-entry configuration error, never a batch-aborting fault.
var ErrMissingLoader = errors.New("refresh: item has no loader")

// FailureReason classifies why a single entry's refresh failed.
type FailureReason int

const (
	// ReasonMissingLoader — the entry carries no Loader.
	ReasonMissingLoader FailureReason = iota
	// ReasonLoaderFailure — the Loader returned an error (or panicked).
	ReasonLoaderFailure
	// ReasonStoreWrite — the refreshed value could not be written back;
	// it is discarded, the stored entry stays as it was.
	ReasonStoreWrite
)

// String returns a stable label for the reason.
func (r FailureReason) String() string {
	switch r {
	case ReasonMissingLoader:
		return "missing_loader"
	case ReasonLoaderFailure:
		return "loader_failure"
	case ReasonStoreWrite:
		return "store_write"
	default:
		return "unknown"
	}
}

// Failure records one entry's refresh failure within a batch.
type Failure struct {
	Key    cache.ItemKey
	Reason FailureReason
	Err    error
}

// Error implements error.
func (f Failure) Error() string {
	return fmt.Sprintf("refresh %s failed (%s): %v", f.Key, f.Reason, f.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (f Failure) Unwrap() error { return f.Err }

// CycleError is the batch-fatal sort failure: the dependency graph over the
// submitted entries contains a cycle, so no safe refresh order exists.
// Keys lists the entries still unordered when the sort got stuck: the
// cycle's participants, plus anything downstream of them, in input order.
type CycleError struct {
	Keys []cache.ItemKey
}

// Error implements error.
func (e *CycleError) Error() string {
	parts := make([]string, len(e.Keys))
	for i, k := range e.Keys {
		parts[i] = k.String()
	}
	return fmt.Sprintf("refresh: dependency cycle among %d items: %s",
		len(e.Keys), strings.Join(parts, ", "))
}
