// Package util contains internal helpers (hashing, sharding, padding).
//revive:disable:var-naming  // allow 'util' as an internal helpers package name
package util

import (
	"github.com/cespare/xxhash/v2"
)

// keySep separates scope and key in the hashed byte stream so that
// ("ab","c") and ("a","bc") never land on the same digest by concatenation.
var keySep = []byte{0}

// HashScopedKey hashes a (scope, key) pair with xxhash64 for shard selection.
// Not cryptographic. Shard assignment is never persisted, so the hash only
// needs to be stable within a single process run.
func HashScopedKey(scope, key string) uint64 {
	var d xxhash.Digest
	d.Reset()
	_, _ = d.WriteString(scope)
	_, _ = d.Write(keySep)
	_, _ = d.WriteString(key)
	return d.Sum64()
}
