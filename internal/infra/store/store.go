// Package store defines the shared key-value store the routing core
// coordinates through, plus its Redis and in-memory implementations.
//
// All routing state (assignments, failure marks, health records, counters)
// lives here, not in process memory: the store is the only synchronization
// point between stateless router instances.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrPatternUnsupported is returned by DeleteMatching when the backend
// cannot delete by pattern. Callers treat it as a no-op with a warning.
var ErrPatternUnsupported = errors.New("store: pattern delete not supported")

// Store is the key-value capability consumed by the routing core.
// A zero ttl means no expiry.
type Store interface {
	// Get returns the value for key; the bool reports whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes key to value with an optional TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Increment atomically adds 1 to the counter at key, initializing it
	// to 1 with the given TTL when absent, and returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// DeleteMatching removes every key matching a glob pattern and returns
	// how many were removed. Backends without pattern support return
	// ErrPatternUnsupported.
	DeleteMatching(ctx context.Context, pattern string) (int, error)
}
