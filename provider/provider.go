// Package provider defines the byte store behind the read-through cache.
//
// Implementations must be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for that key. The cache frames every value
// and treats anything it cannot parse as corruption, so foreign writes under
// the cache's key prefix are deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost or TTL if unsupported;
	// the cache enforces its own deadline on read.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
