package genstore

import (
	"context"
	"time"
)

// GenStore holds a monotonically increasing generation per name. The cache
// stamps every entry with the generations it was computed under and treats
// any later bump as invalidation.
//
// Use Local for a single process, Redis when several replicas share a
// cache provider or generations must survive restarts.
type GenStore interface {
	// Snapshot returns the current generation; missing => 0.
	Snapshot(ctx context.Context, name string) (uint64, error)
	// SnapshotMany returns gens for many names; missing => 0.
	SnapshotMany(ctx context.Context, names []string) (map[string]uint64, error)
	// Bump atomically increments and returns the new generation.
	Bump(ctx context.Context, name string) (uint64, error)
	// Cleanup prunes entries not bumped within retention (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
