package blogcas

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	gen "github.com/unkn0wn-root/blogcas/genstore"
	pr "github.com/unkn0wn-root/blogcas/provider"
)

// SetCostFunc returns the admission cost of a framed entry.
type SetCostFunc func(storageKey string, frame []byte) int64

// ComputeFunc produces the value for a missing key. It must only read
// durable state; it may run more than once for the same key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Key names a cache entry. Scope, when set, groups entries that are
// invalidated together (e.g. every page of a filtered listing).
type Key struct {
	Name  string
	Scope string
}

// K returns an unscoped key.
func K(name string) Key { return Key{Name: name} }

// Scoped returns a key that is also invalidated when scope is.
func Scoped(scope, name string) Key { return Key{Name: name, Scope: scope} }

// Cache is the byte-level read-through cache. Use Loader for typed values.
type Cache interface {
	Enabled() bool
	Close(context.Context) error

	// GetOrCompute returns the live entry for key, or runs fn, stores its
	// result for ttl and returns it. Errors from fn are returned unchanged and
	// never cached. Provider and GenStore failures degrade to a miss.
	// The returned slice may be shared with concurrent callers; treat it as
	// read-only.
	GetOrCompute(ctx context.Context, key Key, ttl time.Duration, fn ComputeFunc) ([]byte, error)

	// Invalidate removes the entry called name and every entry scoped under
	// name. It is synchronous and idempotent.
	Invalidate(ctx context.Context, name string) error

	// InvalidateSet invalidates each name. A failure on one name does not
	// stop the others; the returned error joins all failures.
	InvalidateSet(ctx context.Context, names []string) error
}

// Options tune the cache. Namespace and Provider are required.
type Options struct {
	Namespace string // isolates keys, e.g. "blog:prod"
	Provider  pr.Provider

	GenStore        gen.GenStore  // nil => in-process genstore.Local
	Logger          Logger        // nil => NopLogger
	Hooks           Hooks         // nil => NopHooks
	Clock           clock.Clock   // nil => wall clock
	DefaultTTL      time.Duration // used when a call passes ttl <= 0; 0 => 10m
	CleanupInterval time.Duration // local genstore sweep; 0 => 1h
	GenRetention    time.Duration // local genstore retention; 0 => 30d
	SingleFlight    bool          // collapse concurrent misses for the same key and generation
	Disabled        bool          // every call computes; nothing is stored
	ComputeSetCost  SetCostFunc   // nil => frame length in bytes
}

func New(opts Options) (Cache, error) {
	return newCache(opts)
}
