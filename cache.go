package blogcas

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"

	gen "github.com/unkn0wn-root/blogcas/genstore"
	"github.com/unkn0wn-root/blogcas/internal/wire"
	pr "github.com/unkn0wn-root/blogcas/provider"
)

// stamp is the pair of generations an entry was computed under.
type stamp struct {
	key   uint64
	scope uint64
}

func (s stamp) String() string {
	return strconv.FormatUint(s.key, 10) + "." + strconv.FormatUint(s.scope, 10)
}

type cache struct {
	ns       string
	provider pr.Provider
	gen      gen.GenStore
	log      Logger
	hooks    Hooks
	clk      clock.Clock
	enabled  bool

	defaultTTL time.Duration
	setCost    SetCostFunc

	singleFlight bool
	sf           singleflight.Group

	scopes scopeIndex
}

func newCache(opts Options) (*cache, error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Namespace == "" {
		return nil, ErrNoNamespace
	}

	c := &cache{
		ns:           opts.Namespace,
		provider:     opts.Provider,
		enabled:      !opts.Disabled,
		singleFlight: opts.SingleFlight,
		scopes:       scopeIndex{m: make(map[string]map[string]struct{})},
	}

	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.clk = coalesce[clock.Clock](opts.Clock, clock.New())
	c.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		c.setCost = opts.ComputeSetCost
	} else {
		c.setCost = func(_ string, frame []byte) int64 { return int64(len(frame)) }
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = gen.NewLocal(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
			c.clk,
		)
	}
	return c, nil
}

func (c *cache) Enabled() bool { return c.enabled }

func (c *cache) Close(ctx context.Context) error {
	// gen store first (best effort)
	if c.gen != nil {
		_ = c.gen.Close(ctx)
	}
	return c.provider.Close(ctx)
}

func (c *cache) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, fn ComputeFunc) ([]byte, error) {
	if !c.enabled {
		return fn(ctx)
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	sk := c.entryKey(key.Name)

	if raw, ok := c.read(ctx, key, sk); ok {
		c.hooks.Lookup(sk, true)
		return raw, nil
	}
	c.hooks.Lookup(sk, false)

	obs, err := c.snapshot(ctx, key)
	if err != nil {
		// without a generation we cannot guard the write-back
		return fn(ctx)
	}
	if !c.singleFlight {
		return c.fill(ctx, key, sk, obs, ttl, fn)
	}

	// the stamp is part of the flight key so a read that starts after an
	// invalidation never joins a computation that started before it
	v, err, _ := c.sf.Do(sk+"@"+obs.String(), func() (any, error) {
		return c.fill(ctx, key, sk, obs, ttl, fn)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *cache) fill(ctx context.Context, key Key, sk string, obs stamp, ttl time.Duration, fn ComputeFunc) ([]byte, error) {
	raw, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, sk, obs, ttl, raw)
	return raw, nil
}

// read returns the payload of a live entry. Corrupt, expired and stale
// entries are deleted.
func (c *cache) read(ctx context.Context, key Key, sk string) ([]byte, bool) {
	raw, ok, err := c.provider.Get(ctx, sk)
	if err != nil {
		c.providerError(ctx, "get", sk, err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	e, err := wire.Decode(raw)
	if err != nil {
		c.heal(ctx, key, sk, "corrupt")
		return nil, false
	}
	if e.ExpiresAt != 0 && c.clk.Now().UnixNano() >= e.ExpiresAt {
		c.heal(ctx, key, sk, "expired")
		return nil, false
	}

	cur, err := c.snapshot(ctx, key)
	if err != nil {
		return nil, false
	}
	if e.KeyGen != cur.key || e.ScopeGen != cur.scope {
		c.heal(ctx, key, sk, "gen_mismatch")
		return nil, false
	}
	return e.Payload, true
}

// store writes raw iff the generations observed before computing are still
// current.
func (c *cache) store(ctx context.Context, key Key, sk string, obs stamp, ttl time.Duration, raw []byte) {
	cur, err := c.snapshot(ctx, key)
	if err != nil {
		return
	}
	if cur != obs {
		c.log.Debug("cache_store_skipped", Fields{"key": key.Name, "observed": obs.String(), "current": cur.String()})
		return
	}

	frame := wire.Encode(wire.Entry{
		KeyGen:    obs.key,
		ScopeGen:  obs.scope,
		ExpiresAt: c.clk.Now().Add(ttl).UnixNano(),
		Payload:   raw,
	})
	ok, err := c.provider.Set(ctx, sk, frame, c.setCost(sk, frame), ttl)
	if err != nil {
		c.providerError(ctx, "set", sk, err)
		return
	}
	if !ok {
		c.hooks.ProviderSetRejected(sk)
		c.log.Debug("cache_set_rejected", Fields{"key": key.Name})
		return
	}
	if key.Scope != "" {
		c.scopes.add(key.Scope, sk)
	}
}

func (c *cache) Invalidate(ctx context.Context, name string) error {
	if !c.enabled {
		return nil
	}
	sk := c.entryKey(name)

	newGen, bumpErr := c.gen.Bump(ctx, name)
	if bumpErr != nil {
		c.hooks.GenBumpError(name, bumpErr)
		c.log.Error("cache_gen_bump_failed", Fields{"name": name, "err": bumpErr})
	}

	delErr := c.provider.Del(ctx, sk)
	for _, member := range c.scopes.take(name) {
		if err := c.provider.Del(ctx, member); err != nil && delErr == nil {
			delErr = err
		}
	}
	if delErr != nil {
		c.providerError(ctx, "del", sk, delErr)
	}

	if bumpErr != nil && delErr != nil {
		c.hooks.InvalidateOutage(name, bumpErr, delErr)
		return &InvalidateError{Name: name, BumpErr: bumpErr, DelErr: delErr}
	}
	c.log.Debug("cache_invalidated", Fields{"name": name, "gen": newGen})
	return nil
}

func (c *cache) InvalidateSet(ctx context.Context, names []string) error {
	var errs []error
	for _, n := range names {
		if err := c.Invalidate(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *cache) snapshot(ctx context.Context, key Key) (stamp, error) {
	if key.Scope == "" {
		g, err := c.gen.Snapshot(ctx, key.Name)
		if err != nil {
			c.hooks.GenSnapshotError(1, err)
			c.log.Warn("cache_gen_snapshot_failed", Fields{"name": key.Name, "err": err})
			return stamp{}, err
		}
		return stamp{key: g}, nil
	}
	m, err := c.gen.SnapshotMany(ctx, []string{key.Name, key.Scope})
	if err != nil {
		c.hooks.GenSnapshotError(2, err)
		c.log.Warn("cache_gen_snapshot_failed", Fields{"name": key.Name, "scope": key.Scope, "err": err})
		return stamp{}, err
	}
	return stamp{key: m[key.Name], scope: m[key.Scope]}, nil
}

func (c *cache) heal(ctx context.Context, key Key, sk, reason string) {
	c.hooks.SelfHeal(sk, reason)
	if err := c.provider.Del(ctx, sk); err != nil {
		c.providerError(ctx, "del", sk, err)
	}
	if key.Scope != "" {
		c.scopes.remove(key.Scope, sk)
	}
}

// providerError reports a cache backend failure. Callers degrade to a miss.
func (c *cache) providerError(ctx context.Context, op, sk string, err error) {
	if ctx.Err() != nil {
		// the request went away; not a backend problem
		return
	}
	c.hooks.ProviderError(op, sk, err)
	c.log.Warn("cache_unavailable", Fields{"op": op, "key": sk, "err": err})
}

func (c *cache) entryKey(name string) string {
	return "rt:" + c.ns + ":" + name
}

// scopeIndex remembers which entries this process stored under each scope so
// that invalidating the scope deletes them eagerly. Entries written by other
// replicas are caught by the scope generation on read.
type scopeIndex struct {
	mu sync.Mutex
	m  map[string]map[string]struct{}
}

func (s *scopeIndex) add(scope, sk string) {
	s.mu.Lock()
	set := s.m[scope]
	if set == nil {
		set = make(map[string]struct{})
		s.m[scope] = set
	}
	set[sk] = struct{}{}
	s.mu.Unlock()
}

func (s *scopeIndex) remove(scope, sk string) {
	s.mu.Lock()
	if set := s.m[scope]; set != nil {
		delete(set, sk)
		if len(set) == 0 {
			delete(s.m, scope)
		}
	}
	s.mu.Unlock()
}

func (s *scopeIndex) take(scope string) []string {
	s.mu.Lock()
	set := s.m[scope]
	delete(s.m, scope)
	s.mu.Unlock()

	out := make([]string, 0, len(set))
	for sk := range set {
		out = append(out, sk)
	}
	return out
}

func (c *cache) decodeFailed(key Key, err error) {
	sk := c.entryKey(key.Name)
	c.hooks.SelfHeal(sk, "value_decode")
	c.log.Warn("cache_value_decode_failed", Fields{"key": key.Name, "err": err})
}

func (c *cache) invalidateFailed(name string, err error) {
	c.log.Error("cache_invalidate_failed", Fields{"name": name, "err": err})
}
