// Package asynchook moves blogcas.Hooks calls off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := blogcas.New(blogcas.Options{
//	    Namespace: "blog:prod",
//	    Provider:  provider,
//	    Hooks:     hooks,
//	})
package asynchook

import (
	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/async"
)

type Hooks struct {
	inner blogcas.Hooks
	q     *async.Queue
}

var _ blogcas.Hooks = (*Hooks)(nil)

func New(inner blogcas.Hooks, workers, qlen int) *Hooks {
	return &Hooks{inner: inner, q: async.New(workers, qlen)}
}

// Close flushes queued events.
func (h *Hooks) Close() { h.q.Close() }

// Dropped reports events lost to a full queue.
func (h *Hooks) Dropped() uint64 { return h.q.Dropped() }

func (h *Hooks) Lookup(k string, hit bool)        { h.q.Submit(func() { h.inner.Lookup(k, hit) }) }
func (h *Hooks) SelfHeal(k, r string)             { h.q.Submit(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ProviderSetRejected(k string)     { h.q.Submit(func() { h.inner.ProviderSetRejected(k) }) }
func (h *Hooks) GenBumpError(n string, err error) { h.q.Submit(func() { h.inner.GenBumpError(n, err) }) }
func (h *Hooks) ProviderError(op, k string, err error) {
	h.q.Submit(func() { h.inner.ProviderError(op, k, err) })
}
func (h *Hooks) GenSnapshotError(n int, err error) {
	h.q.Submit(func() { h.inner.GenSnapshotError(n, err) })
}
func (h *Hooks) InvalidateOutage(n string, be, de error) {
	h.q.Submit(func() { h.inner.InvalidateOutage(n, be, de) })
}
