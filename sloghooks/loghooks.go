package sloghooks

import (
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/zeebo/xxh3"

	"github.com/unkn0wn-root/blogcas"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery uint64
	LookupEvery   uint64 // 0 = never log lookups
	// Optional key redactor. Defaults to a short xxh3 digest.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	lookupCtr   atomic.Uint64
}

var _ blogcas.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := xxh3.HashString128(k).Bytes()
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Lookup(storageKey string, hit bool) {
	if h.l == nil || h.opts.LookupEvery == 0 || !sample(h.opts.LookupEvery, &h.lookupCtr) {
		return
	}
	h.l.Debug("blogcas.lookup",
		"key", h.redact(storageKey),
		"hit", hit)
}

func (h *Hooks) SelfHeal(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("blogcas.self_heal",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) ProviderError(op, storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("blogcas.provider_error",
		"op", op,
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("blogcas.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) GenSnapshotError(count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("blogcas.gen_snapshot_error",
		"count", count,
		"err", err)
}

func (h *Hooks) GenBumpError(name string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("blogcas.gen_bump_error",
		"name", name,
		"err", err)
}

func (h *Hooks) InvalidateOutage(name string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("blogcas.invalidate_outage",
		"name", name,
		"bump_err", bumpErr,
		"del_err", delErr)
}
