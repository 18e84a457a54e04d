// Package memory is a map-backed provider with exact per-key TTLs.
// It has no eviction and suits tests and single-node development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	pr "github.com/unkn0wn-root/blogcas/provider"
)

type item struct {
	b   []byte
	exp time.Time // zero = no expiry
}

type Provider struct {
	mu  sync.RWMutex
	m   map[string]item
	clk clock.Clock
}

var _ pr.Provider = (*Provider)(nil)

// New returns an empty provider. A nil clk means wall-clock time.
func New(clk clock.Clock) *Provider {
	if clk == nil {
		clk = clock.New()
	}
	return &Provider{m: make(map[string]item), clk: clk}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.RLock()
	it, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !it.exp.IsZero() && !p.clk.Now().Before(it.exp) {
		p.mu.Lock()
		if cur, ok := p.m[key]; ok && cur.exp.Equal(it.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return nil, false, nil
	}
	return it.b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	it := item{b: append([]byte(nil), value...)}
	if ttl > 0 {
		it.exp = p.clk.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = it
	p.mu.Unlock()
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (p *Provider) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.m)
}

func (p *Provider) Close(context.Context) error { return nil }
