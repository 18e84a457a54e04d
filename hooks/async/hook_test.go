package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/blogcas"
)

type countingHooks struct {
	blogcas.NopHooks
	mu    sync.Mutex
	heals []string
}

func (c *countingHooks) SelfHeal(k, reason string) {
	c.mu.Lock()
	c.heals = append(c.heals, k+"/"+reason)
	c.mu.Unlock()
}

func TestForwardsAfterClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)
	h.SelfHeal("a", "expired")
	h.SelfHeal("b", "corrupt")
	h.Lookup("a", true) // NopHooks path
	h.Close()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.heals) != 2 {
		t.Fatalf("forwarded %v", inner.heals)
	}
}

func TestDropsAfterClose(t *testing.T) {
	h := New(blogcas.NopHooks{}, 1, 1)
	h.Close()
	h.SelfHeal("x", "expired")
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}
