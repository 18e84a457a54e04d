package blogcas

import (
	"errors"
	"testing"
)

type countHooks struct {
	NopHooks
	lookups, heals, outages int
}

func (c *countHooks) Lookup(string, bool)                   { c.lookups++ }
func (c *countHooks) SelfHeal(string, string)               { c.heals++ }
func (c *countHooks) InvalidateOutage(string, error, error) { c.outages++ }

func TestMultiHooksFanOut(t *testing.T) {
	a, b := &countHooks{}, &countHooks{}
	m := MultiHooks{a, b, NopHooks{}}
	m.Lookup("k", true)
	m.Lookup("k", false)
	m.SelfHeal("k", "expired")
	m.InvalidateOutage("k", errors.New("bump"), errors.New("del"))
	m.ProviderError("get", "k", errors.New("down"))

	for i, h := range []*countHooks{a, b} {
		if h.lookups != 2 || h.heals != 1 || h.outages != 1 {
			t.Fatalf("hook %d: %+v", i, *h)
		}
	}
}
