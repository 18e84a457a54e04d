package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New(nil)

	in := []byte("v1")
	if ok, err := p.Set(ctx, "k", in, 1, 0); !ok || err != nil {
		t.Fatalf("set ok=%v err=%v", ok, err)
	}
	in[0] = 'X' // caller mutation must not leak in
	b, ok, err := p.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(b, []byte("v1")) {
		t.Fatalf("get b=%q ok=%v err=%v", b, ok, err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatal("expected miss after Del")
	}
	if err := p.Del(ctx, "missing"); err != nil {
		t.Fatalf("del of missing key: %v", err)
	}
}

func TestTTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	p := New(clk)

	_, _ = p.Set(ctx, "k", []byte("v"), 1, time.Minute)
	clk.Add(59 * time.Second)
	if _, ok, _ := p.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before TTL")
	}
	clk.Add(time.Second)
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatal("expected miss at TTL")
	}
	if p.Len() != 0 {
		t.Fatalf("expired key not dropped, len=%d", p.Len())
	}
}
