package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestKeysAreRedacted(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.SelfHeal("rt:prod:dashboard:stats:user:42", "gen_mismatch")

	out := buf.String()
	if strings.Contains(out, "user:42") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "reason=gen_mismatch") {
		t.Fatalf("missing reason: %s", out)
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{SelfHealEvery: 3, Redact: func(s string) string { return s }})
	for i := 0; i < 9; i++ {
		h.SelfHeal("k", "expired")
	}
	if n := strings.Count(buf.String(), "blogcas.self_heal"); n != 3 {
		t.Fatalf("logged %d lines, want 3", n)
	}
}

func TestLookupOffByDefault(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.Lookup("k", true)
	if buf.Len() != 0 {
		t.Fatalf("lookup should not log by default: %s", buf.String())
	}
}

func TestOutageLogsAtError(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})
	h.InvalidateOutage("post:1", errors.New("a"), errors.New("b"))
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "name=post:1") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.ProviderError("get", "k", errors.New("x"))
	h.GenBumpError("k", errors.New("x"))
}
