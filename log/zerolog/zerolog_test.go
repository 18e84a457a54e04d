package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/unkn0wn-root/blogcas"
)

func TestWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, "debug")
	if err != nil {
		t.Fatal(err)
	}
	l.Error("cache_invalidate_failed", blogcas.Fields{"post_id": 7, "err": errors.New("boom")})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if line["message"] != "cache_invalidate_failed" || line["level"] != "error" {
		t.Fatalf("unexpected line: %v", line)
	}
	if line["post_id"] != float64(7) || line["err"] != "boom" {
		t.Fatalf("missing fields: %v", line)
	}
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWriter(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("post_created", nil)
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := NewWriter(&bytes.Buffer{}, "loud"); err == nil {
		t.Fatal("expected error")
	}
}
