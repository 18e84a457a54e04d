package slog

import (
	"bytes"
	stdslog "log/slog"
	"strings"
	"testing"

	"github.com/unkn0wn-root/blogcas"
)

func TestWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))}
	l.Warn("post_update_conflict", blogcas.Fields{"post_id": 3})
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "post_id=3") {
		t.Fatalf("unexpected output: %s", out)
	}
}
