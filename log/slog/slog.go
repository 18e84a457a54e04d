package slog

import (
	"context"
	stdslog "log/slog"
	"os"
	"strings"

	"github.com/unkn0wn-root/blogcas"
)

var _ blogcas.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New returns a JSON slog logger on stderr at level.
func New(level string) Logger {
	var lvl stdslog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = stdslog.LevelDebug
	case "warn", "warning":
		lvl = stdslog.LevelWarn
	case "error":
		lvl = stdslog.LevelError
	default:
		lvl = stdslog.LevelInfo
	}
	return Logger{L: stdslog.New(stdslog.NewJSONHandler(os.Stderr, &stdslog.HandlerOptions{Level: lvl}))}
}

func (s Logger) Debug(msg string, f blogcas.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelDebug, msg, attrs(f)...)
}
func (s Logger) Info(msg string, f blogcas.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelInfo, msg, attrs(f)...)
}
func (s Logger) Warn(msg string, f blogcas.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelWarn, msg, attrs(f)...)
}
func (s Logger) Error(msg string, f blogcas.Fields) {
	s.L.LogAttrs(context.Background(), stdslog.LevelError, msg, attrs(f)...)
}

func attrs(f blogcas.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		out = append(out, stdslog.Any(k, v))
	}
	return out
}
