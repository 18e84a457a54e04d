package zerolog

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/blogcas"
)

var _ blogcas.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

// New writes JSON lines to stderr at level.
func New(level string) (Logger, error) {
	return NewWriter(os.Stderr, level)
}

func NewWriter(w io.Writer, level string) (Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zerolog.ParseLevel(level); err != nil {
			return Logger{}, err
		}
	}
	return Logger{L: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}, nil
}

func (z Logger) Debug(msg string, f blogcas.Fields) { with(z.L.Debug(), f).Msg(msg) }
func (z Logger) Info(msg string, f blogcas.Fields)  { with(z.L.Info(), f).Msg(msg) }
func (z Logger) Warn(msg string, f blogcas.Fields)  { with(z.L.Warn(), f).Msg(msg) }
func (z Logger) Error(msg string, f blogcas.Fields) { with(z.L.Error(), f).Msg(msg) }

func with(e *zerolog.Event, f blogcas.Fields) *zerolog.Event {
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	return e
}
