// Package logging builds the process-wide [slog.Logger].
//
// Records go to stderr, or to a size-rotated file when a path is configured,
// and are mirrored through the otelslog bridge to the global OpenTelemetry
// log provider. The mirror is a no-op until [telemetry.Setup] installs a real
// provider.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// instrumentationName is the scope under which records reach the OTel log
// provider.
const instrumentationName = "github.com/njoerd114/toursync"

// Rotation limits for the log file.
const (
	maxSizeMB  = 10
	maxBackups = 3
	maxAgeDays = 28
)

// Options controls logger construction.
type Options struct {
	// Level is the minimum level written. Zero means Info.
	Level slog.Level

	// File, when non-empty, receives log output instead of stderr.
	File string

	// Stderr overrides the default stderr writer. Used in tests.
	Stderr io.Writer

	// DisableOTel skips the OpenTelemetry mirror.
	DisableOTel bool
}

// New returns a logger configured by opts and a closer that releases the log
// file. The closer is always non-nil.
func New(opts Options) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if opts.Stderr != nil {
		out = opts.Stderr
	}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		out, closer = lj, lj
	}

	var h slog.Handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: opts.Level})
	if !opts.DisableOTel {
		h = fanout{h, leveled{otelslog.NewHandler(instrumentationName), opts.Level}}
	}
	return slog.New(h), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// leveled drops records below min before they reach the wrapped handler.
type leveled struct {
	slog.Handler
	min slog.Level
}

func (l leveled) Enabled(ctx context.Context, lvl slog.Level) bool {
	return lvl >= l.min && l.Handler.Enabled(ctx, lvl)
}

func (l leveled) WithAttrs(attrs []slog.Attr) slog.Handler {
	return leveled{l.Handler.WithAttrs(attrs), l.min}
}

func (l leveled) WithGroup(name string) slog.Handler {
	return leveled{l.Handler.WithGroup(name), l.min}
}

// fanout dispatches every record to each handler that is enabled for it.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
