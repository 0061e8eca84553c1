// Package logging wires a single zerolog.Logger through context.Context,
// standing in for the ambient pkg/logger calls (InfoC, InfoCF, SetLevel)
// the picoclaw gateway wires at startup, backed by a real structured
// logging library instead of an uncopied internal package.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. Interactive (TTY) runs get a human-readable
// console writer; daemon/non-interactive runs emit raw JSON lines suitable
// for log aggregation, mirroring the interactive/daemon split in the
// teacher's gateway startup path.
func New(level zerolog.Level, interactive bool) zerolog.Logger {
	var w io.Writer = os.Stderr
	if interactive {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the owning subsystem, the
// Go analogue of the teacher's per-call component argument to InfoC.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

type ctxKey struct{}

// WithContext stores a logger on ctx for retrieval via log.Ctx-style access.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger stashed by WithContext, falling back to
// a disabled logger so call sites never need a nil check.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}
