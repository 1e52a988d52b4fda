package guard

import (
	"log/slog"
	"os"
)

type Option func(*Guard)

// WithCleanup pre-loads the guard with its first cleanup action.
func WithCleanup(fn func() error) Option {
	return func(g *Guard) {
		g.Register(fn)
	}
}

// WithLogger routes the guard's diagnostic records to l instead of
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) {
		g.log = l
	}
}

// WithSignals replaces the process-wide catalog with an explicit signal set
// for this guard. Intended for embedders with their own signal policy and
// for tests.
func WithSignals(sigs ...os.Signal) Option {
	return func(g *Guard) {
		g.watched = make([]os.Signal, len(sigs))
		copy(g.watched, sigs)
	}
}
