package guard

import (
	"os"
	"time"

	"github.com/google/uuid"
)

type scopeKind int

const (
	kindClean scopeKind = iota
	kindSignal
	kindExit
	kindFailure
)

// Outcome records how one protected scope ended.
type Outcome struct {
	id         uuid.UUID
	createdAt  time.Time
	kind       scopeKind
	err        error
	signals    []os.Signal
	cleanupErr error
}

func (o *Outcome) Id() uuid.UUID {
	return o.id
}

func (o *Outcome) CreatedAt() time.Time {
	return o.createdAt
}

// Err is the failure the protected section exited with. Nil for clean and
// signal-interrupted scopes.
func (o *Outcome) Err() error {
	return o.err
}

// Signals lists every tracked signal received during the scope, in arrival
// order, duplicates included.
func (o *Outcome) Signals() []os.Signal {
	out := make([]os.Signal, len(o.signals))
	copy(out, o.signals)
	return out
}

// CleanupErrors lists the failures collected from cleanup actions, in the
// order the actions ran. Cleanup failures are diagnostic only; they never
// affect the result of Do.
func (o *Outcome) CleanupErrors() []error {
	return GetErrors(o.cleanupErr)
}

func (o *Outcome) IsClean() bool {
	return o.kind == kindClean
}

func (o *Outcome) IsSignal() bool {
	return o.kind == kindSignal
}

func (o *Outcome) IsExit() bool {
	return o.kind == kindExit
}

func (o *Outcome) IsFailure() bool {
	return o.kind == kindFailure
}

// Finally collapses an outcome to a final value via handlers. Exit requests
// are routed to onFailure together with ordinary failures.
func Finally[T any](o *Outcome,
	onClean func() T,
	onFailure func(err error) T,
	onSignal func(sigs []os.Signal) T) T {

	switch {
	case o.IsSignal():
		return onSignal(o.Signals())
	case o.IsFailure() || o.IsExit():
		return onFailure(o.err)
	default:
		return onClean()
	}
}
