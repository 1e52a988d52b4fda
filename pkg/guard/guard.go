package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	catalogOnce sync.Once
	catalog     []os.Signal
)

// Signals returns a copy of the process-wide interceptable-signal catalog.
// The catalog is evaluated once per process: always the standard terminate
// signal, plus hangup, quit and the resource-limit signals on platforms
// that have them, minus any signal whose disposition was already "ignore"
// when the catalog was first built.
func Signals() []os.Signal {
	catalogOnce.Do(func() {
		catalog = platformSignals()
	})
	out := make([]os.Signal, len(catalog))
	copy(out, catalog)
	return out
}

// Guard coordinates cleanup for one protected scope.
type Guard struct {
	id        uuid.UUID
	createdAt time.Time
	log       *slog.Logger
	watched   []os.Signal
	raise     func(sig os.Signal) error

	used     atomic.Bool
	bodyDone atomic.Bool
	sigCh    chan os.Signal

	mu          sync.Mutex
	actions     []func() error
	pending     []os.Signal
	interrupted bool
	outcome     *Outcome
}

func New(opts ...Option) *Guard {
	g := &Guard{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		log:       slog.Default(),
		watched:   Signals(),
		raise:     raiseSignal,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register pushes a cleanup action onto the guard's stack. Actions run in
// last-registered-first-run order during scope exit, each exactly once.
// Register may be called before or during the protected section, but not
// from inside a running cleanup action.
func (g *Guard) Register(fn func() error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, fn)
}

// Do runs body as the protected section of this guard's single scope.
//
// On entry the guard takes over every signal in its watched set. A tracked
// signal arriving while body runs cancels body's context with a
// *SignalError cause; body is expected to notice at its next yield point
// and return. On exit, no matter how body ended, the guard runs cleanup
// when the scope failed, restores the prior signal disposition and
// re-delivers every deferred signal in arrival order.
//
// Do returns nil when the scope was clean or was ended by a tracked signal
// (the re-delivered signal then terminates the process with its normal
// semantics); any other failure is returned unchanged after cleanup.
func (g *Guard) Do(ctx context.Context, body func(ctx context.Context) error) error {
	if g.used.Swap(true) {
		return ErrReused
	}

	bctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	g.sigCh = make(chan os.Signal, 16)
	routes.acquire(g.sigCh, g.watched)

	monDone := make(chan struct{})
	go g.monitor(g.sigCh, monDone, cancel)

	err := body(bctx)
	return g.exit(err, monDone)
}

// Do is the one-shot form: a fresh guard protecting body with the given
// cleanup actions, registered in order.
func Do(ctx context.Context, body func(ctx context.Context) error, cleanups ...func() error) error {
	g := New()
	for _, fn := range cleanups {
		g.Register(fn)
	}
	return g.Do(ctx, body)
}

// Outcome reports how the scope ended. Nil until Do has returned.
func (g *Guard) Outcome() *Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outcome
}

// monitor is the guard's signal handler. It queues every arriving signal
// and, while the protected section is still running, aborts it by
// cancelling its context. It never touches the action stack.
func (g *Guard) monitor(ch <-chan os.Signal, done chan struct{}, cancel context.CancelCauseFunc) {
	defer close(done)
	for sig := range ch {
		g.mu.Lock()
		g.pending = append(g.pending, sig)
		g.interrupted = true
		g.mu.Unlock()

		if !g.bodyDone.Load() {
			cancel(&SignalError{Signal: sig})
		}
	}
}

func (g *Guard) exit(err error, monDone <-chan struct{}) error {
	g.bodyDone.Store(true)

	var (
		kind    = kindClean
		exitErr *ExitError
		sigErr  *SignalError
	)
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		kind = kindExit
	case errors.As(err, &sigErr) || (errors.Is(err, context.Canceled) && g.wasInterrupted()):
		g.log.Debug("protected section interrupted",
			"scope", g.id, "signals", signalNames(g.pendingNow()))
		kind = kindSignal
	default:
		g.log.Debug("protected section failed", "scope", g.id, "error", err)
		kind = kindFailure
	}

	var cleanupErr error
	if kind == kindSignal || kind == kindFailure {
		cleanupErr = g.drainActions()
	}

	// Restore: hand the watched signals back, then let the monitor drain
	// whatever the runtime already queued before the channel closed.
	routes.release(g.sigCh)
	close(g.sigCh)
	<-monDone

	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()

	g.replay(pending)

	g.mu.Lock()
	g.outcome = &Outcome{
		id:         g.id,
		createdAt:  g.createdAt,
		kind:       kind,
		err:        err,
		signals:    pending,
		cleanupErr: cleanupErr,
	}
	g.mu.Unlock()

	if kind == kindSignal {
		return nil
	}
	return err
}

// drainActions runs the cleanup stack in reverse-registration order. Each
// action is popped before it runs so a failing action never blocks the
// rest; failures and panics are collected, logged and swallowed.
func (g *Guard) drainActions() error {
	g.mu.Lock()
	count := len(g.actions)
	g.mu.Unlock()
	g.log.Debug("running cleanup actions", "scope", g.id, "count", count)

	var errs []error
	for {
		g.mu.Lock()
		last := len(g.actions) - 1
		if last < 0 {
			g.mu.Unlock()
			break
		}
		fn := g.actions[last]
		g.actions = g.actions[:last]
		g.mu.Unlock()

		if err := runAction(fn); err != nil {
			g.log.Error("cleanup action failed", "scope", g.id, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runAction(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup action panicked: %v", r)
		}
	}()
	return fn()
}

// replay re-delivers the deferred signals in arrival order, every
// occurrence individually. Disposition has been restored by now, so each
// one takes its normal effect; delivery is fire-and-forget.
func (g *Guard) replay(pending []os.Signal) {
	for _, sig := range pending {
		g.log.Debug("re-delivering signal", "scope", g.id, "signal", sig.String())
		if err := g.raise(sig); err != nil {
			g.log.Error("signal re-delivery failed",
				"scope", g.id, "signal", sig.String(), "error", err)
		}
	}
}

func (g *Guard) wasInterrupted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interrupted
}

func (g *Guard) pendingNow() []os.Signal {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]os.Signal, len(g.pending))
	copy(out, g.pending)
	return out
}

func raiseSignal(sig os.Signal) error {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

func signalNames(sigs []os.Signal) []string {
	names := make([]string, len(sigs))
	for i, sig := range sigs {
		names[i] = sig.String()
	}
	return names
}
