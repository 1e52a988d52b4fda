package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCleanBodySkipsCleanup(t *testing.T) {
	ran := 0
	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { ran++; return nil })
	g.Register(func() error { ran++; return nil })

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v, want nil", err)
	}
	if ran != 0 {
		t.Fatalf("%d cleanup actions ran on a clean scope, want 0", ran)
	}
	if !g.Outcome().IsClean() {
		t.Fatal("outcome is not clean")
	}
}

func TestFailureRunsCleanupInReverseOrder(t *testing.T) {
	var order []string
	boom := errors.New("bad value")

	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { order = append(order, "a"); return nil })
	g.Register(func() error { order = append(order, "b"); return nil })
	g.Register(func() error { order = append(order, "c"); return nil })

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do returned %v, want the original error", err)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Fatalf("cleanup order %v, want [c b a]", order)
	}
	if !g.Outcome().IsFailure() {
		t.Fatal("outcome is not a failure")
	}
	if got := g.Outcome().CleanupErrors(); len(got) != 0 {
		t.Fatalf("collected %v cleanup errors, want none", got)
	}
}

func TestFailingActionsNeverShortCircuit(t *testing.T) {
	var order []string
	boom := errors.New("provisioning failed")
	cleanupBoom := errors.New("rollback failed")

	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { order = append(order, "a"); return nil })
	g.Register(func() error { order = append(order, "b"); return cleanupBoom })
	g.Register(func() error { order = append(order, "c"); panic("c blew up") })

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Do returned %v, want the original error", err)
	}
	if len(order) != 3 || order[0] != "c" || order[1] != "b" || order[2] != "a" {
		t.Fatalf("cleanup order %v, want [c b a]", order)
	}

	collected := g.Outcome().CleanupErrors()
	if len(collected) != 2 {
		t.Fatalf("collected %d cleanup errors, want 2: %v", len(collected), collected)
	}
	// Run order: c's panic first, then b's error.
	if collected[0] == nil || collected[1] == nil ||
		!errors.Is(collected[1], cleanupBoom) {
		t.Fatalf("collected errors %v, want panic then %v", collected, cleanupBoom)
	}

	g.mu.Lock()
	left := len(g.actions)
	g.mu.Unlock()
	if left != 0 {
		t.Fatalf("%d actions left on the stack after cleanup, want 0", left)
	}
}

func TestExitRequestPassesThroughWithoutCleanup(t *testing.T) {
	ran := 0
	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { ran++; return nil })

	err := g.Do(context.Background(), func(ctx context.Context) error {
		return Exit(3)
	})
	code, ok := ExitCode(err)
	if !ok || code != 3 {
		t.Fatalf("Do returned %v, want exit request with status 3", err)
	}
	if ran != 0 {
		t.Fatalf("%d cleanup actions ran on an exit request, want 0", ran)
	}
	if !g.Outcome().IsExit() {
		t.Fatal("outcome is not an exit request")
	}
}

func TestConstructorActionRunsLast(t *testing.T) {
	var order []string
	g := New(
		WithLogger(testLogger()),
		WithSignals(),
		WithCleanup(func() error { order = append(order, "first"); return nil }),
	)
	g.Register(func() error { order = append(order, "second"); return nil })

	_ = g.Do(context.Background(), func(ctx context.Context) error {
		return errors.New("fail")
	})
	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("cleanup order %v, want [second first]", order)
	}
}

func TestRegisterDuringBody(t *testing.T) {
	var order []string
	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { order = append(order, "outer"); return nil })

	_ = g.Do(context.Background(), func(ctx context.Context) error {
		g.Register(func() error { order = append(order, "inner"); return nil })
		return errors.New("fail")
	})
	if len(order) != 2 || order[0] != "inner" || order[1] != "outer" {
		t.Fatalf("cleanup order %v, want [inner outer]", order)
	}
}

func TestGuardIsSingleUse(t *testing.T) {
	g := New(WithLogger(testLogger()), WithSignals())
	noop := func(ctx context.Context) error { return nil }

	if err := g.Do(context.Background(), noop); err != nil {
		t.Fatalf("first Do returned %v", err)
	}
	if err := g.Do(context.Background(), noop); !errors.Is(err, ErrReused) {
		t.Fatalf("second Do returned %v, want ErrReused", err)
	}
}

func TestParentCancellationIsNotAnInterrupt(t *testing.T) {
	ran := 0
	g := New(WithLogger(testLogger()), WithSignals())
	g.Register(func() error { ran++; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Do(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do returned %v, want context.Canceled", err)
	}
	if ran != 1 {
		t.Fatalf("%d cleanup actions ran, want 1", ran)
	}
	if !g.Outcome().IsFailure() {
		t.Fatal("outcome is not a failure")
	}
}

func TestSignalsReturnsACopy(t *testing.T) {
	sigs := Signals()
	if len(sigs) == 0 {
		t.Fatal("catalog is empty")
	}
	sigs[0] = nil
	if again := Signals(); again[0] == nil {
		t.Fatal("mutating the returned slice changed the catalog")
	}
}
