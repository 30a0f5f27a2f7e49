package throttle

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestDelayStaysInsideWindow(t *testing.T) {
	t.Parallel()

	g := New(Config{MinDelay: 10 * time.Millisecond, MaxDelay: 30 * time.Millisecond}, zap.NewNop())

	for range 5 {
		start := time.Now()
		g.Delay(context.Background())
		elapsed := time.Since(start)
		if elapsed < 10*time.Millisecond {
			t.Fatalf("delay %v shorter than the window minimum", elapsed)
		}
		if elapsed > 200*time.Millisecond {
			t.Fatalf("delay %v far beyond the window maximum", elapsed)
		}
	}
}

func TestDelayWakesOnContextCancel(t *testing.T) {
	t.Parallel()

	g := New(Config{MinDelay: 10 * time.Second, MaxDelay: 11 * time.Second}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		g.Delay(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected delay to wake on cancellation")
	}
}

func TestNewDefaultsWindow(t *testing.T) {
	t.Parallel()

	g := New(Config{}, zap.NewNop())
	if g.cfg.MinDelay != 2*time.Second || g.cfg.MaxDelay != 5*time.Second {
		t.Fatalf("expected 2s-5s default window, got %v-%v", g.cfg.MinDelay, g.cfg.MaxDelay)
	}
}

func TestBudgetExceeded(t *testing.T) {
	t.Parallel()

	g := New(Config{MemoryCeilingMB: 100}, zap.NewNop())
	g.readMem = func() uint64 { return 50 << 20 }
	if g.BudgetExceeded() {
		t.Fatal("expected budget to hold at 50MB")
	}
	g.readMem = func() uint64 { return 200 << 20 }
	if !g.BudgetExceeded() {
		t.Fatal("expected budget to trip at 200MB")
	}
}

func TestBudgetDisabledByZeroCeiling(t *testing.T) {
	t.Parallel()

	g := New(Config{}, zap.NewNop())
	g.readMem = func() uint64 { return 1 << 40 }
	if g.BudgetExceeded() {
		t.Fatal("expected zero ceiling to disable the guard")
	}
}
