package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"hiksync/internal/logging"
	"hiksync/internal/scheduler"
)

func TestRunRepeatsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var passes atomic.Int32
	err := scheduler.Run(ctx, 5*time.Millisecond, func(context.Context) {
		if passes.Add(1) == 3 {
			cancel()
		}
	}, logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := passes.Load(); got != 3 {
		t.Fatalf("expected 3 passes, got %d", got)
	}
}

func TestRunFirstPassIsImmediateAndWaitIsInterruptible(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	done := make(chan error, 1)
	var passes atomic.Int32
	go func() {
		done <- scheduler.Run(ctx, time.Hour, func(context.Context) {
			passes.Add(1)
			close(started)
		}, logging.NewNop())
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first pass did not start immediately")
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop while waiting")
	}
	if passes.Load() != 1 {
		t.Fatalf("expected a single pass, got %d", passes.Load())
	}
}

func TestRunRejectsInvalidArguments(t *testing.T) {
	if err := scheduler.Run(context.Background(), 0, func(context.Context) {}, nil); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if err := scheduler.Run(context.Background(), time.Second, nil, nil); err == nil {
		t.Fatal("expected error for nil pass")
	}
}

func TestRunSkipsPassWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	if err := scheduler.Run(ctx, time.Second, func(context.Context) { called = true }, nil); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("pass must not run after cancellation")
	}
}
