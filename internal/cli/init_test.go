package cli

import (
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"
)

func TestGracefulShutdown_RunsCleanupOnSignal(t *testing.T) {
	logger := SetupLogger()

	// Guard channel: once anything is subscribed, SIGTERM no longer kills the
	// test process even if delivery races the helper's own registration.
	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGTERM)
	defer signal.Stop(guard)

	cleaned := make(chan struct{})
	ctx, done := GracefulShutdown(logger, time.Second, func() {
		close(cleaned)
	})

	// Give the helper's signal goroutine time to subscribe.
	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}

	select {
	case <-cleaned:
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup did not run after SIGTERM")
	}

	WaitForShutdown(ctx, done)
	if ctx.Err() == nil {
		t.Error("context should be cancelled after shutdown")
	}
}

func TestGracefulShutdown_NilCleanupIsAllowed(t *testing.T) {
	logger := SetupLogger()

	guard := make(chan os.Signal, 1)
	signal.Notify(guard, syscall.SIGTERM)
	defer signal.Stop(guard)

	ctx, done := GracefulShutdown(logger, time.Second, nil)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send SIGTERM: %v", err)
	}

	WaitForShutdown(ctx, done)
	if ctx.Err() == nil {
		t.Error("context should be cancelled after shutdown")
	}
}
