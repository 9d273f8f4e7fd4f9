package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/syncer"
)

type countingRunner struct {
	runs int32
	err  error
}

func (c *countingRunner) RunAll(ctx context.Context) (*models.SyncRunSummary, error) {
	atomic.AddInt32(&c.runs, 1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.SyncRunSummary{}, nil
}

type countingNotifier struct {
	runs   int32
	window int32
}

func (c *countingNotifier) Notify(ctx context.Context, windowDays int) (*models.NotifyRunSummary, error) {
	atomic.AddInt32(&c.runs, 1)
	atomic.StoreInt32(&c.window, int32(windowDays))
	return &models.NotifyRunSummary{}, nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRunnerTriggersSyncThenNotify(t *testing.T) {
	runner := &countingRunner{}
	notifier := &countingNotifier{}
	r := NewRunner(runner, notifier, 20*time.Millisecond, 7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return atomic.LoadInt32(&notifier.runs) >= 2 })

	if atomic.LoadInt32(&runner.runs) < 2 {
		t.Errorf("expected at least 2 sync runs, got %d", runner.runs)
	}
	if got := atomic.LoadInt32(&notifier.window); got != 7 {
		t.Errorf("expected window 7 passed through, got %d", got)
	}
}

func TestRunnerSkipsNotifyWhenSyncBusy(t *testing.T) {
	runner := &countingRunner{err: syncer.ErrAlreadyRunning}
	notifier := &countingNotifier{}
	r := NewRunner(runner, notifier, 10*time.Millisecond, 7)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return atomic.LoadInt32(&runner.runs) >= 3 })

	if got := atomic.LoadInt32(&notifier.runs); got != 0 {
		t.Errorf("notify must not run when the sync stage was skipped, got %d runs", got)
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	runner := &countingRunner{}
	notifier := &countingNotifier{}
	r := NewRunner(runner, notifier, 10*time.Millisecond, 7)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)

	waitFor(t, func() bool { return atomic.LoadInt32(&runner.runs) >= 1 })
	cancel()

	// Give the loop a moment to observe cancellation, then confirm it idles.
	time.Sleep(30 * time.Millisecond)
	before := atomic.LoadInt32(&runner.runs)
	time.Sleep(50 * time.Millisecond)
	if after := atomic.LoadInt32(&runner.runs); after != before {
		t.Errorf("runner kept triggering after cancel: %d -> %d", before, after)
	}
}
