// Package scheduler is the periodic trigger: on an interval it runs a full
// sync and then the inactivity check, the same two-stage sequence the manual
// HTTP trigger performs.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/syncer"
)

// SyncRunner runs one full sync. *syncer.Orchestrator implements it.
type SyncRunner interface {
	RunAll(ctx context.Context) (*models.SyncRunSummary, error)
}

// Notifier runs the inactivity check. *notify.Notifier implements it.
type Notifier interface {
	Notify(ctx context.Context, windowDays int) (*models.NotifyRunSummary, error)
}

// Runner periodically triggers sync-then-notify.
type Runner struct {
	orchestrator SyncRunner
	notifier     Notifier
	interval     time.Duration
	windowDays   int
}

// NewRunner creates a scheduled runner.
func NewRunner(orchestrator SyncRunner, notifier Notifier, interval time.Duration, windowDays int) *Runner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &Runner{
		orchestrator: orchestrator,
		notifier:     notifier,
		interval:     interval,
		windowDays:   windowDays,
	}
}

// Start begins the trigger loop in a goroutine.
func (r *Runner) Start(ctx context.Context) {
	go r.run(ctx)
}

// run is the main loop for the scheduled trigger
func (r *Runner) run(ctx context.Context) {
	slog.Info("scheduler started", "interval", r.interval, "window_days", r.windowDays)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			r.trigger(ctx)
		}
	}
}

// trigger runs one sync-then-notify cycle.
func (r *Runner) trigger(ctx context.Context) {
	slog.Info("scheduled sync starting")

	syncSummary, err := r.orchestrator.RunAll(ctx)
	if err != nil {
		if errors.Is(err, syncer.ErrAlreadyRunning) {
			// A manual trigger beat us to it; this cycle is skipped, not
			// queued.
			slog.Warn("scheduled sync skipped, run already in progress")
			return
		}
		slog.Error("scheduled sync failed", "error", err)
		return
	}

	slog.Info("scheduled sync completed",
		"total", syncSummary.Total,
		"succeeded", syncSummary.Succeeded,
		"failed", syncSummary.Failed,
		"skipped", syncSummary.Skipped,
	)

	notifySummary, err := r.notifier.Notify(ctx, r.windowDays)
	if err != nil {
		slog.Error("scheduled inactivity check failed", "error", err)
		return
	}

	slog.Info("scheduled inactivity check completed",
		"considered", notifySummary.Considered,
		"notified", notifySummary.Notified,
		"failed", notifySummary.Failed,
	)
}
