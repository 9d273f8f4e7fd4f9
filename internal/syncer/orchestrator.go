package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

// AccountSyncer syncs one student. *Worker is the production implementation.
type AccountSyncer interface {
	Sync(ctx context.Context, st *models.Student) (Outcome, error)
}

// Options configures an Orchestrator.
type Options struct {
	// Workers is the fixed pool size. The pool, not a goroutine per
	// student, keeps aggregate pressure on the remote service bounded.
	Workers int

	// AccountTimeout bounds one student's sync so a stuck remote call
	// cannot block the pool indefinitely.
	AccountTimeout time.Duration
}

// Orchestrator fans the sync worker out over the full student set.
type Orchestrator struct {
	repo           storage.Repository
	worker         AccountSyncer
	lease          Lease
	workers        int
	accountTimeout time.Duration
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(repo storage.Repository, worker AccountSyncer, lease Lease, opts Options) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.AccountTimeout <= 0 {
		opts.AccountTimeout = 2 * time.Minute
	}

	return &Orchestrator{
		repo:           repo,
		worker:         worker,
		lease:          lease,
		workers:        opts.Workers,
		accountTimeout: opts.AccountTimeout,
	}
}

// RunAll syncs every student once and reports the per-student outcomes. A
// second invocation while one is in flight fails with ErrAlreadyRunning.
// Only a failure to enumerate the student set is run-fatal; individual
// student failures are recorded in the summary and never abort siblings.
func (o *Orchestrator) RunAll(ctx context.Context) (*models.SyncRunSummary, error) {
	if err := o.lease.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		// Release under its own context so shutdown cannot strand the
		// lease until the TTL expires.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.lease.Release(releaseCtx); err != nil {
			slog.Error("failed to release sync lease", "error", err)
		}
	}()

	summary := &models.SyncRunSummary{
		StartedAt: time.Now().UTC(),
	}

	// Snapshot the student set once; students added or removed mid-run
	// belong to the next run.
	students, err := o.repo.ListStudents(ctx, models.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	summary.Total = len(students)

	slog.Info("sync run started", "students", summary.Total, "workers", o.workers)

	jobs := make(chan *models.Student)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for st := range jobs {
				outcome, err := o.syncOne(ctx, st)

				mu.Lock()
				switch {
				case err != nil:
					summary.Failed++
					summary.Failures = append(summary.Failures, models.AccountFailure{
						StudentID: st.ID,
						Handle:    st.Handle,
						Error:     err.Error(),
					})
				case outcome == OutcomeSkipped:
					summary.Skipped++
				default:
					summary.Succeeded++
				}
				mu.Unlock()

				if err != nil {
					slog.Error("student sync failed", "student", st.ID, "handle", st.Handle, "error", err)
				}
			}
		}()
	}

feed:
	for _, st := range students {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- st:
		}
	}
	close(jobs)
	wg.Wait()

	summary.EndedAt = time.Now().UTC()

	slog.Info("sync run finished",
		"total", summary.Total,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.EndedAt.Sub(summary.StartedAt),
	)

	return summary, nil
}

func (o *Orchestrator) syncOne(ctx context.Context, st *models.Student) (Outcome, error) {
	syncCtx, cancel := context.WithTimeout(ctx, o.accountTimeout)
	defer cancel()

	return o.worker.Sync(syncCtx, st)
}
