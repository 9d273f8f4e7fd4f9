// Package syncer pulls Codeforces data for every tracked student, derives
// their statistics and persists the result. One orchestrated run is in
// flight at most at a time; inside a run, students sync independently on a
// fixed worker pool.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/codeforces"
	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/stats"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

// RemoteClient is the slice of the Codeforces client the worker needs.
type RemoteClient interface {
	FetchUserInfo(ctx context.Context, handle string) (*codeforces.UserInfo, error)
	FetchRatingHistory(ctx context.Context, handle string) ([]codeforces.RatingChange, error)
	FetchSubmissions(ctx context.Context, handle string) ([]codeforces.Submission, error)
}

// Outcome classifies a completed sync attempt.
type Outcome int

const (
	// OutcomeSynced means the student's data was fetched, aggregated and
	// persisted.
	OutcomeSynced Outcome = iota

	// OutcomeSkipped means the student has no handle; nothing was fetched
	// and nothing was written. Skipped is not a failure.
	OutcomeSkipped
)

// Worker syncs a single student end to end.
type Worker struct {
	remote RemoteClient
	repo   storage.Repository
}

// NewWorker creates an account sync worker.
func NewWorker(remote RemoteClient, repo storage.Repository) *Worker {
	return &Worker{
		remote: remote,
		repo:   repo,
	}
}

// Sync fetches, aggregates and persists one student's data. The repository
// write is the only side effect: exactly one on success, none on any
// failure, so a failed sync leaves the previous data fully intact.
func (w *Worker) Sync(ctx context.Context, st *models.Student) (Outcome, error) {
	if !st.HasHandle() {
		slog.Debug("student has no handle, skipping sync", "student", st.ID, "name", st.Name)
		return OutcomeSkipped, nil
	}

	handle := st.Handle

	info, err := w.remote.FetchUserInfo(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("fetching user info for %q: %w", handle, err)
	}

	ratingChanges, err := w.remote.FetchRatingHistory(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("fetching rating history for %q: %w", handle, err)
	}

	submissions, err := w.remote.FetchSubmissions(ctx, handle)
	if err != nil {
		return 0, fmt.Errorf("fetching submissions for %q: %w", handle, err)
	}

	result := &storage.SyncResult{
		CurrentRating:  info.Rating,
		MaxRating:      info.MaxRating,
		Rank:           info.Rank,
		Avatar:         info.Avatar,
		TitlePhoto:     info.TitlePhoto,
		ContestHistory: stats.NormalizeContests(ratingChanges),
		ProblemStats:   stats.AggregateSubmissions(submissions),
		SyncedAt:       time.Now().UTC(),
	}

	if err := w.repo.ApplySyncResult(ctx, st.ID, result); err != nil {
		return 0, fmt.Errorf("persisting sync result for %q: %w", handle, err)
	}

	slog.Info("student synced",
		"student", st.ID,
		"handle", handle,
		"rating", result.CurrentRating,
		"contests", len(result.ContestHistory),
		"solved", result.ProblemStats.TotalSolved(),
	)

	return OutcomeSynced, nil
}
