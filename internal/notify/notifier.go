// Package notify decides which students have gone inactive and sends them
// reminder mail.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/mailer"
	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

// Notifier scans post-sync statistics and mails inactive students.
//
// Selection is stateless on purpose: there is no "already notified today"
// memory, so every invocation re-notifies and re-increments students who are
// still inactive. The reminder count doubles as a severity signal; callers
// wanting at-most-once-per-day mail must gate how often they invoke Notify.
type Notifier struct {
	repo     storage.Repository
	mailer   mailer.Mailer
	template *mailer.ReminderTemplate
}

// NewNotifier creates an inactivity notifier.
func NewNotifier(repo storage.Repository, m mailer.Mailer, template *mailer.ReminderTemplate) *Notifier {
	if template == nil {
		template = mailer.DefaultReminderTemplate()
	}
	return &Notifier{
		repo:     repo,
		mailer:   m,
		template: template,
	}
}

// Notify mails every enabled student with no solve inside the trailing
// window. A solve dated exactly at the window boundary counts as active.
// Send failures are recorded and leave the reminder count untouched; the
// next scheduled run is the retry.
func (n *Notifier) Notify(ctx context.Context, windowDays int) (*models.NotifyRunSummary, error) {
	summary := &models.NotifyRunSummary{
		StartedAt: time.Now().UTC(),
	}

	students, err := n.repo.ListStudents(ctx, models.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	summary.Considered = len(students)

	// History entries are day-truncated, so the cutoff is too: any solve on
	// the boundary day or later counts as active.
	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays).Truncate(24 * time.Hour)

	for _, st := range students {
		if ctx.Err() != nil {
			break
		}

		if st.ReminderDisabled || st.Email == "" || isActiveSince(st, cutoff) {
			summary.Skipped++
			continue
		}

		if err := n.notifyOne(ctx, st, windowDays); err != nil {
			summary.Failed++
			summary.Failures = append(summary.Failures, models.AccountFailure{
				StudentID: st.ID,
				Handle:    st.Handle,
				Error:     err.Error(),
			})
			slog.Error("failed to notify student", "student", st.ID, "email", st.Email, "error", err)
			continue
		}

		summary.Notified++
	}

	summary.EndedAt = time.Now().UTC()

	slog.Info("inactivity notification finished",
		"considered", summary.Considered,
		"notified", summary.Notified,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"window_days", windowDays,
	)

	return summary, nil
}

func (n *Notifier) notifyOne(ctx context.Context, st *models.Student, windowDays int) error {
	msg, err := n.template.Render(st.Email, mailer.ReminderData{
		Name: st.Name,
		Days: windowDays,
	})
	if err != nil {
		return fmt.Errorf("rendering reminder: %w", err)
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending reminder: %w", err)
	}

	// The counter moves only after a successful send, by exactly one.
	if err := n.repo.IncrementReminderCount(ctx, st.ID); err != nil {
		return fmt.Errorf("recording reminder: %w", err)
	}

	slog.Info("reminder sent", "student", st.ID, "email", st.Email, "reminders", st.ReminderCount+1)
	return nil
}

// isActiveSince reports whether the student has any solve on or after the
// cutoff day.
func isActiveSince(st *models.Student, cutoff time.Time) bool {
	if st.ProblemStats == nil {
		return false
	}
	for _, day := range st.ProblemStats.History {
		if day.Solved > 0 && !day.Date.Before(cutoff) {
			return true
		}
	}
	return false
}
