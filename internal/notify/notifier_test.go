package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/mailer"
	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

type fakeRepo struct {
	mu       sync.Mutex
	students []*models.Student
	listErr  error
}

func (r *fakeRepo) CreateStudent(ctx context.Context, st *models.Student) error { return nil }

func (r *fakeRepo) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	for _, st := range r.students {
		if st.ID == id {
			return st, nil
		}
	}
	return nil, storage.ErrStudentNotFound
}

func (r *fakeRepo) UpdateStudent(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error) {
	return nil, storage.ErrStudentNotFound
}

func (r *fakeRepo) DeleteStudent(ctx context.Context, id string) error { return nil }

func (r *fakeRepo) ListStudents(ctx context.Context, filters models.ListFilters) ([]*models.Student, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.students, nil
}

func (r *fakeRepo) ApplySyncResult(ctx context.Context, id string, res *storage.SyncResult) error {
	return nil
}

func (r *fakeRepo) IncrementReminderCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.students {
		if st.ID == id {
			st.ReminderCount++
			return nil
		}
	}
	return storage.ErrStudentNotFound
}

func (r *fakeRepo) SetReminderDisabled(ctx context.Context, id string, disabled bool) error {
	return nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

type fakeMailer struct {
	mu      sync.Mutex
	sent    []*mailer.Message
	sendErr error
}

func (m *fakeMailer) Send(ctx context.Context, msg *mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func statsWithSolveOn(day time.Time) *models.ProblemStats {
	return &models.ProblemStats{
		History: []models.DailyCount{{Date: day.Truncate(24 * time.Hour), Solved: 1}},
		Buckets: models.Buckets{800: 1},
	}
}

func TestNotifyInactiveStudent(t *testing.T) {
	old := time.Now().UTC().AddDate(0, 0, -10)
	st := &models.Student{
		ID:            "s1",
		Name:          "Alice",
		Email:         "alice@example.com",
		Handle:        "alice",
		ReminderCount: 3,
		ProblemStats:  statsWithSolveOn(old),
	}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Notified != 1 {
		t.Fatalf("expected 1 notified, got %+v", summary)
	}
	if len(mail.sent) != 1 {
		t.Fatalf("expected exactly one mail, got %d", len(mail.sent))
	}
	if mail.sent[0].To != "alice@example.com" {
		t.Errorf("mail sent to %q", mail.sent[0].To)
	}
	if !strings.Contains(mail.sent[0].Text, "Alice") || !strings.Contains(mail.sent[0].Text, "7") {
		t.Errorf("reminder body missing name or window: %q", mail.sent[0].Text)
	}
	if st.ReminderCount != 4 {
		t.Errorf("expected reminder count 4, got %d", st.ReminderCount)
	}
}

func TestNotifySkipsActiveStudent(t *testing.T) {
	recent := time.Now().UTC().AddDate(0, 0, -2)
	st := &models.Student{
		ID:           "s1",
		Name:         "Bob",
		Email:        "bob@example.com",
		ProblemStats: statsWithSolveOn(recent),
	}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Notified != 0 || summary.Skipped != 1 {
		t.Errorf("active student must be skipped, got %+v", summary)
	}
	if len(mail.sent) != 0 {
		t.Errorf("expected no mail, got %d", len(mail.sent))
	}
}

func TestNotifyBoundarySolveCountsAsActive(t *testing.T) {
	// A solve dated exactly at the window boundary is active, not inactive.
	boundary := time.Now().UTC().AddDate(0, 0, -7)
	st := &models.Student{
		ID:           "s1",
		Name:         "Carol",
		Email:        "carol@example.com",
		ProblemStats: statsWithSolveOn(boundary.Add(time.Minute)),
	}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Notified != 0 {
		t.Errorf("boundary solve treated as inactive: %+v", summary)
	}
}

func TestNotifySkipsDisabledAndMailless(t *testing.T) {
	old := time.Now().UTC().AddDate(0, 0, -30)
	students := []*models.Student{
		{ID: "s1", Name: "Disabled", Email: "d@example.com", ReminderDisabled: true, ProblemStats: statsWithSolveOn(old)},
		{ID: "s2", Name: "NoMail", Email: "", ProblemStats: statsWithSolveOn(old)},
		{ID: "s3", Name: "Due", Email: "due@example.com", ProblemStats: statsWithSolveOn(old)},
	}
	repo := &fakeRepo{students: students}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Notified != 1 || summary.Skipped != 2 {
		t.Errorf("expected 1 notified and 2 skipped, got %+v", summary)
	}
	if len(mail.sent) != 1 || mail.sent[0].To != "due@example.com" {
		t.Errorf("unexpected mail set: %+v", mail.sent)
	}
}

func TestNotifySendFailureLeavesCounter(t *testing.T) {
	old := time.Now().UTC().AddDate(0, 0, -20)
	st := &models.Student{
		ID:            "s1",
		Name:          "Alice",
		Email:         "alice@example.com",
		ReminderCount: 2,
		ProblemStats:  statsWithSolveOn(old),
	}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{sendErr: errors.New("smtp: connection refused")}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Failed != 1 || summary.Notified != 0 {
		t.Errorf("expected send failure recorded, got %+v", summary)
	}
	if st.ReminderCount != 2 {
		t.Errorf("send failure must not move the counter, got %d", st.ReminderCount)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].StudentID != "s1" {
		t.Errorf("failure not recorded: %+v", summary.Failures)
	}
}

func TestNotifyReinvocationRenotifies(t *testing.T) {
	old := time.Now().UTC().AddDate(0, 0, -15)
	st := &models.Student{
		ID:           "s1",
		Name:         "Alice",
		Email:        "alice@example.com",
		ProblemStats: statsWithSolveOn(old),
	}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	for i := 0; i < 2; i++ {
		if _, err := n.Notify(context.Background(), 7); err != nil {
			t.Fatalf("Notify run %d failed: %v", i+1, err)
		}
	}

	// Selection keeps no memory: a still-inactive student is mailed again.
	if len(mail.sent) != 2 {
		t.Errorf("expected 2 mails across 2 runs, got %d", len(mail.sent))
	}
	if st.ReminderCount != 2 {
		t.Errorf("expected reminder count 2, got %d", st.ReminderCount)
	}
}

func TestNotifyNeverSyncedStudentIsInactive(t *testing.T) {
	st := &models.Student{ID: "s1", Name: "Fresh", Email: "fresh@example.com"}
	repo := &fakeRepo{students: []*models.Student{st}}
	mail := &fakeMailer{}
	n := NewNotifier(repo, mail, nil)

	summary, err := n.Notify(context.Background(), 7)
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if summary.Notified != 1 {
		t.Errorf("student with no stats should count as inactive, got %+v", summary)
	}
}
