package storage

import (
	"context"
	"errors"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/models"
)

// ErrStudentNotFound is returned when a student id does not exist.
var ErrStudentNotFound = errors.New("student not found")

// SyncResult carries everything a successful sync replaces on a student.
// The repository applies it as one atomic update; a reader sees either the
// previous sync in full or this one in full, never a mix.
type SyncResult struct {
	CurrentRating  int
	MaxRating      int
	Rank           string
	Avatar         string
	TitlePhoto     string
	ContestHistory []models.ContestResult
	ProblemStats   *models.ProblemStats
	SyncedAt       time.Time
}

// Repository defines the interface for student persistence
type Repository interface {
	// Students
	CreateStudent(ctx context.Context, st *models.Student) error
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	UpdateStudent(ctx context.Context, id string, req models.UpdateStudentRequest) (*models.Student, error)
	DeleteStudent(ctx context.Context, id string) error
	ListStudents(ctx context.Context, filters models.ListFilters) ([]*models.Student, error)

	// Sync output (single atomic write per successful sync)
	ApplySyncResult(ctx context.Context, id string, res *SyncResult) error

	// Reminder bookkeeping
	IncrementReminderCount(ctx context.Context, id string) error
	SetReminderDisabled(ctx context.Context, id string, disabled bool) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
