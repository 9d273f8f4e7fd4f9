package models

import "time"

// AccountFailure records one student whose sync or notification failed.
type AccountFailure struct {
	StudentID string `json:"student_id"`
	Handle    string `json:"handle,omitempty"`
	Error     string `json:"error"`
}

// SyncRunSummary is the ephemeral report of one orchestrator run. It is
// returned to the trigger boundary and logged, never persisted.
type SyncRunSummary struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Failures  []AccountFailure `json:"failures,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
}

// NotifyRunSummary is the ephemeral report of one inactivity-notification
// pass.
type NotifyRunSummary struct {
	Considered int              `json:"considered"`
	Notified   int              `json:"notified"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Failures   []AccountFailure `json:"failures,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	EndedAt    time.Time        `json:"ended_at"`
}
