package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Student represents a tracked Codeforces account. The handle identifies the
// student on Codeforces; without one the sync engine skips the student.
type Student struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Handle string `json:"cf_handle"`

	// Fields below are overwritten wholesale on every successful sync.
	CurrentRating int    `json:"current_rating"`
	MaxRating     int    `json:"max_rating"`
	Rank          string `json:"rank,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	TitlePhoto    string `json:"title_photo,omitempty"`

	ContestHistory []ContestResult `json:"contest_history"`
	ProblemStats   *ProblemStats   `json:"problem_stats,omitempty"`
	LastSyncedAt   *time.Time      `json:"last_synced_at,omitempty"`

	ReminderCount    int  `json:"reminder_count"`
	ReminderDisabled bool `json:"reminder_disabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasHandle reports whether the student can be synced at all.
func (s *Student) HasHandle() bool {
	return strings.TrimSpace(s.Handle) != ""
}

// ContestResult is one rated contest participation.
type ContestResult struct {
	ContestID    int       `json:"contest_id"`
	ContestName  string    `json:"contest_name"`
	Date         time.Time `json:"date"`
	Rank         int       `json:"rank"`
	OldRating    int       `json:"old_rating"`
	NewRating    int       `json:"new_rating"`
	RatingChange int       `json:"rating_change"`

	// UnsolvedProblems is nil when the source feed does not supply it;
	// nil means unknown, which is not the same as zero.
	UnsolvedProblems *int `json:"unsolved_problems"`
}

// DailyCount is one calendar day with at least one accepted solve. Days
// without solves are absent from the history, not zero-filled.
type DailyCount struct {
	Date   time.Time `json:"date"`
	Solved int       `json:"solved"`
}

// Buckets maps a difficulty band (multiple of 100) to the number of unique
// solved problems in that band. Keys exist only for non-zero counts.
type Buckets map[int]int

// MarshalJSON emits bucket keys in ascending numeric order. Letting
// encoding/json serialize the map directly would order keys as strings,
// putting 1000 before 800.
func (b Buckets) MarshalJSON() ([]byte, error) {
	keys := make([]int, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%q:%d", fmt.Sprintf("%d", k), b[k])
	}
	sb.WriteByte('}')
	return []byte(sb.String()), nil
}

// UnmarshalJSON accepts the string-keyed object form produced by MarshalJSON.
func (b *Buckets) UnmarshalJSON(data []byte) error {
	raw := make(map[string]int)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Buckets, len(raw))
	for k, v := range raw {
		var key int
		if _, err := fmt.Sscanf(k, "%d", &key); err != nil {
			return fmt.Errorf("invalid bucket key %q: %w", k, err)
		}
		out[key] = v
	}
	*b = out
	return nil
}

// ProblemStats holds the derived solved-problem statistics for a student.
// Invariant: the bucket counts and the daily history counts both sum to the
// number of unique solved problems.
type ProblemStats struct {
	History []DailyCount `json:"history"`
	Buckets Buckets      `json:"buckets"`
}

// TotalSolved returns the number of unique solved problems.
func (p *ProblemStats) TotalSolved() int {
	total := 0
	for _, c := range p.Buckets {
		total += c
	}
	return total
}

// LastActiveAt returns the date of the most recent solve, or the zero time
// when the student has never solved anything.
func (p *ProblemStats) LastActiveAt() time.Time {
	var last time.Time
	if p == nil {
		return last
	}
	for _, d := range p.History {
		if d.Date.After(last) {
			last = d.Date
		}
	}
	return last
}

// ListFilters defines filters for listing students.
type ListFilters struct {
	Limit  int
	Offset int
}

// CreateStudentRequest is the payload for registering a student.
type CreateStudentRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone,omitempty"`
	Handle string `json:"cf_handle"`
}

// UpdateStudentRequest carries the mutable profile fields. Empty fields keep
// their current value.
type UpdateStudentRequest struct {
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Handle string `json:"cf_handle,omitempty"`
}
