// Package stats derives per-student statistics from the raw Codeforces feed.
// Everything here is pure computation: the same feed always produces the same
// output, no matter how often a sync reruns.
package stats

import (
	"sort"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/codeforces"
	"github.com/gyssa-prince/student-progress-system/internal/models"
)

const (
	// defaultDifficulty is assigned when neither the feed nor the problem
	// index gives any difficulty signal.
	defaultDifficulty = 1200

	// baseDifficulty is the difficulty of an index-A problem; each letter
	// after A adds a step. This is a rough heuristic, not authoritative.
	baseDifficulty = 800
	letterStep     = 200

	bucketWidth = 100
)

// FallbackDifficulty derives a difficulty estimate from the problem's letter
// index: A is 800, each subsequent letter adds 200. A missing or non-letter
// index yields 1200.
func FallbackDifficulty(index string) int {
	if index == "" {
		return defaultDifficulty
	}
	c := index[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return defaultDifficulty
	}
	return baseDifficulty + int(c-'A')*letterStep
}

// Difficulty resolves the difficulty of a submitted problem, preferring the
// feed-supplied rating over the letter heuristic.
func Difficulty(p codeforces.Problem) int {
	if p.Rating > 0 {
		return p.Rating
	}
	return FallbackDifficulty(p.Index)
}

// BucketKey rounds a difficulty down to its 100-wide band.
func BucketKey(difficulty int) int {
	return difficulty / bucketWidth * bucketWidth
}

// AggregateSubmissions builds the solved-problem statistics for a
// submission feed. Only accepted submissions count, and each problem
// identity counts once: the first accepted submission by timestamp wins,
// later duplicates are discarded. The daily history is keyed on the UTC
// calendar day of that first accepted submission.
func AggregateSubmissions(subs []codeforces.Submission) *models.ProblemStats {
	ordered := make([]codeforces.Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreationTimeSeconds < ordered[j].CreationTimeSeconds
	})

	seen := make(map[string]struct{})
	buckets := make(models.Buckets)
	daily := make(map[time.Time]int)

	for i := range ordered {
		sub := &ordered[i]
		if !sub.Accepted() {
			continue
		}

		key := sub.ProblemKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		buckets[BucketKey(Difficulty(sub.Problem))]++

		day := time.Unix(sub.CreationTimeSeconds, 0).UTC().Truncate(24 * time.Hour)
		daily[day]++
	}

	history := make([]models.DailyCount, 0, len(daily))
	for day, count := range daily {
		history = append(history, models.DailyCount{Date: day, Solved: count})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})

	return &models.ProblemStats{
		History: history,
		Buckets: buckets,
	}
}

// NormalizeContests turns the raw rating feed into the persisted contest
// history: date ascending, rating change computed, unsolved-problem count
// left unknown because the feed does not carry it.
func NormalizeContests(changes []codeforces.RatingChange) []models.ContestResult {
	results := make([]models.ContestResult, 0, len(changes))
	for _, ch := range changes {
		results = append(results, models.ContestResult{
			ContestID:    ch.ContestID,
			ContestName:  ch.ContestName,
			Date:         time.Unix(ch.RatingUpdateTimeSeconds, 0).UTC(),
			Rank:         ch.Rank,
			OldRating:    ch.OldRating,
			NewRating:    ch.NewRating,
			RatingChange: ch.NewRating - ch.OldRating,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date.Before(results[j].Date)
	})
	return results
}
