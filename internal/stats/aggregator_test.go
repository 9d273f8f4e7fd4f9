package stats

import (
	"reflect"
	"testing"
	"time"

	"github.com/gyssa-prince/student-progress-system/internal/codeforces"
)

func sub(id int64, t int64, contestID int, index string, rating int, verdict string) codeforces.Submission {
	return codeforces.Submission{
		ID:                  id,
		CreationTimeSeconds: t,
		Problem: codeforces.Problem{
			ContestID: contestID,
			Index:     index,
			Name:      "problem " + index,
			Rating:    rating,
		},
		Verdict: verdict,
	}
}

func TestFallbackDifficulty(t *testing.T) {
	tests := []struct {
		index string
		want  int
	}{
		{"A", 800},
		{"B", 1000},
		{"C", 1200},
		{"F", 1800},
		{"c", 1200}, // lowercase index normalized
		{"A1", 800}, // subtask letters use the first character
		{"", 1200},
		{"1", 1200}, // non-letter index falls back to the default
	}

	for _, tt := range tests {
		if got := FallbackDifficulty(tt.index); got != tt.want {
			t.Errorf("FallbackDifficulty(%q) = %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		difficulty int
		want       int
	}{
		{1450, 1400},
		{800, 800},
		{1200, 1200},
		{1999, 1900},
	}

	for _, tt := range tests {
		if got := BucketKey(tt.difficulty); got != tt.want {
			t.Errorf("BucketKey(%d) = %d, want %d", tt.difficulty, got, tt.want)
		}
	}
}

func TestAggregateSubmissionsDedup(t *testing.T) {
	day := int64(1700000000) // 2023-11-14 UTC
	feed := []codeforces.Submission{
		sub(1, day, 100, "A", 1450, "OK"),
		sub(2, day+10, 100, "A", 1450, "OK"), // duplicate accepted solve, discarded
		sub(3, day+20, 100, "B", 0, "WRONG_ANSWER"),
		sub(4, day+30, 100, "B", 900, "OK"),
	}

	got := AggregateSubmissions(feed)

	if total := got.TotalSolved(); total != 2 {
		t.Fatalf("expected 2 unique solves, got %d", total)
	}

	if got.Buckets[1400] != 1 {
		t.Errorf("expected one solve in bucket 1400, got %d", got.Buckets[1400])
	}
	if got.Buckets[900] != 1 {
		t.Errorf("expected one solve in bucket 900, got %d", got.Buckets[900])
	}

	if len(got.History) != 1 {
		t.Fatalf("expected a single history day, got %d", len(got.History))
	}
	if got.History[0].Solved != 2 {
		t.Errorf("expected 2 solves on the day, got %d", got.History[0].Solved)
	}
}

func TestAggregateSubmissionsIdempotent(t *testing.T) {
	day := int64(1700000000)
	feed := []codeforces.Submission{
		sub(1, day, 1, "A", 800, "OK"),
		sub(2, day+100, 1, "B", 0, "OK"),
		sub(3, day+200, 2, "C", 1600, "OK"),
		sub(4, day+300, 1, "A", 800, "OK"), // exact duplicate solve
		sub(5, day+400, 2, "D", 0, "TIME_LIMIT_EXCEEDED"),
	}

	first := AggregateSubmissions(feed)
	second := AggregateSubmissions(feed)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("aggregation is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestAggregateFirstAcceptedWins(t *testing.T) {
	day1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Unix()
	day2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC).Unix()

	// Feed arrives out of order; the earlier accepted submission must win
	// the dedup regardless of feed order.
	feed := []codeforces.Submission{
		sub(2, day2, 5, "A", 800, "OK"),
		sub(1, day1, 5, "A", 800, "OK"),
	}

	got := AggregateSubmissions(feed)

	if len(got.History) != 1 {
		t.Fatalf("expected one history day, got %d", len(got.History))
	}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.History[0].Date.Equal(want) {
		t.Errorf("expected solve attributed to %v, got %v", want, got.History[0].Date)
	}
}

func TestAggregateBucketHistoryInvariant(t *testing.T) {
	feeds := [][]codeforces.Submission{
		nil, // empty feed: both sides zero
		{
			sub(1, 1700000000, 1, "A", 1450, "OK"),
		},
		{
			sub(1, 1700000000, 1, "A", 0, "OK"),  // fallback 800
			sub(2, 1700086400, 1, "C", 0, "OK"),  // fallback 1200
			sub(3, 1700086500, 3, "", 0, "OK"),   // default 1200
			sub(4, 1700086600, 1, "A", 0, "OK"),  // duplicate
			sub(5, 1700086700, 9, "B", 0, "WRONG_ANSWER"),
		},
	}

	for i, feed := range feeds {
		got := AggregateSubmissions(feed)

		bucketSum := 0
		for _, c := range got.Buckets {
			bucketSum += c
		}
		historySum := 0
		for _, d := range got.History {
			historySum += d.Solved
		}

		if bucketSum != historySum {
			t.Errorf("feed %d: bucket sum %d != history sum %d", i, bucketSum, historySum)
		}
		if bucketSum != got.TotalSolved() {
			t.Errorf("feed %d: bucket sum %d != total solved %d", i, bucketSum, got.TotalSolved())
		}
	}
}

func TestAggregateFallbackBuckets(t *testing.T) {
	feed := []codeforces.Submission{
		sub(1, 1700000000, 1, "C", 0, "OK"), // letter fallback: 800 + 2*200
		sub(2, 1700000100, 2, "", 0, "OK"),  // no rating, no index
	}

	got := AggregateSubmissions(feed)

	if got.Buckets[1200] != 2 {
		t.Errorf("expected both fallback solves in bucket 1200, got %v", got.Buckets)
	}
}

func TestAggregateHistorySortedSparse(t *testing.T) {
	d1 := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC).Unix()
	d3 := time.Date(2024, 1, 3, 0, 1, 0, 0, time.UTC).Unix()

	feed := []codeforces.Submission{
		sub(2, d3, 1, "B", 900, "OK"),
		sub(1, d1, 1, "A", 800, "OK"),
	}

	got := AggregateSubmissions(feed)

	if len(got.History) != 2 {
		t.Fatalf("expected 2 history days (sparse, no zero fill), got %d", len(got.History))
	}
	if !got.History[0].Date.Before(got.History[1].Date) {
		t.Errorf("history not sorted ascending: %v", got.History)
	}
}

func TestNormalizeContests(t *testing.T) {
	changes := []codeforces.RatingChange{
		{
			ContestID:               2,
			ContestName:             "Round Two",
			Rank:                    50,
			RatingUpdateTimeSeconds: 1700100000,
			OldRating:               1500,
			NewRating:               1460,
		},
		{
			ContestID:               1,
			ContestName:             "Round One",
			Rank:                    120,
			RatingUpdateTimeSeconds: 1700000000,
			OldRating:               1400,
			NewRating:               1500,
		},
	}

	got := NormalizeContests(changes)

	if len(got) != 2 {
		t.Fatalf("expected 2 contests, got %d", len(got))
	}

	if got[0].ContestID != 1 || got[1].ContestID != 2 {
		t.Errorf("contests not sorted by date ascending: %+v", got)
	}

	if got[0].RatingChange != 100 {
		t.Errorf("expected rating change +100, got %d", got[0].RatingChange)
	}
	if got[1].RatingChange != -40 {
		t.Errorf("expected rating change -40, got %d", got[1].RatingChange)
	}

	for i, c := range got {
		if c.UnsolvedProblems != nil {
			t.Errorf("contest %d: unsolved problems should be unknown (nil), got %v", i, *c.UnsolvedProblems)
		}
	}
}
