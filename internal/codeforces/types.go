package codeforces

import "strconv"

// Wire types for the Codeforces API. The API wraps every response in an
// envelope {status, comment, result}; the schema below is validated at this
// boundary so nothing untyped leaks inward.

// UserInfo is the profile summary returned by user.info.
type UserInfo struct {
	Handle     string `json:"handle"`
	Rating     int    `json:"rating"`
	MaxRating  int    `json:"maxRating"`
	Rank       string `json:"rank"`
	Avatar     string `json:"avatar"`
	TitlePhoto string `json:"titlePhoto"`
}

// RatingChange is one entry of user.rating.
type RatingChange struct {
	ContestID               int    `json:"contestId"`
	ContestName             string `json:"contestName"`
	Rank                    int    `json:"rank"`
	RatingUpdateTimeSeconds int64  `json:"ratingUpdateTimeSeconds"`
	OldRating               int    `json:"oldRating"`
	NewRating               int    `json:"newRating"`
}

// Problem identifies the problem of a submission. Rating is 0 when
// Codeforces has not assigned a difficulty.
type Problem struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
}

// Submission is one entry of user.status.
type Submission struct {
	ID                  int64   `json:"id"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
}

// VerdictOK is the verdict of an accepted submission.
const VerdictOK = "OK"

// Accepted reports whether the submission passed all tests.
func (s *Submission) Accepted() bool {
	return s.Verdict == VerdictOK
}

// ProblemKey returns the dedup identity of the submitted problem.
func (s *Submission) ProblemKey() string {
	return s.Problem.Key()
}

// Key returns the problem identity used for deduplication.
func (p *Problem) Key() string {
	// contestId and index together identify a problem
	return strconv.Itoa(p.ContestID) + "-" + p.Index
}
