package game

import (
	"strings"
	"time"

	"backend/internal/apperr"
)

const (
	// Display name length bounds, measured after trimming whitespace.
	MinDisplayNameLen = 2
	MaxDisplayNameLen = 24
)

// Rules holds the anti-cheat caps applied to every score submission. Values
// are fixed at deploy time via config.
type Rules struct {
	// MaxPointsPerSecond caps how fast a legitimate player can score.
	MaxPointsPerSecond int

	// MinPlayMS is the shortest acceptable run duration.
	MinPlayMS int64

	// MaxRunMS is the longest acceptable run duration.
	MaxRunMS int64

	// MaxScoreAbs is the absolute guardrail on a single submission.
	MaxScoreAbs int
}

// CheckScore validates the submitted score against the absolute guardrail.
func (r Rules) CheckScore(score int) error {
	if score < 0 || score > r.MaxScoreAbs {
		return apperr.New(apperr.InvalidArgument, "bad score payload")
	}
	return nil
}

// CheckDisplayName trims the name and validates its length, returning the
// trimmed form that gets stored.
func (r Rules) CheckDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < MinDisplayNameLen || len(trimmed) > MaxDisplayNameLen {
		return "", apperr.New(apperr.InvalidArgument, "bad display name")
	}
	return trimmed, nil
}

// CheckDuration validates that the run lasted long enough to be a real play
// session and not so long that the token is stale.
func (r Rules) CheckDuration(elapsed time.Duration) error {
	ms := elapsed.Milliseconds()
	if ms < r.MinPlayMS || ms > r.MaxRunMS {
		return apperr.New(apperr.FailedPrecondition, "run duration out of bounds")
	}
	return nil
}

// MaxAllowedScore returns the highest score permitted for a run of the given
// length: the ceiling of elapsed seconds times the per-second cap.
func (r Rules) MaxAllowedScore(elapsed time.Duration) int {
	ms := elapsed.Milliseconds()
	return int((ms*int64(r.MaxPointsPerSecond) + 999) / 1000)
}

// CheckRate rejects scores that exceed the rate cap for the elapsed time.
func (r Rules) CheckRate(score int, elapsed time.Duration) error {
	if score > r.MaxAllowedScore(elapsed) {
		return apperr.New(apperr.FailedPrecondition, "score exceeds allowed rate")
	}
	return nil
}
