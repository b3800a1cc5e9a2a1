package scoring

import (
	"fmt"
	"time"
)

// DefaultSubmissionCutoff is how long before kickoff guesses close.
const DefaultSubmissionCutoff = 60 * time.Minute

// Gate decides whether a guess may still be created or edited.
type Gate struct {
	Cutoff time.Duration
}

// NewGate returns a gate with the given cutoff, or the default one when
// cutoff is not positive.
func NewGate(cutoff time.Duration) Gate {
	if cutoff <= 0 {
		cutoff = DefaultSubmissionCutoff
	}
	return Gate{Cutoff: cutoff}
}

// IsOpen reports whether submissions are still accepted at now.
// Submissions close once kickoff is at most Cutoff away.
func (g Gate) IsOpen(kickoff, now time.Time) bool {
	return kickoff.Sub(now) > g.Cutoff
}

// ClosesAt returns the instant submissions close for a kickoff time.
func (g Gate) ClosesAt(kickoff time.Time) time.Time {
	return kickoff.Add(-g.Cutoff)
}

// Check returns ErrSubmissionClosed when the gate is closed.
func (g Gate) Check(kickoff, now time.Time) error {
	if !g.IsOpen(kickoff, now) {
		return fmt.Errorf("%w: closed at %s", ErrSubmissionClosed, g.ClosesAt(kickoff).Format(time.RFC3339))
	}
	return nil
}

// OpenAfter returns the instant a kickoff must be strictly after for
// submissions to be open at now.
func (g Gate) OpenAfter(now time.Time) time.Time {
	return now.Add(g.Cutoff)
}
