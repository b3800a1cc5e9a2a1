// Package scoring computes guess hits, bonus outcomes and the ranked
// leaderboard of the pool. Every function here is a pure fold over a
// snapshot; nothing reads the clock or the database.
package scoring

import (
	"fmt"

	"bolao-bot/internal/model"
)

// Outcome is the result of a match from the home side's perspective.
type Outcome int

const (
	Draw Outcome = iota
	HomeWin
	AwayWin
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "home"
	case AwayWin:
		return "away"
	default:
		return "draw"
	}
}

// OutcomeOf returns the outcome implied by a score pair.
func OutcomeOf(home, away int) Outcome {
	switch {
	case home > away:
		return HomeWin
	case home < away:
		return AwayWin
	default:
		return Draw
	}
}

// Hit classifies a single guess against a final score.
type Hit int

const (
	Miss Hit = iota
	WinnerHit
	ExactHit
)

// Classify compares a guess with a final score. An exact hit is never
// also counted as a winner hit.
func Classify(homeGuess, awayGuess, homeScore, awayScore int) Hit {
	if homeGuess == homeScore && awayGuess == awayScore {
		return ExactHit
	}
	if OutcomeOf(homeGuess, awayGuess) == OutcomeOf(homeScore, awayScore) {
		return WinnerHit
	}
	return Miss
}

// Score is a user's hit tally over finalized matches.
type Score struct {
	ExactScoreHits int `json:"exact_score_hits"`
	WinnerHits     int `json:"winner_hits"`
}

// Points returns the base points of the tally, without bonuses.
func (s Score) Points() int {
	return s.ExactScoreHits*ExactHitPoints + s.WinnerHits*WinnerHitPoints
}

func (s *Score) add(h Hit) {
	switch h {
	case ExactHit:
		s.ExactScoreHits++
	case WinnerHit:
		s.WinnerHits++
	}
}

// IndexMatches validates every match and indexes it by ID.
func IndexMatches(matches []model.Match) (map[int64]model.Match, error) {
	index := make(map[int64]model.Match, len(matches))
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		index[m.ID] = m
	}
	return index, nil
}

// Evaluate tallies one user's guesses. matches must contain every known
// match, finalized or not; guesses for matches without a result are
// ignored, guesses for unknown matches are rejected.
func Evaluate(guesses []model.ScoreGuess, matches map[int64]model.Match) (Score, error) {
	var score Score
	for _, g := range guesses {
		hit, err := evaluateGuess(g, matches)
		if err != nil {
			return Score{}, err
		}
		score.add(hit)
	}
	return score, nil
}

// EvaluateAll tallies the guesses of every user found in guesses.
func EvaluateAll(guesses []model.ScoreGuess, matches map[int64]model.Match) (map[int64]Score, error) {
	scores := make(map[int64]Score)
	for _, g := range guesses {
		hit, err := evaluateGuess(g, matches)
		if err != nil {
			return nil, err
		}
		s := scores[g.UserID]
		s.add(hit)
		scores[g.UserID] = s
	}
	return scores, nil
}

func evaluateGuess(g model.ScoreGuess, matches map[int64]model.Match) (Hit, error) {
	if err := g.Validate(); err != nil {
		return Miss, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	m, ok := matches[g.MatchID]
	if !ok {
		return Miss, fmt.Errorf("%w: guess by user %d references unknown match %d", ErrInvalidInput, g.UserID, g.MatchID)
	}
	if !m.Finalized() {
		return Miss, nil
	}
	return Classify(g.HomeGuess, g.AwayGuess, *m.HomeScore, *m.AwayScore), nil
}
