// Package model defines the data models for the bolão bot.
package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRow is returned when a stored row violates a field domain.
var ErrInvalidRow = errors.New("invalid row")

// Profile represents a pool participant. The ID is the Telegram user ID.
type Profile struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	AvatarURL *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Team is static reference data.
type Team struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	LogoURL     *string `db:"logo_url" json:"logo_url,omitempty"`
	Country     *string `db:"country" json:"country,omitempty"`
	IsBrazilian bool    `db:"is_brazilian" json:"is_brazilian"`
}

// Match is a scheduled game. HomeScore and AwayScore are nil until the
// result is recorded.
type Match struct {
	ID          int64     `db:"id" json:"id"`
	HomeTeamID  int64     `db:"home_team_id" json:"home_team_id"`
	AwayTeamID  int64     `db:"away_team_id" json:"away_team_id"`
	KickoffTime time.Time `db:"kickoff_time" json:"kickoff_time"`
	HomeScore   *int      `db:"home_score" json:"home_score"`
	AwayScore   *int      `db:"away_score" json:"away_score"`
}

// Finalized reports whether both final scores are recorded.
func (m Match) Finalized() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// Validate checks the score pair is both-null or both-set and non-negative.
func (m Match) Validate() error {
	if (m.HomeScore == nil) != (m.AwayScore == nil) {
		return fmt.Errorf("%w: match %d has only one score set", ErrInvalidRow, m.ID)
	}
	if m.Finalized() && (*m.HomeScore < 0 || *m.AwayScore < 0) {
		return fmt.Errorf("%w: match %d has a negative score", ErrInvalidRow, m.ID)
	}
	if m.HomeTeamID == m.AwayTeamID {
		return fmt.Errorf("%w: match %d has the same team on both sides", ErrInvalidRow, m.ID)
	}
	return nil
}

// MatchWithTeams is a match joined with both teams' metadata.
type MatchWithTeams struct {
	Match
	HomeTeam Team `json:"home_team"`
	AwayTeam Team `json:"away_team"`
}

// ScoreGuess is one user's predicted score for one match.
// Unique per (UserID, MatchID).
type ScoreGuess struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	MatchID   int64     `db:"match_id" json:"match_id"`
	HomeGuess int       `db:"home_guess" json:"home_guess"`
	AwayGuess int       `db:"away_guess" json:"away_guess"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks that both guessed scores are non-negative.
func (g ScoreGuess) Validate() error {
	if g.HomeGuess < 0 || g.AwayGuess < 0 {
		return fmt.Errorf("%w: guess by user %d for match %d is negative", ErrInvalidRow, g.UserID, g.MatchID)
	}
	return nil
}

// GuessWithProfile is a guess joined with its author's public profile.
type GuessWithProfile struct {
	ScoreGuess
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SurvivorBet is a user's bet on the Brazilian team that goes furthest.
// Unique per user; the team must be Brazilian.
type SurvivorBet struct {
	UserID int64 `db:"user_id" json:"user_id"`
	TeamID int64 `db:"team_id" json:"team_id"`
}

// ChampionBet is a user's bet on the overall tournament winner.
// Unique per user.
type ChampionBet struct {
	UserID int64 `db:"user_id" json:"user_id"`
	TeamID int64 `db:"team_id" json:"team_id"`
}

// ChampionBetView is a champion bet joined with team and profile names.
type ChampionBetView struct {
	ChampionBet
	TeamName  string  `json:"team_name"`
	UserName  string  `json:"user_name"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Snapshot is an immutable read of everything the leaderboard depends on.
type Snapshot struct {
	Profiles     []Profile
	Matches      []Match
	Guesses      []ScoreGuess
	SurvivorBets []SurvivorBet
	ChampionBets []ChampionBet
}
