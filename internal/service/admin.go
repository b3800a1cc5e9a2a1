package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/model"
	"bolao-bot/internal/repository"
	"bolao-bot/internal/scoring"
)

// RecordResult sets the final score of a match. Only operators may call it
// and a result can be recorded once.
func (s *PoolService) RecordResult(ctx context.Context, operatorID, matchID int64, homeScore, awayScore int) (*model.Match, error) {
	if err := s.requireOperator(operatorID); err != nil {
		return nil, err
	}
	if homeScore < 0 || awayScore < 0 {
		return nil, fmt.Errorf("%w: final scores must be non-negative", scoring.ErrInvalidInput)
	}

	match, err := s.stores.Matches.RecordResult(ctx, matchID, homeScore, awayScore)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %d", ErrMatchNotFound, matchID)
	case errors.Is(err, repository.ErrAlreadySet):
		return nil, fmt.Errorf("%w: match %d", ErrResultAlreadySet, matchID)
	default:
		return nil, unavailable("record result", err)
	}

	log.Info().
		Int64("admin_id", operatorID).
		Int64("match_id", matchID).
		Int("home_score", homeScore).
		Int("away_score", awayScore).
		Msg("Result recorded")

	s.metrics.ResultRecorded()
	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeResult, MatchID: matchID})
	return match, nil
}

// AddTeam creates a team. Operators only.
func (s *PoolService) AddTeam(ctx context.Context, operatorID int64, team model.Team) (*model.Team, error) {
	if err := s.requireOperator(operatorID); err != nil {
		return nil, err
	}
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return nil, fmt.Errorf("%w: team name is required", scoring.ErrInvalidInput)
	}

	created, err := s.stores.Teams.Create(ctx, team)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %q", ErrTeamExists, team.Name)
	}
	if err != nil {
		return nil, unavailable("create team", err)
	}

	log.Info().
		Int64("admin_id", operatorID).
		Int64("team_id", created.ID).
		Str("name", created.Name).
		Bool("is_brazilian", created.IsBrazilian).
		Msg("Team created")

	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeTeam})
	return created, nil
}

// AddMatch schedules a match between two existing teams. Operators only.
func (s *PoolService) AddMatch(ctx context.Context, operatorID, homeTeamID, awayTeamID int64, kickoff time.Time) (*model.Match, error) {
	if err := s.requireOperator(operatorID); err != nil {
		return nil, err
	}
	if homeTeamID == awayTeamID {
		return nil, fmt.Errorf("%w: a team cannot play itself", scoring.ErrInvalidInput)
	}
	if kickoff.IsZero() {
		return nil, fmt.Errorf("%w: kickoff time is required", scoring.ErrInvalidInput)
	}

	match, err := s.stores.Matches.Create(ctx, homeTeamID, awayTeamID, kickoff)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d or %d", ErrTeamNotFound, homeTeamID, awayTeamID)
	}
	if err != nil {
		return nil, unavailable("create match", err)
	}

	log.Info().
		Int64("admin_id", operatorID).
		Int64("match_id", match.ID).
		Time("kickoff", match.KickoffTime).
		Msg("Match scheduled")

	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeMatch, MatchID: match.ID})
	return match, nil
}

func (s *PoolService) requireOperator(userID int64) error {
	if userID == 0 {
		return ErrUnauthenticated
	}
	if !s.isOperator(userID) {
		return ErrForbidden
	}
	return nil
}
