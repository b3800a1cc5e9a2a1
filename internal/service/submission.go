package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/metrics"
	"bolao-bot/internal/model"
	"bolao-bot/internal/repository"
	"bolao-bot/internal/scoring"
)

// IsSubmissionOpen reports whether guesses for the match are accepted at now.
func (s *PoolService) IsSubmissionOpen(ctx context.Context, matchID int64, now time.Time) (bool, error) {
	match, err := s.getMatch(ctx, matchID)
	if err != nil {
		return false, err
	}
	return s.gate.IsOpen(match.KickoffTime, now), nil
}

// SubmitGuess creates or replaces the user's guess for a match. The gate
// check and the write happen in one statement.
func (s *PoolService) SubmitGuess(ctx context.Context, userID, matchID int64, homeGuess, awayGuess int) (*model.ScoreGuess, error) {
	guess, err := s.submitGuess(ctx, userID, matchID, homeGuess, awayGuess)
	s.metrics.Submission(metrics.KindGuess, resultLabel(err))
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Int64("match_id", matchID).Msg("Guess rejected")
		return nil, err
	}

	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeGuess, UserID: userID, MatchID: matchID})
	return guess, nil
}

func (s *PoolService) submitGuess(ctx context.Context, userID, matchID int64, homeGuess, awayGuess int) (*model.ScoreGuess, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if homeGuess < 0 || awayGuess < 0 {
		return nil, fmt.Errorf("%w: guessed scores must be non-negative", scoring.ErrInvalidInput)
	}

	now := s.now()
	guess, err := s.stores.Guesses.Upsert(ctx, userID, matchID, homeGuess, awayGuess, s.gate.OpenAfter(now))
	switch {
	case err == nil:
		return guess, nil
	case errors.Is(err, repository.ErrRejected):
		match, err := s.getMatch(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if err := s.gate.Check(match.KickoffTime, now); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: guess for match %d was not written", ErrDataUnavailable, matchID)
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: no profile for user %d", ErrUnauthenticated, userID)
	default:
		return nil, unavailable("submit guess", err)
	}
}

// PlaceSurvivorBet creates or replaces the user's Brazilian-survivor bet.
// The team must be Brazilian.
func (s *PoolService) PlaceSurvivorBet(ctx context.Context, userID, teamID int64) (*model.SurvivorBet, error) {
	bet, err := placeBet(ctx, s, userID, teamID, s.stores.Bets.UpsertSurvivor, "is not Brazilian")
	s.metrics.Submission(metrics.KindSurvivor, resultLabel(err))
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Int64("team_id", teamID).Msg("Survivor bet rejected")
		return nil, err
	}

	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeSurvivor, UserID: userID})
	return bet, nil
}

// PlaceChampionBet creates or replaces the user's champion bet.
func (s *PoolService) PlaceChampionBet(ctx context.Context, userID, teamID int64) (*model.ChampionBet, error) {
	bet, err := placeBet(ctx, s, userID, teamID, s.stores.Bets.UpsertChampion, "cannot be picked")
	s.metrics.Submission(metrics.KindChampion, resultLabel(err))
	if err != nil {
		log.Debug().Err(err).Int64("user_id", userID).Int64("team_id", teamID).Msg("Champion bet rejected")
		return nil, err
	}

	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeChampion, UserID: userID})
	return bet, nil
}

func placeBet[B any](
	ctx context.Context,
	s *PoolService,
	userID, teamID int64,
	upsert func(ctx context.Context, userID, teamID int64) (*B, error),
	rejectedReason string,
) (*B, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := s.checkBetsDeadline(); err != nil {
		return nil, err
	}

	bet, err := upsert(ctx, userID, teamID)
	switch {
	case err == nil:
		return bet, nil
	case errors.Is(err, repository.ErrRejected):
		if _, err := s.getTeam(ctx, teamID); err != nil {
			if errors.Is(err, ErrTeamNotFound) {
				return nil, fmt.Errorf("%w: %w", ErrInvalidTeam, err)
			}
			return nil, err
		}
		return nil, fmt.Errorf("%w: team %d %s", ErrInvalidTeam, teamID, rejectedReason)
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: no profile for user %d", ErrUnauthenticated, userID)
	default:
		return nil, unavailable("place bet", err)
	}
}

// BetsOpen reports whether survivor and champion bets are still accepted.
func (s *PoolService) BetsOpen() bool {
	return s.checkBetsDeadline() == nil
}

// BetsDeadline returns the configured bets deadline, if any.
func (s *PoolService) BetsDeadline() (time.Time, bool) {
	if s.betsDeadline == nil {
		return time.Time{}, false
	}
	return *s.betsDeadline, true
}

func (s *PoolService) checkBetsDeadline() error {
	if s.betsDeadline != nil && !s.now().Before(*s.betsDeadline) {
		return fmt.Errorf("%w: bets closed at %s", scoring.ErrSubmissionClosed, s.betsDeadline.Format(time.RFC3339))
	}
	return nil
}
