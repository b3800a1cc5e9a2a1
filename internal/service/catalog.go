package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/model"
	"bolao-bot/internal/repository"
)

// MatchView is a match with both teams and its submission window.
type MatchView struct {
	model.MatchWithTeams
	Open     bool      `json:"open"`
	ClosesAt time.Time `json:"closes_at"`
}

// EnsureProfile creates the profile on first contact and refreshes the
// display name and avatar when they change.
func (s *PoolService) EnsureProfile(ctx context.Context, userID int64, name string, avatarURL *string) (*model.Profile, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)

	existing, err := s.stores.Profiles.GetByID(ctx, userID)
	switch {
	case err == nil:
		if !profileChanged(existing, name, avatarURL) {
			return existing, nil
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, unavailable("get profile", err)
	}

	profile, err := s.stores.Profiles.Upsert(ctx, userID, name, avatarURL)
	if err != nil {
		return nil, unavailable("upsert profile", err)
	}

	if existing == nil {
		log.Info().Int64("user_id", userID).Str("name", profile.Name).Msg("Profile created")
	}
	s.changed(ctx, cache.ChangeEvent{Kind: cache.ChangeProfile, UserID: userID})
	return profile, nil
}

func profileChanged(p *model.Profile, name string, avatarURL *string) bool {
	if name != "" && name != p.Name {
		return true
	}
	return avatarURL != nil && (p.AvatarURL == nil || *p.AvatarURL != *avatarURL)
}

// ListMatches returns every match by kickoff with its submission window.
func (s *PoolService) ListMatches(ctx context.Context) ([]MatchView, error) {
	matches, err := s.stores.Matches.ListWithTeams(ctx)
	if err != nil {
		return nil, unavailable("list matches", err)
	}

	now := s.now()
	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, MatchView{
			MatchWithTeams: m,
			Open:           s.gate.IsOpen(m.KickoffTime, now),
			ClosesAt:       s.gate.ClosesAt(m.KickoffTime),
		})
	}
	return views, nil
}

// ListMatchGuesses returns every participant's guess for a match.
func (s *PoolService) ListMatchGuesses(ctx context.Context, matchID int64) ([]model.GuessWithProfile, error) {
	if _, err := s.getMatch(ctx, matchID); err != nil {
		return nil, err
	}
	guesses, err := s.stores.Guesses.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, unavailable("list match guesses", err)
	}
	return guesses, nil
}

// ListUserGuesses returns the user's guesses.
func (s *PoolService) ListUserGuesses(ctx context.Context, userID int64) ([]model.ScoreGuess, error) {
	if userID == 0 {
		return nil, ErrUnauthenticated
	}
	guesses, err := s.stores.Guesses.List(ctx, &userID)
	if err != nil {
		return nil, unavailable("list user guesses", err)
	}
	return guesses, nil
}

// ListTeams returns every team ordered by name.
func (s *PoolService) ListTeams(ctx context.Context) ([]model.Team, error) {
	teams, err := s.stores.Teams.List(ctx)
	if err != nil {
		return nil, unavailable("list teams", err)
	}
	return teams, nil
}

// ListBrazilianTeams returns the Brazilian teams ordered by name, with the
// team the user currently backs as survivor moved to the front.
func (s *PoolService) ListBrazilianTeams(ctx context.Context, userID int64) ([]model.Team, error) {
	teams, err := s.stores.Teams.ListBrazilian(ctx)
	if err != nil {
		return nil, unavailable("list brazilian teams", err)
	}
	if userID == 0 {
		return teams, nil
	}

	bet, err := s.SurvivorBet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if bet == nil {
		return teams, nil
	}
	for i, t := range teams {
		if t.ID == bet.TeamID {
			ordered := make([]model.Team, 0, len(teams))
			ordered = append(ordered, t)
			ordered = append(ordered, teams[:i]...)
			return append(ordered, teams[i+1:]...), nil
		}
	}
	return teams, nil
}

// ListChampionBets returns every champion bet with team and bettor names.
func (s *PoolService) ListChampionBets(ctx context.Context) ([]model.ChampionBetView, error) {
	views, err := s.stores.Bets.ListChampionViews(ctx)
	if err != nil {
		return nil, unavailable("list champion bets", err)
	}
	return views, nil
}

// SurvivorBet returns the user's survivor bet, or nil when none was placed.
func (s *PoolService) SurvivorBet(ctx context.Context, userID int64) (*model.SurvivorBet, error) {
	bet, err := s.stores.Bets.GetSurvivor(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get survivor bet", err)
	}
	return bet, nil
}

// ChampionBet returns the user's champion bet, or nil when none was placed.
func (s *PoolService) ChampionBet(ctx context.Context, userID int64) (*model.ChampionBet, error) {
	bet, err := s.stores.Bets.GetChampion(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get champion bet", err)
	}
	return bet, nil
}

// FindTeam resolves a team by numeric ID or by name. Names match ignoring
// case and accents, so "sao paulo" finds "São Paulo".
func (s *PoolService) FindTeam(ctx context.Context, ref string) (*model.Team, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.getTeam(ctx, id)
	}

	teams, err := s.stores.Teams.List(ctx)
	if err != nil {
		return nil, unavailable("list teams", err)
	}
	col := collate.New(language.BrazilianPortuguese, collate.IgnoreCase, collate.IgnoreDiacritics)
	for _, t := range teams {
		if col.CompareString(t.Name, ref) == 0 {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrTeamNotFound, ref)
}

func (s *PoolService) getMatch(ctx context.Context, matchID int64) (*model.Match, error) {
	match, err := s.stores.Matches.GetByID(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrMatchNotFound, matchID)
	}
	if err != nil {
		return nil, unavailable("get match", err)
	}
	return match, nil
}

func (s *PoolService) getTeam(ctx context.Context, teamID int64) (*model.Team, error) {
	team, err := s.stores.Teams.GetByID(ctx, teamID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTeamNotFound, teamID)
	}
	if err != nil {
		return nil, unavailable("get team", err)
	}
	return team, nil
}
