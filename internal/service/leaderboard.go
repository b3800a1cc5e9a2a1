package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/metrics"
	"bolao-bot/internal/model"
	"bolao-bot/internal/scoring"
)

// Leaderboard is a ranked leaderboard with the bonus teams it was built with.
type Leaderboard struct {
	Entries    []scoring.Entry `json:"entries"`
	Bonuses    scoring.Bonuses `json:"bonuses"`
	ComputedAt time.Time       `json:"computed_at"`
}

// Find returns the entry for userID.
func (l *Leaderboard) Find(userID int64) (scoring.Entry, bool) {
	for _, e := range l.Entries {
		if e.Profile.ID == userID {
			return e, true
		}
	}
	return scoring.Entry{}, false
}

// BonusStatus shows how the survivor and champion bets stand.
type BonusStatus struct {
	Survivor       []scoring.SurvivorProgress `json:"survivor"`
	Champion       []scoring.ChampionProgress `json:"champion"`
	SurvivorTeamID *int64                     `json:"survivor_team_id"`
	ChampionTeamID *int64                     `json:"champion_team_id"`
}

// loadSnapshot reads everything the leaderboard depends on. Without a
// SnapshotStore the matches are read only after the guesses, so every
// guess refers to a listed match even while writes land between reads.
// Any failure aborts the whole read.
func (s *PoolService) loadSnapshot(ctx context.Context) (model.Snapshot, error) {
	if s.stores.Snapshots != nil {
		snap, err := s.stores.Snapshots.Snapshot(ctx)
		if err != nil {
			return model.Snapshot{}, unavailable("load snapshot", err)
		}
		return snap, nil
	}

	var snap model.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		snap.Profiles, err = s.stores.Profiles.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.Guesses, err = s.stores.Guesses.List(gctx, nil)
		return err
	})
	g.Go(func() (err error) {
		snap.SurvivorBets, err = s.stores.Bets.ListSurvivor(gctx)
		return err
	})
	g.Go(func() (err error) {
		snap.ChampionBets, err = s.stores.Bets.ListChampion(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Snapshot{}, unavailable("load snapshot", err)
	}

	matches, err := s.stores.Matches.List(ctx)
	if err != nil {
		return model.Snapshot{}, unavailable("load snapshot", err)
	}
	snap.Matches = matches
	return snap, nil
}

// ComputeLeaderboard returns the ranked leaderboard, served from the cache
// when the current generation is stored.
func (s *PoolService) ComputeLeaderboard(ctx context.Context) (*Leaderboard, error) {
	gen, cached := s.cachedGeneration(ctx)
	if cached {
		var lb Leaderboard
		found, err := s.cache.Get(ctx, gen, &lb)
		if err != nil {
			log.Warn().Err(err).Int64("generation", gen).Msg("Leaderboard cache read failed")
		}
		if found {
			s.metrics.Leaderboard(metrics.SourceCache)
			return &lb, nil
		}
	}

	lb, err := s.computeLeaderboard(ctx)
	if err != nil {
		return nil, err
	}

	if cached {
		if err := s.cache.Set(ctx, gen, lb); err != nil {
			log.Warn().Err(err).Int64("generation", gen).Msg("Leaderboard cache write failed")
		}
	}
	return lb, nil
}

// RefreshLeaderboard recomputes the leaderboard and stores it under the
// current generation.
func (s *PoolService) RefreshLeaderboard(ctx context.Context) error {
	gen, cached := s.cachedGeneration(ctx)
	lb, err := s.computeLeaderboard(ctx)
	if err != nil {
		return err
	}
	if cached {
		return s.cache.Set(ctx, gen, lb)
	}
	return nil
}

func (s *PoolService) cachedGeneration(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache unavailable")
		return 0, false
	}
	return gen, true
}

func (s *PoolService) computeLeaderboard(ctx context.Context) (*Leaderboard, error) {
	start := time.Now()

	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	entries, bonuses, err := scoring.ComputeLeaderboard(snap)
	if err != nil {
		return nil, err
	}

	s.metrics.Leaderboard(metrics.SourceComputed)
	s.metrics.ObserveCompute(time.Since(start))

	return &Leaderboard{Entries: entries, Bonuses: bonuses, ComputedAt: s.now()}, nil
}

// ComputeUserScore counts the user's exact and winner hits. Matches are
// never deleted, so listing them after the guesses covers every guess.
func (s *PoolService) ComputeUserScore(ctx context.Context, userID int64) (scoring.Score, error) {
	guesses, err := s.stores.Guesses.List(ctx, &userID)
	if err != nil {
		return scoring.Score{}, unavailable("compute user score", err)
	}
	matches, err := s.stores.Matches.List(ctx)
	if err != nil {
		return scoring.Score{}, unavailable("compute user score", err)
	}

	index, err := scoring.IndexMatches(matches)
	if err != nil {
		return scoring.Score{}, err
	}
	return scoring.Evaluate(guesses, index)
}

// ResolveBrazilianSurvivor returns the winning survivor team, if decided.
func (s *PoolService) ResolveBrazilianSurvivor(ctx context.Context) (teamID int64, ok bool, err error) {
	bets, matches, err := s.survivorInputs(ctx)
	if err != nil {
		return 0, false, err
	}
	teamID, ok = scoring.ResolveBrazilianSurvivor(bets, matches)
	return teamID, ok, nil
}

// ResolveChampion returns the winning champion team, if decided.
func (s *PoolService) ResolveChampion(ctx context.Context) (teamID int64, ok bool, err error) {
	bets, matches, err := s.championInputs(ctx)
	if err != nil {
		return 0, false, err
	}
	teamID, ok = scoring.ResolveChampion(bets, matches)
	return teamID, ok, nil
}

// BonusStatus reports the per-team progress of both bonus bets.
func (s *PoolService) BonusStatus(ctx context.Context) (*BonusStatus, error) {
	var (
		survivorBets []model.SurvivorBet
		championBets []model.ChampionBet
		matches      []model.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		survivorBets, err = s.stores.Bets.ListSurvivor(gctx)
		return err
	})
	g.Go(func() (err error) {
		championBets, err = s.stores.Bets.ListChampion(gctx)
		return err
	})
	g.Go(func() (err error) {
		matches, err = s.stores.Matches.ListFinalized(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, unavailable("bonus status", err)
	}

	status := &BonusStatus{
		Survivor: scoring.SurvivorStandings(survivorBets, matches),
		Champion: scoring.ChampionStandings(championBets, matches),
	}
	if id, ok := scoring.ResolveBrazilianSurvivor(survivorBets, matches); ok {
		status.SurvivorTeamID = &id
	}
	if id, ok := scoring.ResolveChampion(championBets, matches); ok {
		status.ChampionTeamID = &id
	}
	return status, nil
}

func (s *PoolService) survivorInputs(ctx context.Context) ([]model.SurvivorBet, []model.Match, error) {
	var (
		bets    []model.SurvivorBet
		matches []model.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bets, err = s.stores.Bets.ListSurvivor(gctx)
		return err
	})
	g.Go(func() (err error) {
		matches, err = s.stores.Matches.ListFinalized(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, unavailable("resolve survivor", err)
	}
	return bets, matches, nil
}

func (s *PoolService) championInputs(ctx context.Context) ([]model.ChampionBet, []model.Match, error) {
	var (
		bets    []model.ChampionBet
		matches []model.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		bets, err = s.stores.Bets.ListChampion(gctx)
		return err
	})
	g.Go(func() (err error) {
		matches, err = s.stores.Matches.ListFinalized(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, unavailable("resolve champion", err)
	}
	return bets, matches, nil
}

// Watch subscribes to change events and refreshes the cached leaderboard
// on each one. It returns after the subscription is set up.
func (s *PoolService) Watch(ctx context.Context, sub ChangeSubscriber) error {
	return sub.Subscribe(ctx, func(ctx context.Context, ev cache.ChangeEvent) {
		if err := s.RefreshLeaderboard(ctx); err != nil {
			log.Warn().Err(err).Str("event_id", ev.ID).Str("kind", ev.Kind).Msg("Leaderboard refresh failed")
			return
		}
		log.Debug().Str("event_id", ev.ID).Str("kind", ev.Kind).Msg("Leaderboard refreshed")
	})
}
