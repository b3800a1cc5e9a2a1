package service

import (
	"context"
	"time"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/model"
)

// ProfileStore persists participant profiles.
type ProfileStore interface {
	Upsert(ctx context.Context, id int64, name string, avatarURL *string) (*model.Profile, error)
	GetByID(ctx context.Context, id int64) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
}

// TeamStore persists teams.
type TeamStore interface {
	Create(ctx context.Context, team model.Team) (*model.Team, error)
	GetByID(ctx context.Context, id int64) (*model.Team, error)
	List(ctx context.Context) ([]model.Team, error)
	ListBrazilian(ctx context.Context) ([]model.Team, error)
}

// MatchStore persists matches and their results.
type MatchStore interface {
	Create(ctx context.Context, homeTeamID, awayTeamID int64, kickoff time.Time) (*model.Match, error)
	GetByID(ctx context.Context, id int64) (*model.Match, error)
	List(ctx context.Context) ([]model.Match, error)
	ListFinalized(ctx context.Context) ([]model.Match, error)
	ListWithTeams(ctx context.Context) ([]model.MatchWithTeams, error)
	RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*model.Match, error)
}

// GuessStore persists score guesses. Upsert only writes when the match
// kicks off after closesBefore.
type GuessStore interface {
	Upsert(ctx context.Context, userID, matchID int64, homeGuess, awayGuess int, closesBefore time.Time) (*model.ScoreGuess, error)
	List(ctx context.Context, userID *int64) ([]model.ScoreGuess, error)
	ListByMatch(ctx context.Context, matchID int64) ([]model.GuessWithProfile, error)
}

// BetStore persists the survivor and champion bets.
type BetStore interface {
	UpsertSurvivor(ctx context.Context, userID, teamID int64) (*model.SurvivorBet, error)
	UpsertChampion(ctx context.Context, userID, teamID int64) (*model.ChampionBet, error)
	GetSurvivor(ctx context.Context, userID int64) (*model.SurvivorBet, error)
	GetChampion(ctx context.Context, userID int64) (*model.ChampionBet, error)
	ListSurvivor(ctx context.Context) ([]model.SurvivorBet, error)
	ListChampion(ctx context.Context) ([]model.ChampionBet, error)
	ListChampionViews(ctx context.Context) ([]model.ChampionBetView, error)
}

// SnapshotStore reads every leaderboard input as one consistent view.
type SnapshotStore interface {
	Snapshot(ctx context.Context) (model.Snapshot, error)
}

// Stores bundles the persistence dependencies. Snapshots is optional;
// without it the leaderboard inputs are read store by store.
type Stores struct {
	Profiles  ProfileStore
	Teams     TeamStore
	Matches   MatchStore
	Guesses   GuessStore
	Bets      BetStore
	Snapshots SnapshotStore
}

// LeaderboardCache stores computed leaderboards by generation.
type LeaderboardCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, dst any) (bool, error)
	Set(ctx context.Context, gen int64, v any) error
	Invalidate(ctx context.Context) (int64, error)
}

// ChangePublisher announces writes to other instances.
type ChangePublisher interface {
	Publish(ctx context.Context, ev cache.ChangeEvent) error
}

// ChangeSubscriber delivers change events until ctx is done.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, handle func(context.Context, cache.ChangeEvent)) error
}
