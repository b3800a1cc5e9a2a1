package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bolao-bot/internal/model"
)

// SnapshotRepository reads the leaderboard inputs as one consistent view.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository instance.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Snapshot runs every leaderboard read inside a single read-only
// REPEATABLE READ transaction, so every guess and bet it returns refers
// to a match, team and profile present in the same result.
func (r *SnapshotRepository) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

	err := pgx.BeginTxFunc(ctx, r.pool, opts, func(tx pgx.Tx) (err error) {
		snap.Profiles, err = collect[model.Profile](ctx, tx, "profiles",
			`SELECT id, name, avatar_url, created_at FROM profiles ORDER BY id`)
		if err != nil {
			return err
		}
		snap.Matches, err = collect[model.Match](ctx, tx, "matches",
			`SELECT `+matchColumns+` FROM matches ORDER BY kickoff_time, id`)
		if err != nil {
			return err
		}
		snap.Guesses, err = collect[model.ScoreGuess](ctx, tx, "guesses",
			`SELECT `+guessColumns+` FROM guesses ORDER BY user_id, match_id`)
		if err != nil {
			return err
		}
		snap.SurvivorBets, err = collect[model.SurvivorBet](ctx, tx, "survivor bets",
			`SELECT user_id, team_id FROM survivor_bets ORDER BY user_id`)
		if err != nil {
			return err
		}
		snap.ChampionBets, err = collect[model.ChampionBet](ctx, tx, "champion bets",
			`SELECT user_id, team_id FROM champion_bets ORDER BY user_id`)
		return err
	})
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return snap, nil
}

func collect[T any](ctx context.Context, tx pgx.Tx, what, query string) ([]T, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	return items, nil
}
