package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bolao-bot/internal/model"
)

// BetRepository handles the survivor and champion bonus bets.
type BetRepository struct {
	pool *pgxpool.Pool
}

// NewBetRepository creates a new BetRepository instance.
func NewBetRepository(pool *pgxpool.Pool) *BetRepository {
	return &BetRepository{pool: pool}
}

// UpsertSurvivor writes the user's survivor bet. The team must exist and be
// Brazilian; otherwise nothing is written and ErrRejected is returned.
func (r *BetRepository) UpsertSurvivor(ctx context.Context, userID, teamID int64) (*model.SurvivorBet, error) {
	const query = `
		INSERT INTO survivor_bets (user_id, team_id, created_at, updated_at)
		SELECT $1, t.id, NOW(), NOW()
		FROM teams t
		WHERE t.id = $2 AND t.is_brazilian
		ON CONFLICT (user_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			updated_at = NOW()
		RETURNING user_id, team_id
	`

	rows, err := r.pool.Query(ctx, query, userID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert survivor bet: %w", err)
	}
	bet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.SurvivorBet])
	if err != nil {
		return nil, upsertBetError("survivor", userID, err)
	}
	return &bet, nil
}

// UpsertChampion writes the user's champion bet. Returns ErrRejected when
// the team does not exist.
func (r *BetRepository) UpsertChampion(ctx context.Context, userID, teamID int64) (*model.ChampionBet, error) {
	const query = `
		INSERT INTO champion_bets (user_id, team_id, created_at, updated_at)
		SELECT $1, t.id, NOW(), NOW()
		FROM teams t
		WHERE t.id = $2
		ON CONFLICT (user_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			updated_at = NOW()
		RETURNING user_id, team_id
	`

	rows, err := r.pool.Query(ctx, query, userID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert champion bet: %w", err)
	}
	bet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.ChampionBet])
	if err != nil {
		return nil, upsertBetError("champion", userID, err)
	}
	return &bet, nil
}

func upsertBetError(kind string, userID int64, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrRejected
	case isPgError(err, pgForeignKeyViolation):
		return fmt.Errorf("profile %d: %w", userID, ErrNotFound)
	default:
		return fmt.Errorf("failed to upsert %s bet: %w", kind, err)
	}
}

// GetSurvivor returns the user's survivor bet or ErrNotFound.
func (r *BetRepository) GetSurvivor(ctx context.Context, userID int64) (*model.SurvivorBet, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, team_id FROM survivor_bets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get survivor bet: %w", err)
	}
	bet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.SurvivorBet])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get survivor bet: %w", err)
	}
	return &bet, nil
}

// GetChampion returns the user's champion bet or ErrNotFound.
func (r *BetRepository) GetChampion(ctx context.Context, userID int64) (*model.ChampionBet, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, team_id FROM champion_bets WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get champion bet: %w", err)
	}
	bet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.ChampionBet])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get champion bet: %w", err)
	}
	return &bet, nil
}

// ListSurvivor returns every survivor bet.
func (r *BetRepository) ListSurvivor(ctx context.Context) ([]model.SurvivorBet, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, team_id FROM survivor_bets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list survivor bets: %w", err)
	}
	bets, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.SurvivorBet])
	if err != nil {
		return nil, fmt.Errorf("failed to list survivor bets: %w", err)
	}
	return bets, nil
}

// ListChampion returns every champion bet.
func (r *BetRepository) ListChampion(ctx context.Context) ([]model.ChampionBet, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, team_id FROM champion_bets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list champion bets: %w", err)
	}
	bets, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.ChampionBet])
	if err != nil {
		return nil, fmt.Errorf("failed to list champion bets: %w", err)
	}
	return bets, nil
}

// ListChampionViews returns every champion bet joined with the team and
// the bettor, ordered by bettor name.
func (r *BetRepository) ListChampionViews(ctx context.Context) ([]model.ChampionBetView, error) {
	const query = `
		SELECT b.user_id, b.team_id, t.name, p.name, p.avatar_url
		FROM champion_bets b
		JOIN teams t ON t.id = b.team_id
		JOIN profiles p ON p.id = b.user_id
		ORDER BY p.name, b.user_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list champion bets: %w", err)
	}
	defer rows.Close()

	var views []model.ChampionBetView
	for rows.Next() {
		var v model.ChampionBetView
		if err := rows.Scan(&v.UserID, &v.TeamID, &v.TeamName, &v.UserName, &v.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan champion bet: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating champion bets: %w", err)
	}

	return views, nil
}
