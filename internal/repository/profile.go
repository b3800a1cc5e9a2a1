package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bolao-bot/internal/model"
)

// ProfileRepository handles participant profiles.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository instance.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// Upsert creates the profile or refreshes its name and avatar.
// An empty name or nil avatar keeps the stored value.
func (r *ProfileRepository) Upsert(ctx context.Context, id int64, name string, avatarURL *string) (*model.Profile, error) {
	const query = `
		INSERT INTO profiles (id, name, avatar_url, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE profiles.name END,
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url)
		RETURNING id, name, avatar_url, created_at
	`

	rows, err := r.pool.Query(ctx, query, id, name, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	profile, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile: %w", err)
	}
	return &profile, nil
}

// GetByID retrieves a profile by its Telegram user ID.
// Returns ErrNotFound if the profile does not exist.
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	const query = `SELECT id, name, avatar_url, created_at FROM profiles WHERE id = $1`

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	profile, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Profile])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

// List returns every profile ordered by ID.
func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	const query = `SELECT id, name, avatar_url, created_at FROM profiles ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	profiles, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Profile])
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}
