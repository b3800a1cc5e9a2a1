package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bolao-bot/internal/model"
)

const teamColumns = `id, name, logo_url, country, is_brazilian`

// TeamRepository handles team reference data.
type TeamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository creates a new TeamRepository instance.
func NewTeamRepository(pool *pgxpool.Pool) *TeamRepository {
	return &TeamRepository{pool: pool}
}

// Create inserts a team. Returns ErrDuplicate when the name is taken.
func (r *TeamRepository) Create(ctx context.Context, team model.Team) (*model.Team, error) {
	const query = `
		INSERT INTO teams (name, logo_url, country, is_brazilian)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + teamColumns

	rows, err := r.pool.Query(ctx, query, team.Name, team.LogoURL, team.Country, team.IsBrazilian)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Team])
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return nil, fmt.Errorf("team %q: %w", team.Name, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return &created, nil
}

// GetByID retrieves a team. Returns ErrNotFound if it does not exist.
func (r *TeamRepository) GetByID(ctx context.Context, id int64) (*model.Team, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	team, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Team])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &team, nil
}

// List returns every team ordered by name.
func (r *TeamRepository) List(ctx context.Context) ([]model.Team, error) {
	return r.list(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY name, id`)
}

// ListBrazilian returns the Brazilian teams ordered by name.
func (r *TeamRepository) ListBrazilian(ctx context.Context) ([]model.Team, error) {
	return r.list(ctx, `SELECT `+teamColumns+` FROM teams WHERE is_brazilian ORDER BY name, id`)
}

func (r *TeamRepository) list(ctx context.Context, query string) ([]model.Team, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Team])
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}
