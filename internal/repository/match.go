package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bolao-bot/internal/model"
)

const matchColumns = `id, home_team_id, away_team_id, kickoff_time, home_score, away_score`

// MatchRepository handles scheduled matches and their results.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

// Create schedules a match without a result.
// Returns ErrNotFound when either team does not exist.
func (r *MatchRepository) Create(ctx context.Context, homeTeamID, awayTeamID int64, kickoff time.Time) (*model.Match, error) {
	const query = `
		INSERT INTO matches (home_team_id, away_team_id, kickoff_time)
		VALUES ($1, $2, $3)
		RETURNING ` + matchColumns

	rows, err := r.pool.Query(ctx, query, homeTeamID, awayTeamID, kickoff)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	match, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Match])
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("match teams %d/%d: %w", homeTeamID, awayTeamID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return &match, nil
}

// GetByID retrieves a match. Returns ErrNotFound if it does not exist.
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*model.Match, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	match, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Match])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &match, nil
}

// List returns every match ordered by kickoff.
func (r *MatchRepository) List(ctx context.Context) ([]model.Match, error) {
	return r.list(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY kickoff_time, id`)
}

// ListFinalized returns the matches with both scores recorded, ordered by kickoff.
func (r *MatchRepository) ListFinalized(ctx context.Context) ([]model.Match, error) {
	return r.list(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE home_score IS NOT NULL AND away_score IS NOT NULL
		ORDER BY kickoff_time, id`)
}

func (r *MatchRepository) list(ctx context.Context, query string) ([]model.Match, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	matches, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Match])
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

// ListWithTeams returns every match joined with both teams, ordered by kickoff.
func (r *MatchRepository) ListWithTeams(ctx context.Context) ([]model.MatchWithTeams, error) {
	const query = `
		SELECT m.id, m.home_team_id, m.away_team_id, m.kickoff_time, m.home_score, m.away_score,
			h.id, h.name, h.logo_url, h.country, h.is_brazilian,
			a.id, a.name, a.logo_url, a.country, a.is_brazilian
		FROM matches m
		JOIN teams h ON h.id = m.home_team_id
		JOIN teams a ON a.id = m.away_team_id
		ORDER BY m.kickoff_time, m.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches with teams: %w", err)
	}
	defer rows.Close()

	var matches []model.MatchWithTeams
	for rows.Next() {
		var m model.MatchWithTeams
		err := rows.Scan(
			&m.ID, &m.HomeTeamID, &m.AwayTeamID, &m.KickoffTime, &m.HomeScore, &m.AwayScore,
			&m.HomeTeam.ID, &m.HomeTeam.Name, &m.HomeTeam.LogoURL, &m.HomeTeam.Country, &m.HomeTeam.IsBrazilian,
			&m.AwayTeam.ID, &m.AwayTeam.Name, &m.AwayTeam.LogoURL, &m.AwayTeam.Country, &m.AwayTeam.IsBrazilian,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// RecordResult sets the final score of a match exactly once.
// Returns ErrNotFound for an unknown match and ErrAlreadySet when a
// result is already recorded.
func (r *MatchRepository) RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*model.Match, error) {
	const query = `
		UPDATE matches
		SET home_score = $2, away_score = $3
		WHERE id = $1 AND home_score IS NULL AND away_score IS NULL
		RETURNING ` + matchColumns

	rows, err := r.pool.Query(ctx, query, id, homeScore, awayScore)
	if err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}
	match, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.Match])
	if err == nil {
		return &match, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("match %d: %w", id, ErrAlreadySet)
}
