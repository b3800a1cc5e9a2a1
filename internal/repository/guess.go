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

const guessColumns = `user_id, match_id, home_guess, away_guess, updated_at`

// GuessRepository handles score guesses.
type GuessRepository struct {
	pool *pgxpool.Pool
}

// NewGuessRepository creates a new GuessRepository instance.
func NewGuessRepository(pool *pgxpool.Pool) *GuessRepository {
	return &GuessRepository{pool: pool}
}

// Upsert writes the user's guess for a match if the match kicks off
// strictly after closesBefore. The gate check and the write are a single
// statement. Returns ErrRejected when the match does not exist or is closed.
func (r *GuessRepository) Upsert(ctx context.Context, userID, matchID int64, homeGuess, awayGuess int, closesBefore time.Time) (*model.ScoreGuess, error) {
	const query = `
		INSERT INTO guesses (user_id, match_id, home_guess, away_guess, created_at, updated_at)
		SELECT $1, m.id, $3, $4, NOW(), NOW()
		FROM matches m
		WHERE m.id = $2 AND m.kickoff_time > $5
		ON CONFLICT (user_id, match_id) DO UPDATE SET
			home_guess = EXCLUDED.home_guess,
			away_guess = EXCLUDED.away_guess,
			updated_at = NOW()
		RETURNING ` + guessColumns

	rows, err := r.pool.Query(ctx, query, userID, matchID, homeGuess, awayGuess, closesBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert guess: %w", err)
	}
	guess, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[model.ScoreGuess])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRejected
		}
		if isPgError(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("profile %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to upsert guess: %w", err)
	}
	return &guess, nil
}

// List returns guesses, restricted to one user when userID is non-nil.
func (r *GuessRepository) List(ctx context.Context, userID *int64) ([]model.ScoreGuess, error) {
	const query = `
		SELECT ` + guessColumns + ` FROM guesses
		WHERE $1::BIGINT IS NULL OR user_id = $1
		ORDER BY user_id, match_id
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	guesses, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.ScoreGuess])
	if err != nil {
		return nil, fmt.Errorf("failed to list guesses: %w", err)
	}
	return guesses, nil
}

// ListByMatch returns every guess for a match joined with its author,
// most recently changed first.
func (r *GuessRepository) ListByMatch(ctx context.Context, matchID int64) ([]model.GuessWithProfile, error) {
	const query = `
		SELECT g.user_id, g.match_id, g.home_guess, g.away_guess, g.updated_at, p.name, p.avatar_url
		FROM guesses g
		JOIN profiles p ON p.id = g.user_id
		WHERE g.match_id = $1
		ORDER BY g.updated_at DESC, g.user_id
	`

	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match guesses: %w", err)
	}
	defer rows.Close()

	var guesses []model.GuessWithProfile
	for rows.Next() {
		var g model.GuessWithProfile
		err := rows.Scan(&g.UserID, &g.MatchID, &g.HomeGuess, &g.AwayGuess, &g.UpdatedAt, &g.Name, &g.AvatarURL)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guess: %w", err)
		}
		guesses = append(guesses, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guesses: %w", err)
	}

	return guesses, nil
}
