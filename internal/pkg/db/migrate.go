package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "profiles table",
		sql: `
		CREATE TABLE IF NOT EXISTS profiles (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
	{
		name: "teams table",
		sql: `
		CREATE TABLE IF NOT EXISTS teams (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			logo_url TEXT,
			country TEXT,
			is_brazilian BOOLEAN NOT NULL DEFAULT FALSE
		);
		CREATE INDEX IF NOT EXISTS idx_teams_brazilian ON teams(name) WHERE is_brazilian;`,
	},
	{
		name: "matches table",
		sql: `
		CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			home_team_id BIGINT NOT NULL REFERENCES teams(id),
			away_team_id BIGINT NOT NULL REFERENCES teams(id),
			kickoff_time TIMESTAMPTZ NOT NULL,
			home_score INT,
			away_score INT,
			CONSTRAINT matches_distinct_teams CHECK (home_team_id <> away_team_id),
			CONSTRAINT matches_score_pair CHECK ((home_score IS NULL) = (away_score IS NULL)),
			CONSTRAINT matches_score_range CHECK (home_score >= 0 AND away_score >= 0)
		);
		CREATE INDEX IF NOT EXISTS idx_matches_kickoff ON matches(kickoff_time, id);`,
	},
	{
		name: "guesses table",
		sql: `
		CREATE TABLE IF NOT EXISTS guesses (
			user_id BIGINT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			match_id BIGINT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			home_guess INT NOT NULL CHECK (home_guess >= 0),
			away_guess INT NOT NULL CHECK (away_guess >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, match_id)
		);
		CREATE INDEX IF NOT EXISTS idx_guesses_match ON guesses(match_id);`,
	},
	{
		name: "bet tables",
		sql: `
		CREATE TABLE IF NOT EXISTS survivor_bets (
			user_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			team_id BIGINT NOT NULL REFERENCES teams(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS champion_bets (
			user_id BIGINT PRIMARY KEY REFERENCES profiles(id) ON DELETE CASCADE,
			team_id BIGINT NOT NULL REFERENCES teams(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	},
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// Migrate applies the schema on this pool.
func (p *Pool) Migrate(ctx context.Context) error {
	return Migrate(ctx, p.Pool)
}
