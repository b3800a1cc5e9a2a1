// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"bolao-bot/internal/model"
	"bolao-bot/internal/pkg/db"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container with the schema applied.
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

type fixture struct {
	profiles *ProfileRepository
	teams    *TeamRepository
	matches  *MatchRepository
	guesses  *GuessRepository
	bets     *BetRepository
}

func newFixture(pool *pgxpool.Pool) fixture {
	return fixture{
		profiles: NewProfileRepository(pool),
		teams:    NewTeamRepository(pool),
		matches:  NewMatchRepository(pool),
		guesses:  NewGuessRepository(pool),
		bets:     NewBetRepository(pool),
	}
}

func (f fixture) team(t *testing.T, name string, brazilian bool) *model.Team {
	t.Helper()
	team, err := f.teams.Create(context.Background(), model.Team{Name: name, IsBrazilian: brazilian})
	require.NoError(t, err)
	return team
}

// ============================================================================
// ProfileRepository Tests
// ============================================================================

func TestProfileRepository_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	created, err := f.profiles.Upsert(ctx, 12345, "Ana", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), created.ID)
	assert.Equal(t, "Ana", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	// An empty name keeps the stored one
	avatar := "https://example.com/ana.png"
	updated, err := f.profiles.Upsert(ctx, 12345, "", &avatar)
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, avatar, *updated.AvatarURL)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	renamed, err := f.profiles.Upsert(ctx, 12345, "Ana Paula", nil)
	require.NoError(t, err)
	assert.Equal(t, "Ana Paula", renamed.Name)
	assert.Equal(t, avatar, *renamed.AvatarURL)

	profiles, err := f.profiles.List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestProfileRepository_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewProfileRepository(pool).GetByID(context.Background(), 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// TeamRepository / MatchRepository Tests
// ============================================================================

func TestTeamRepository_CreateAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	f.team(t, "Palmeiras", true)
	f.team(t, "Boca Juniors", false)
	f.team(t, "Flamengo", true)

	_, err := f.teams.Create(ctx, model.Team{Name: "Flamengo"})
	assert.ErrorIs(t, err, ErrDuplicate)

	all, err := f.teams.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "Boca Juniors", all[0].Name)

	brazilian, err := f.teams.ListBrazilian(ctx)
	require.NoError(t, err)
	require.Len(t, brazilian, 2)
	assert.Equal(t, "Flamengo", brazilian[0].Name)
	assert.Equal(t, "Palmeiras", brazilian[1].Name)
}

func TestMatchRepository_RecordResultOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	home := f.team(t, "Palmeiras", true)
	away := f.team(t, "River Plate", false)

	match, err := f.matches.Create(ctx, home.ID, away.ID, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	assert.False(t, match.Finalized())

	finalized, err := f.matches.ListFinalized(ctx)
	require.NoError(t, err)
	assert.Empty(t, finalized)

	recorded, err := f.matches.RecordResult(ctx, match.ID, 2, 1)
	require.NoError(t, err)
	require.True(t, recorded.Finalized())
	assert.Equal(t, 2, *recorded.HomeScore)
	assert.Equal(t, 1, *recorded.AwayScore)

	_, err = f.matches.RecordResult(ctx, match.ID, 0, 0)
	assert.ErrorIs(t, err, ErrAlreadySet)

	_, err = f.matches.RecordResult(ctx, match.ID+1000, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	withTeams, err := f.matches.ListWithTeams(ctx)
	require.NoError(t, err)
	require.Len(t, withTeams, 1)
	assert.Equal(t, "Palmeiras", withTeams[0].HomeTeam.Name)
	assert.Equal(t, "River Plate", withTeams[0].AwayTeam.Name)
}

func TestMatchRepository_Create_UnknownTeam(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	home := f.team(t, "Palmeiras", true)

	_, err := f.matches.Create(context.Background(), home.ID, home.ID+1000, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// GuessRepository Tests
// ============================================================================

func TestGuessRepository_UpsertRespectsKickoff(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()
	now := time.Now()

	_, err := f.profiles.Upsert(ctx, 1, "Ana", nil)
	require.NoError(t, err)
	home := f.team(t, "Palmeiras", true)
	away := f.team(t, "River Plate", false)

	early, err := f.matches.Create(ctx, home.ID, away.ID, now.Add(30*time.Minute))
	require.NoError(t, err)
	later, err := f.matches.Create(ctx, away.ID, home.ID, now.Add(90*time.Minute))
	require.NoError(t, err)

	closesBefore := now.Add(time.Hour)

	_, err = f.guesses.Upsert(ctx, 1, early.ID, 1, 0, closesBefore)
	assert.ErrorIs(t, err, ErrRejected)

	_, err = f.guesses.Upsert(ctx, 1, later.ID+1000, 1, 0, closesBefore)
	assert.ErrorIs(t, err, ErrRejected)

	guess, err := f.guesses.Upsert(ctx, 1, later.ID, 2, 1, closesBefore)
	require.NoError(t, err)
	assert.Equal(t, 2, guess.HomeGuess)

	// Overwrite keeps a single row
	guess, err = f.guesses.Upsert(ctx, 1, later.ID, 0, 3, closesBefore)
	require.NoError(t, err)
	assert.Equal(t, 0, guess.HomeGuess)
	assert.Equal(t, 3, guess.AwayGuess)

	userID := int64(1)
	mine, err := f.guesses.List(ctx, &userID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	all, err := f.guesses.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	byMatch, err := f.guesses.ListByMatch(ctx, later.ID)
	require.NoError(t, err)
	require.Len(t, byMatch, 1)
	assert.Equal(t, "Ana", byMatch[0].Name)
}

func TestGuessRepository_ConcurrentUpsertsKeepOneRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()
	now := time.Now()

	_, err := f.profiles.Upsert(ctx, 1, "Ana", nil)
	require.NoError(t, err)
	home := f.team(t, "Palmeiras", true)
	away := f.team(t, "River Plate", false)
	match, err := f.matches.Create(ctx, home.ID, away.ID, now.Add(24*time.Hour))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(goals int) {
			defer wg.Done()
			_, err := f.guesses.Upsert(ctx, 1, match.ID, goals, 0, now)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := f.guesses.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ============================================================================
// BetRepository Tests
// ============================================================================

func TestBetRepository_SurvivorRequiresBrazilianTeam(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	_, err := f.profiles.Upsert(ctx, 1, "Ana", nil)
	require.NoError(t, err)
	palmeiras := f.team(t, "Palmeiras", true)
	flamengo := f.team(t, "Flamengo", true)
	river := f.team(t, "River Plate", false)

	_, err = f.bets.UpsertSurvivor(ctx, 1, river.ID)
	assert.ErrorIs(t, err, ErrRejected)

	_, err = f.bets.GetSurvivor(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.bets.UpsertSurvivor(ctx, 1, palmeiras.ID)
	require.NoError(t, err)
	bet, err := f.bets.UpsertSurvivor(ctx, 1, flamengo.ID)
	require.NoError(t, err)
	assert.Equal(t, flamengo.ID, bet.TeamID)

	bets, err := f.bets.ListSurvivor(ctx)
	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, flamengo.ID, bets[0].TeamID)
}

func TestBetRepository_Champion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	ctx := context.Background()

	_, err := f.profiles.Upsert(ctx, 1, "Bruno", nil)
	require.NoError(t, err)
	river := f.team(t, "River Plate", false)

	_, err = f.bets.UpsertChampion(ctx, 1, river.ID+1000)
	assert.ErrorIs(t, err, ErrRejected)

	_, err = f.bets.UpsertChampion(ctx, 2, river.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.bets.UpsertChampion(ctx, 1, river.ID)
	require.NoError(t, err)

	got, err := f.bets.GetChampion(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, river.ID, got.TeamID)

	views, err := f.bets.ListChampionViews(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "River Plate", views[0].TeamName)
	assert.Equal(t, "Bruno", views[0].UserName)
}

// ============================================================================
// SnapshotRepository Tests
// ============================================================================

func TestSnapshotRepository_Snapshot(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	snapshots := NewSnapshotRepository(pool)
	ctx := context.Background()

	_, err := f.profiles.Upsert(ctx, 1, "Ana", nil)
	require.NoError(t, err)
	palmeiras := f.team(t, "Palmeiras", true)
	river := f.team(t, "River Plate", false)
	m, err := f.matches.Create(ctx, palmeiras.ID, river.ID, time.Now().Add(48*time.Hour))
	require.NoError(t, err)
	_, err = f.guesses.Upsert(ctx, 1, m.ID, 2, 1, time.Now())
	require.NoError(t, err)
	_, err = f.bets.UpsertSurvivor(ctx, 1, palmeiras.ID)
	require.NoError(t, err)
	_, err = f.bets.UpsertChampion(ctx, 1, river.ID)
	require.NoError(t, err)

	snap, err := snapshots.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Profiles, 1)
	assert.Len(t, snap.Matches, 1)
	require.Len(t, snap.Guesses, 1)
	assert.Equal(t, m.ID, snap.Guesses[0].MatchID)
	assert.Equal(t, []model.SurvivorBet{{UserID: 1, TeamID: palmeiras.ID}}, snap.SurvivorBets)
	assert.Equal(t, []model.ChampionBet{{UserID: 1, TeamID: river.ID}}, snap.ChampionBets)
}

func TestSnapshotRepository_ConsistentUnderWrites(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	f := newFixture(pool)
	snapshots := NewSnapshotRepository(pool)
	ctx := context.Background()

	_, err := f.profiles.Upsert(ctx, 1, "Ana", nil)
	require.NoError(t, err)
	home := f.team(t, "Alfa", false)
	away := f.team(t, "Beta", false)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 50 {
			m, err := f.matches.Create(ctx, home.ID, away.ID, time.Now().Add(time.Duration(i+48)*time.Hour))
			if !assert.NoError(t, err) {
				return
			}
			_, err = f.guesses.Upsert(ctx, 1, m.ID, 1, 0, time.Now())
			if !assert.NoError(t, err) {
				return
			}
		}
	}()

	for range 50 {
		snap, err := snapshots.Snapshot(ctx)
		require.NoError(t, err)

		known := make(map[int64]bool, len(snap.Matches))
		for _, m := range snap.Matches {
			known[m.ID] = true
		}
		for _, g := range snap.Guesses {
			assert.True(t, known[g.MatchID], "guess for match %d without the match", g.MatchID)
		}
	}
	wg.Wait()
}
