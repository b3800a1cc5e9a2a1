package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/model"
	"bolao-bot/internal/repository"
)

var errStoreDown = errors.New("connection refused")

// memDB is an in-memory stand-in for the PostgreSQL repositories with the
// same conditional-write semantics.
type memDB struct {
	mu        sync.Mutex
	profiles  map[int64]model.Profile
	teams     map[int64]model.Team
	matches   map[int64]model.Match
	guesses   map[[2]int64]model.ScoreGuess
	survivors map[int64]model.SurvivorBet
	champions map[int64]model.ChampionBet
	nextID    int64
	down      bool
}

func newMemDB() *memDB {
	return &memDB{
		profiles:  make(map[int64]model.Profile),
		teams:     make(map[int64]model.Team),
		matches:   make(map[int64]model.Match),
		guesses:   make(map[[2]int64]model.ScoreGuess),
		survivors: make(map[int64]model.SurvivorBet),
		champions: make(map[int64]model.ChampionBet),
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Profiles:  memProfiles{db},
		Teams:     memTeams{db},
		Matches:   memMatches{db},
		Guesses:   memGuesses{db},
		Bets:      memBets{db},
		Snapshots: memSnapshots{db},
	}
}

func (db *memDB) lock() (func(), error) {
	db.mu.Lock()
	if db.down {
		db.mu.Unlock()
		return nil, errStoreDown
	}
	return db.mu.Unlock, nil
}

func (db *memDB) setDown(down bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.down = down
}

func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, less)
	return out
}

type memProfiles struct{ db *memDB }

func (r memProfiles) Upsert(_ context.Context, id int64, name string, avatarURL *string) (*model.Profile, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := r.db.profiles[id]
	if !ok {
		p = model.Profile{ID: id, CreatedAt: time.Now()}
	}
	if name != "" || !ok {
		p.Name = name
	}
	if avatarURL != nil {
		p.AvatarURL = avatarURL
	}
	r.db.profiles[id] = p
	return &p, nil
}

func (r memProfiles) GetByID(_ context.Context, id int64) (*model.Profile, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, ok := r.db.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memProfiles) List(context.Context) ([]model.Profile, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedValues(r.db.profiles, func(a, b model.Profile) int { return cmp.Compare(a.ID, b.ID) }), nil
}

type memTeams struct{ db *memDB }

func (r memTeams) Create(_ context.Context, team model.Team) (*model.Team, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	for _, t := range r.db.teams {
		if t.Name == team.Name {
			return nil, repository.ErrDuplicate
		}
	}
	r.db.nextID++
	team.ID = r.db.nextID
	r.db.teams[team.ID] = team
	return &team, nil
}

func (r memTeams) GetByID(_ context.Context, id int64) (*model.Team, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, ok := r.db.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func byTeamName(a, b model.Team) int {
	return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
}

func (r memTeams) List(context.Context) ([]model.Team, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedValues(r.db.teams, byTeamName), nil
}

func (r memTeams) ListBrazilian(ctx context.Context) ([]model.Team, error) {
	teams, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(teams, func(t model.Team) bool { return !t.IsBrazilian }), nil
}

type memMatches struct{ db *memDB }

func byKickoff(a, b model.Match) int {
	return cmp.Or(a.KickoffTime.Compare(b.KickoffTime), cmp.Compare(a.ID, b.ID))
}

func (r memMatches) Create(_ context.Context, homeTeamID, awayTeamID int64, kickoff time.Time) (*model.Match, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	_, homeOK := r.db.teams[homeTeamID]
	_, awayOK := r.db.teams[awayTeamID]
	if !homeOK || !awayOK {
		return nil, repository.ErrNotFound
	}
	r.db.nextID++
	m := model.Match{ID: r.db.nextID, HomeTeamID: homeTeamID, AwayTeamID: awayTeamID, KickoffTime: kickoff}
	r.db.matches[m.ID] = m
	return &m, nil
}

func (r memMatches) GetByID(_ context.Context, id int64) (*model.Match, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := r.db.matches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r memMatches) List(context.Context) ([]model.Match, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedValues(r.db.matches, byKickoff), nil
}

func (r memMatches) ListFinalized(ctx context.Context) ([]model.Match, error) {
	matches, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(matches, func(m model.Match) bool { return !m.Finalized() }), nil
}

func (r memMatches) ListWithTeams(ctx context.Context) ([]model.MatchWithTeams, error) {
	matches, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]model.MatchWithTeams, 0, len(matches))
	for _, m := range matches {
		out = append(out, model.MatchWithTeams{Match: m, HomeTeam: r.db.teams[m.HomeTeamID], AwayTeam: r.db.teams[m.AwayTeamID]})
	}
	return out, nil
}

func (r memMatches) RecordResult(_ context.Context, id int64, homeScore, awayScore int) (*model.Match, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := r.db.matches[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if m.Finalized() {
		return nil, repository.ErrAlreadySet
	}
	m.HomeScore, m.AwayScore = &homeScore, &awayScore
	r.db.matches[id] = m
	return &m, nil
}

type memGuesses struct{ db *memDB }

func (r memGuesses) Upsert(_ context.Context, userID, matchID int64, homeGuess, awayGuess int, closesBefore time.Time) (*model.ScoreGuess, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, ok := r.db.matches[matchID]
	if !ok || !m.KickoffTime.After(closesBefore) {
		return nil, repository.ErrRejected
	}
	if _, ok := r.db.profiles[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	g := model.ScoreGuess{UserID: userID, MatchID: matchID, HomeGuess: homeGuess, AwayGuess: awayGuess, UpdatedAt: time.Now()}
	r.db.guesses[[2]int64{userID, matchID}] = g
	return &g, nil
}

func (r memGuesses) List(_ context.Context, userID *int64) ([]model.ScoreGuess, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	all := sortedValues(r.db.guesses, func(a, b model.ScoreGuess) int {
		return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.MatchID, b.MatchID))
	})
	if userID == nil {
		return all, nil
	}
	return slices.DeleteFunc(all, func(g model.ScoreGuess) bool { return g.UserID != *userID }), nil
}

func (r memGuesses) ListByMatch(_ context.Context, matchID int64) ([]model.GuessWithProfile, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out []model.GuessWithProfile
	for _, g := range r.db.guesses {
		if g.MatchID == matchID {
			p := r.db.profiles[g.UserID]
			out = append(out, model.GuessWithProfile{ScoreGuess: g, Name: p.Name, AvatarURL: p.AvatarURL})
		}
	}
	slices.SortFunc(out, func(a, b model.GuessWithProfile) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, nil
}

type memBets struct{ db *memDB }

func (r memBets) UpsertSurvivor(_ context.Context, userID, teamID int64) (*model.SurvivorBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if t, ok := r.db.teams[teamID]; !ok || !t.IsBrazilian {
		return nil, repository.ErrRejected
	}
	if _, ok := r.db.profiles[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	bet := model.SurvivorBet{UserID: userID, TeamID: teamID}
	r.db.survivors[userID] = bet
	return &bet, nil
}

func (r memBets) UpsertChampion(_ context.Context, userID, teamID int64) (*model.ChampionBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, ok := r.db.teams[teamID]; !ok {
		return nil, repository.ErrRejected
	}
	if _, ok := r.db.profiles[userID]; !ok {
		return nil, repository.ErrNotFound
	}
	bet := model.ChampionBet{UserID: userID, TeamID: teamID}
	r.db.champions[userID] = bet
	return &bet, nil
}

func (r memBets) GetSurvivor(_ context.Context, userID int64) (*model.SurvivorBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	bet, ok := r.db.survivors[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &bet, nil
}

func (r memBets) GetChampion(_ context.Context, userID int64) (*model.ChampionBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	bet, ok := r.db.champions[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &bet, nil
}

func (r memBets) ListSurvivor(context.Context) ([]model.SurvivorBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedValues(r.db.survivors, func(a, b model.SurvivorBet) int { return cmp.Compare(a.UserID, b.UserID) }), nil
}

func (r memBets) ListChampion(context.Context) ([]model.ChampionBet, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return sortedValues(r.db.champions, func(a, b model.ChampionBet) int { return cmp.Compare(a.UserID, b.UserID) }), nil
}

func (r memBets) ListChampionViews(ctx context.Context) ([]model.ChampionBetView, error) {
	bets, err := r.ListChampion(ctx)
	if err != nil {
		return nil, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := make([]model.ChampionBetView, 0, len(bets))
	for _, b := range bets {
		p := r.db.profiles[b.UserID]
		out = append(out, model.ChampionBetView{ChampionBet: b, TeamName: r.db.teams[b.TeamID].Name, UserName: p.Name, AvatarURL: p.AvatarURL})
	}
	return out, nil
}

// memCache mimics cache.LeaderboardCache, JSON round trip included.
type memCache struct {
	mu      sync.Mutex
	gen     int64
	entries map[int64][]byte
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[int64][]byte)}
}

func (c *memCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *memCache) Get(_ context.Context, gen int64, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[gen]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *memCache) Set(_ context.Context, gen int64, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[gen] = b
	return nil
}

func (c *memCache) Invalidate(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, c.gen)
	c.gen++
	return c.gen, nil
}

// memBus records published events and replays them to subscribers.
type memBus struct {
	mu       sync.Mutex
	events   []cache.ChangeEvent
	handlers []func(context.Context, cache.ChangeEvent)
}

func (b *memBus) Publish(ctx context.Context, ev cache.ChangeEvent) error {
	b.mu.Lock()
	b.events = append(b.events, ev)
	handlers := slices.Clone(b.handlers)
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
	return nil
}

func (b *memBus) Subscribe(_ context.Context, handle func(context.Context, cache.ChangeEvent)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handle)
	return nil
}

func (b *memBus) kinds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Kind)
	}
	return out
}

type memSnapshots struct{ db *memDB }

func (r memSnapshots) Snapshot(context.Context) (model.Snapshot, error) {
	unlock, err := r.db.lock()
	if err != nil {
		return model.Snapshot{}, err
	}
	defer unlock()

	return model.Snapshot{
		Profiles: sortedValues(r.db.profiles, func(a, b model.Profile) int { return cmp.Compare(a.ID, b.ID) }),
		Matches:  sortedValues(r.db.matches, byKickoff),
		Guesses: sortedValues(r.db.guesses, func(a, b model.ScoreGuess) int {
			return cmp.Or(cmp.Compare(a.UserID, b.UserID), cmp.Compare(a.MatchID, b.MatchID))
		}),
		SurvivorBets: sortedValues(r.db.survivors, func(a, b model.SurvivorBet) int { return cmp.Compare(a.UserID, b.UserID) }),
		ChampionBets: sortedValues(r.db.champions, func(a, b model.ChampionBet) int { return cmp.Compare(a.UserID, b.UserID) }),
	}, nil
}

// interleave runs write once, right after the first match or guess list
// returns, so the write lands between the two reads.
type interleave struct {
	once  sync.Once
	write func()
}

func (i *interleave) stores(db *memDB) Stores {
	s := db.stores()
	s.Snapshots = nil
	s.Matches = interleavedMatches{MatchStore: s.Matches, i: i}
	s.Guesses = interleavedGuesses{GuessStore: s.Guesses, i: i}
	return s
}

type interleavedMatches struct {
	MatchStore
	i *interleave
}

func (m interleavedMatches) List(ctx context.Context) ([]model.Match, error) {
	matches, err := m.MatchStore.List(ctx)
	m.i.once.Do(m.i.write)
	return matches, err
}

type interleavedGuesses struct {
	GuessStore
	i *interleave
}

func (g interleavedGuesses) List(ctx context.Context, userID *int64) ([]model.ScoreGuess, error) {
	guesses, err := g.GuessStore.List(ctx, userID)
	g.i.once.Do(g.i.write)
	return guesses, err
}
