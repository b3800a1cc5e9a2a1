// Package api exposes the pool over a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"bolao-bot/internal/model"
	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

// Pool is the subset of service.PoolService the API serves.
type Pool interface {
	EnsureProfile(ctx context.Context, userID int64, name string, avatarURL *string) (*model.Profile, error)
	ListMatches(ctx context.Context) ([]service.MatchView, error)
	IsSubmissionOpen(ctx context.Context, matchID int64, now time.Time) (bool, error)
	ListMatchGuesses(ctx context.Context, matchID int64) ([]model.GuessWithProfile, error)
	ComputeLeaderboard(ctx context.Context) (*service.Leaderboard, error)
	BonusStatus(ctx context.Context) (*service.BonusStatus, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
	ListBrazilianTeams(ctx context.Context, userID int64) ([]model.Team, error)
	ListChampionBets(ctx context.Context) ([]model.ChampionBetView, error)
	ComputeUserScore(ctx context.Context, userID int64) (scoring.Score, error)
	ListUserGuesses(ctx context.Context, userID int64) ([]model.ScoreGuess, error)
	SubmitGuess(ctx context.Context, userID, matchID int64, homeGuess, awayGuess int) (*model.ScoreGuess, error)
	PlaceSurvivorBet(ctx context.Context, userID, teamID int64) (*model.SurvivorBet, error)
	PlaceChampionBet(ctx context.Context, userID, teamID int64) (*model.ChampionBet, error)
	RecordResult(ctx context.Context, operatorID, matchID int64, homeScore, awayScore int) (*model.Match, error)
}

// Options configures the API.
type Options struct {
	JWTSecret string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Health is called by /healthz.
	Health func(ctx context.Context) error
	// RequestsPerSecond and Burst size the per-client limiter. Zero disables it.
	RequestsPerSecond float64
	Burst             int
	Now               func() time.Time
}

// API serves the pool over HTTP.
type API struct {
	pool     Pool
	secret   []byte
	gatherer prometheus.Gatherer
	health   func(ctx context.Context) error
	limiter  *IPRateLimiter
	now      func() time.Time
}

// New creates an API over pool.
func New(pool Pool, opts Options) *API {
	a := &API{
		pool:     pool,
		secret:   []byte(opts.JWTSecret),
		gatherer: opts.Gatherer,
		health:   opts.Health,
		now:      opts.Now,
	}
	if a.now == nil {
		a.now = time.Now
	}
	if opts.RequestsPerSecond > 0 {
		a.limiter = NewIPRateLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	return a
}

// Router returns the HTTP handler with every route mounted.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	// No RealIP: the limiter keys on the peer address, which clients cannot
	// rewrite through forwarding headers.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.healthz)
	if a.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if a.limiter != nil {
			r.Use(RateLimit(a.limiter))
		}

		r.Get("/matches", a.listMatches)
		r.Get("/matches/{id}/open", a.matchOpen)
		r.Get("/matches/{id}/guesses", a.matchGuesses)
		r.Get("/leaderboard", a.leaderboard)
		r.Get("/bonus", a.bonus)
		r.Get("/teams", a.listTeams)
		r.With(a.optionalAuth).Get("/teams/brazilian", a.brazilianTeams)
		r.Get("/bets/champion", a.championBets)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Get("/me/score", a.myScore)
			r.Get("/me/guesses", a.myGuesses)
			r.Post("/guesses", a.submitGuess)
			r.Post("/bets/survivor", a.placeSurvivorBet)
			r.Post("/bets/champion", a.placeChampionBet)
			r.Post("/matches/{id}/result", a.recordResult)
		})
	})

	return r
}

func (a *API) healthz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) listMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := a.pool.ListMatches(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (a *API) matchOpen(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathID(w, r)
	if !ok {
		return
	}
	open, err := a.pool.IsSubmissionOpen(r.Context(), matchID, a.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"match_id": matchID, "open": open})
}

func (a *API) matchGuesses(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathID(w, r)
	if !ok {
		return
	}
	guesses, err := a.pool.ListMatchGuesses(r.Context(), matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guesses)
}

func (a *API) leaderboard(w http.ResponseWriter, r *http.Request) {
	lb, err := a.pool.ComputeLeaderboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (a *API) bonus(w http.ResponseWriter, r *http.Request) {
	status, err := a.pool.BonusStatus(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := a.pool.ListTeams(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (a *API) brazilianTeams(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if id, ok := IdentityFrom(r.Context()); ok {
		userID = id.UserID
	}
	teams, err := a.pool.ListBrazilianTeams(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (a *API) championBets(w http.ResponseWriter, r *http.Request) {
	bets, err := a.pool.ListChampionBets(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

type scoreResponse struct {
	scoring.Score
	Points int `json:"points"`
}

func (a *API) myScore(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	score, err := a.pool.ComputeUserScore(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scoreResponse{Score: score, Points: score.Points()})
}

func (a *API) myGuesses(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	guesses, err := a.pool.ListUserGuesses(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guesses)
}

type guessRequest struct {
	MatchID   int64 `json:"match_id"`
	HomeGuess int   `json:"home_guess"`
	AwayGuess int   `json:"away_guess"`
}

func (a *API) submitGuess(w http.ResponseWriter, r *http.Request) {
	var req guessRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	guess, err := a.pool.SubmitGuess(r.Context(), id.UserID, req.MatchID, req.HomeGuess, req.AwayGuess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, guess)
}

type betRequest struct {
	TeamID int64 `json:"team_id"`
}

func (a *API) placeSurvivorBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	bet, err := a.pool.PlaceSurvivorBet(r.Context(), id.UserID, req.TeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

func (a *API) placeChampionBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	bet, err := a.pool.PlaceChampionBet(r.Context(), id.UserID, req.TeamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

type resultRequest struct {
	HomeScore int `json:"home_score"`
	AwayScore int `json:"away_score"`
}

func (a *API) recordResult(w http.ResponseWriter, r *http.Request) {
	matchID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req resultRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	match, err := a.pool.RecordResult(r.Context(), id.UserID, matchID, req.HomeScore, req.AwayScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid id %q", chi.URLParam(r, "id"))})
		return 0, false
	}
	return id, true
}

const maxBodyBytes = 1 << 16

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
