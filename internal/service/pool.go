package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"bolao-bot/internal/cache"
	"bolao-bot/internal/metrics"
	"bolao-bot/internal/scoring"
)

// Options configures a PoolService. Zero values disable the optional parts.
type Options struct {
	// SubmissionCutoff is how long before kickoff guesses close.
	SubmissionCutoff time.Duration
	// BetsDeadline closes survivor and champion bets when set.
	BetsDeadline *time.Time
	// IsOperator reports whether a user may record results and reference data.
	IsOperator func(userID int64) bool
	Cache      LeaderboardCache
	Publisher  ChangePublisher
	Metrics    *metrics.Metrics
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// PoolService runs the prediction pool: submissions, results and the
// leaderboard. Scoring itself is delegated to the pure scoring package.
type PoolService struct {
	stores       Stores
	gate         scoring.Gate
	betsDeadline *time.Time
	isOperator   func(int64) bool
	cache        LeaderboardCache
	publisher    ChangePublisher
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewPoolService creates a new PoolService instance.
func NewPoolService(stores Stores, opts Options) *PoolService {
	s := &PoolService{
		stores:       stores,
		gate:         scoring.NewGate(opts.SubmissionCutoff),
		betsDeadline: opts.BetsDeadline,
		isOperator:   opts.IsOperator,
		cache:        opts.Cache,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		now:          opts.Now,
	}
	if s.isOperator == nil {
		s.isOperator = func(int64) bool { return false }
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Gate returns the submission gate in use.
func (s *PoolService) Gate() scoring.Gate {
	return s.gate
}

// IsOperator reports whether userID may run operator commands.
func (s *PoolService) IsOperator(userID int64) bool {
	return s.isOperator(userID)
}

// unavailable wraps a repository failure. No partial result is returned
// alongside it.
func unavailable(op string, err error) error {
	log.Error().Err(err).Str("op", op).Msg("Repository failure")
	return fmt.Errorf("%w: %s: %w", ErrDataUnavailable, op, err)
}

// changed drops the cached leaderboard and announces the write. The write
// already succeeded, so failures here are only logged.
func (s *PoolService) changed(ctx context.Context, ev cache.ChangeEvent) {
	if s.cache != nil {
		if _, err := s.cache.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Str("kind", ev.Kind).Msg("Failed to invalidate leaderboard cache")
		}
	}
	if s.publisher != nil {
		ev.At = s.now()
		if err := s.publisher.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("kind", ev.Kind).Msg("Failed to publish change event")
		}
	}
}

// resultLabel classifies err for the submissions metric.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, scoring.ErrSubmissionClosed):
		return "closed"
	case errors.Is(err, ErrInvalidTeam):
		return "invalid_team"
	case errors.Is(err, scoring.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "error"
	}
}
