package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/model"
	"bolao-bot/internal/pkg/lock"
	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

// PoolHandler handles match listing and score guesses.
type PoolHandler struct {
	pool     *service.PoolService
	userLock *lock.UserLock
	loc      *time.Location
}

// NewPoolHandler creates a new PoolHandler.
func NewPoolHandler(pool *service.PoolService, userLock *lock.UserLock, loc *time.Location) *PoolHandler {
	return &PoolHandler{
		pool:     pool,
		userLock: userLock,
		loc:      loc,
	}
}

// HandleStart handles the /start command.
func (h *PoolHandler) HandleStart(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	profile, err := h.pool.EnsureProfile(ctx, sender.ID, DisplayName(sender), nil)
	if err != nil {
		return replyError(c, "start", err)
	}

	return c.Reply(fmt.Sprintf(
		"⚽ Bem-vindo ao bolão, %s!\n\n"+
			"📅 /jogos · lista de jogos\n"+
			"📝 /palpite <id> <casa>x<fora> · registra um palpite\n"+
			"📋 /meuspalpites · seus palpites\n"+
			"👀 /palpites <id> · palpites de um jogo\n"+
			"🇧🇷 /brasileiro [time] · aposta no brasileiro que vai mais longe\n"+
			"🏆 /campeao [time] · aposta no campeão\n"+
			"📊 /pontos · sua pontuação\n"+
			"🏅 /ranking · classificação\n"+
			"🎁 /bonus · situação dos bônus\n\n"+
			"Placar exato vale %d pontos, acertar o vencedor vale %d.",
		profile.Name, scoring.ExactHitPoints, scoring.WinnerHitPoints,
	))
}

// HandleMatches handles the /jogos command.
func (h *PoolHandler) HandleMatches(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	matches, err := h.pool.ListMatches(ctx)
	if err != nil {
		return replyError(c, "list_matches", err)
	}
	return c.Reply(formatMatches(matches, h.loc))
}

// HandleGuess handles the /palpite command.
// Format: /palpite <id> <casa>x<fora>
func (h *PoolHandler) HandleGuess(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	matchID, home, away, err := parseScoreArgs(c.Args())
	if err == errUsage {
		return c.Reply("❌ Uso: /palpite <id> <casa>x<fora>\nExemplo: /palpite 12 2x1")
	}
	if err != nil {
		return c.Reply(err.Error())
	}

	var guess *model.ScoreGuess
	err = h.userLock.WithLock(ctx, sender.ID, lockTimeout, func() error {
		var err error
		guess, err = h.pool.SubmitGuess(ctx, sender.ID, matchID, home, away)
		return err
	})
	if err != nil {
		return replyError(c, "submit_guess", err)
	}

	return c.Reply(fmt.Sprintf("✅ Palpite registrado: jogo #%d · %d x %d", guess.MatchID, guess.HomeGuess, guess.AwayGuess))
}

// HandleMyGuesses handles the /meuspalpites command.
func (h *PoolHandler) HandleMyGuesses(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	guesses, err := h.pool.ListUserGuesses(ctx, sender.ID)
	if err != nil {
		return replyError(c, "list_user_guesses", err)
	}
	matches, err := h.pool.ListMatches(ctx)
	if err != nil {
		return replyError(c, "list_matches", err)
	}

	byID := make(map[int64]service.MatchView, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}
	return c.Reply(formatGuesses(guesses, byID))
}

// HandleMatchGuesses handles the /palpites command.
// Format: /palpites <id>
func (h *PoolHandler) HandleMatchGuesses(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	args := c.Args()
	if len(args) != 1 {
		return c.Reply("❌ Uso: /palpites <id>\nExemplo: /palpites 12")
	}
	matchID, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return c.Reply(errBadMatchID.Error())
	}

	matches, err := h.pool.ListMatches(ctx)
	if err != nil {
		return replyError(c, "list_matches", err)
	}
	var match *service.MatchView
	for i := range matches {
		if matches[i].ID == matchID {
			match = &matches[i]
			break
		}
	}
	if match == nil {
		return replyError(c, "list_match_guesses", service.ErrMatchNotFound)
	}
	guesses, err := h.pool.ListMatchGuesses(ctx, matchID)
	if err != nil {
		return replyError(c, "list_match_guesses", err)
	}
	return c.Reply(formatMatchGuesses(*match, guesses))
}
