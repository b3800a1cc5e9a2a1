// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/pkg/lock"
	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

const (
	requestTimeout = 10 * time.Second
	lockTimeout    = 5 * time.Second
)

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// DisplayName is the name a Telegram user is shown with on the leaderboard.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// errorMessage maps a service error to the reply shown to the user.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, scoring.ErrSubmissionClosed):
		return "⏰ Prazo encerrado: o palpite para este jogo já não pode ser alterado."
	case errors.Is(err, service.ErrInvalidTeam):
		return "❌ Time inválido para esta aposta."
	case errors.Is(err, service.ErrMatchNotFound):
		return "❌ Jogo não encontrado. Use /jogos para ver a lista."
	case errors.Is(err, service.ErrTeamNotFound):
		return "❌ Time não encontrado."
	case errors.Is(err, service.ErrTeamExists):
		return "❌ Já existe um time com esse nome."
	case errors.Is(err, service.ErrResultAlreadySet):
		return "❌ O resultado deste jogo já foi registrado."
	case errors.Is(err, service.ErrForbidden):
		return "❌ Permissão negada: comando restrito aos administradores."
	case errors.Is(err, service.ErrUnauthenticated):
		return "❌ Envie /start antes de participar."
	case errors.Is(err, scoring.ErrInvalidInput):
		return "❌ Dados inválidos. Confira placares e times."
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ Ainda estou processando seu comando anterior. Tente de novo."
	default:
		return msgUnavailable
	}
}

const msgUnavailable = "❌ Serviço indisponível no momento. Tente novamente em instantes."

// replyError logs unexpected failures and answers with the mapped message.
func replyError(c tele.Context, op string, err error) error {
	msg := errorMessage(err)
	if msg == msgUnavailable {
		log.Error().Err(err).Str("op", op).Int64("user_id", senderID(c)).Msg("Command failed")
	}
	return c.Reply(msg)
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}
