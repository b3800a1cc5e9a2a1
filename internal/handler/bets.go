package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/model"
	"bolao-bot/internal/pkg/lock"
	"bolao-bot/internal/scoring"
	"bolao-bot/internal/service"
)

// BetHandler handles the survivor and champion bonus bets.
type BetHandler struct {
	pool     *service.PoolService
	userLock *lock.UserLock
}

// NewBetHandler creates a new BetHandler.
func NewBetHandler(pool *service.PoolService, userLock *lock.UserLock) *BetHandler {
	return &BetHandler{
		pool:     pool,
		userLock: userLock,
	}
}

// HandleSurvivor handles the /brasileiro command.
// Without arguments it lists the Brazilian teams; otherwise it places the bet.
func (h *BetHandler) HandleSurvivor(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ref := strings.TrimSpace(c.Message().Payload)
	if ref == "" {
		teams, err := h.pool.ListBrazilianTeams(ctx, sender.ID)
		if err != nil {
			return replyError(c, "list_brazilian_teams", err)
		}
		current, err := h.pool.SurvivorBet(ctx, sender.ID)
		if err != nil {
			return replyError(c, "survivor_bet", err)
		}
		var selected *int64
		if current != nil {
			selected = &current.TeamID
		}
		return c.Reply(formatTeams("🇧🇷 Qual brasileiro vai mais longe?", teams, selected) +
			"\n\nAposte com /brasileiro <time>" + h.deadlineNote())
	}

	team, err := h.pool.FindTeam(ctx, ref)
	if err != nil {
		return replyError(c, "find_team", err)
	}

	err = h.userLock.WithLock(ctx, sender.ID, lockTimeout, func() error {
		_, err := h.pool.PlaceSurvivorBet(ctx, sender.ID, team.ID)
		return err
	})
	if err != nil {
		return h.replyBetError(c, "place_survivor_bet", err)
	}
	return c.Reply(fmt.Sprintf("✅ Aposta registrada: %s é o seu brasileiro sobrevivente (+%d pontos se acertar)",
		team.Name, scoring.SurvivorBonusPoints))
}

// HandleChampion handles the /campeao command.
func (h *BetHandler) HandleChampion(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	ref := strings.TrimSpace(c.Message().Payload)
	if ref == "" {
		return h.showChampionBets(ctx, c, sender.ID)
	}

	team, err := h.pool.FindTeam(ctx, ref)
	if err != nil {
		return replyError(c, "find_team", err)
	}

	err = h.userLock.WithLock(ctx, sender.ID, lockTimeout, func() error {
		_, err := h.pool.PlaceChampionBet(ctx, sender.ID, team.ID)
		return err
	})
	if err != nil {
		return h.replyBetError(c, "place_champion_bet", err)
	}
	return c.Reply(fmt.Sprintf("✅ Aposta registrada: %s campeão (+%d pontos se acertar)",
		team.Name, scoring.ChampionBonusPoints))
}

func (h *BetHandler) showChampionBets(ctx context.Context, c tele.Context, userID int64) error {
	bets, err := h.pool.ListChampionBets(ctx)
	if err != nil {
		return replyError(c, "list_champion_bets", err)
	}
	return c.Reply(formatChampionBets(bets, userID) + "\n\nAposte com /campeao <time>" + h.deadlineNote())
}

func (h *BetHandler) deadlineNote() string {
	deadline, ok := h.pool.BetsDeadline()
	if !ok {
		return ""
	}
	if !h.pool.BetsOpen() {
		return "\n⏰ Apostas encerradas."
	}
	return "\n⏰ Apostas abertas até " + deadline.Format("02/01/2006 15:04 MST")
}

func (h *BetHandler) replyBetError(c tele.Context, op string, err error) error {
	if errors.Is(err, scoring.ErrSubmissionClosed) {
		return c.Reply("⏰ As apostas bônus estão encerradas.")
	}
	if errors.Is(err, service.ErrInvalidTeam) && op == "place_survivor_bet" {
		return c.Reply("❌ Só vale time brasileiro. Veja a lista em /brasileiro")
	}
	return replyError(c, op, err)
}

func formatChampionBets(bets []model.ChampionBetView, userID int64) string {
	if len(bets) == 0 {
		return "🏆 Ninguém apostou no campeão ainda."
	}
	var sb strings.Builder
	sb.WriteString("🏆 Apostas de campeão\n\n")
	for _, b := range bets {
		mark := ""
		if b.UserID == userID {
			mark = " ⭐"
		}
		fmt.Fprintf(&sb, "%s: %s%s\n", b.UserName, b.TeamName, mark)
	}
	return strings.TrimRight(sb.String(), "\n")
}
