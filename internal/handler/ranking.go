package handler

import (
	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/service"
)

const rankingLimit = 20

// RankingHandler handles score and leaderboard queries.
type RankingHandler struct {
	pool *service.PoolService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(pool *service.PoolService) *RankingHandler {
	return &RankingHandler{pool: pool}
}

// HandleScore handles the /pontos command.
func (h *RankingHandler) HandleScore(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	lb, err := h.pool.ComputeLeaderboard(ctx)
	if err != nil {
		return replyError(c, "compute_leaderboard", err)
	}
	entry, ok := lb.Find(sender.ID)
	if !ok {
		return c.Reply("❌ Envie /start antes de consultar sua pontuação.")
	}
	return c.Reply(formatEntry(entry))
}

// HandleRanking handles the /ranking command.
func (h *RankingHandler) HandleRanking(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	lb, err := h.pool.ComputeLeaderboard(ctx)
	if err != nil {
		return replyError(c, "compute_leaderboard", err)
	}
	return c.Reply(formatLeaderboard(lb, rankingLimit))
}

// HandleBonus handles the /bonus command.
func (h *RankingHandler) HandleBonus(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	status, err := h.pool.BonusStatus(ctx)
	if err != nil {
		return replyError(c, "bonus_status", err)
	}
	teams, err := h.pool.ListTeams(ctx)
	if err != nil {
		return replyError(c, "list_teams", err)
	}

	names := make(map[int64]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	return c.Reply(formatBonusStatus(status, names))
}
