package handler

import (
	"fmt"
	"time"

	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/service"
)

// AdminHandler handles operator commands. The service logs each operation
// and re-checks the operator list.
type AdminHandler struct {
	pool *service.PoolService
	loc  *time.Location
	now  func() time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(pool *service.PoolService, loc *time.Location) *AdminHandler {
	return &AdminHandler{
		pool: pool,
		loc:  loc,
		now:  time.Now,
	}
}

// HandleResult handles the /resultado command.
// Format: /resultado <id> <casa> <fora>
func (h *AdminHandler) HandleResult(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	matchID, home, away, err := parseScoreArgs(c.Args())
	if err == errUsage {
		return c.Reply("❌ Uso: /resultado <id> <casa> <fora>\nExemplo: /resultado 12 2 1")
	}
	if err != nil {
		return c.Reply(err.Error())
	}

	match, err := h.pool.RecordResult(ctx, sender.ID, matchID, home, away)
	if err != nil {
		return replyError(c, "record_result", err)
	}

	return c.Reply(fmt.Sprintf("✅ Resultado registrado\n\n🏁 Jogo #%d: %d x %d\nA classificação foi atualizada.",
		match.ID, home, away))
}

// HandleAddTeam handles the /time_add command.
// Format: /time_add <nome>;<país>;<sim|nao>
func (h *AdminHandler) HandleAddTeam(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	team, err := parseTeamPayload(c.Message().Payload)
	if err == errUsage {
		return c.Reply("❌ Uso: /time_add <nome>;<país>;<brasileiro sim|nao>\nExemplo: /time_add Palmeiras;Brasil;sim")
	}
	if err != nil {
		return c.Reply(err.Error())
	}

	created, err := h.pool.AddTeam(ctx, sender.ID, team)
	if err != nil {
		return replyError(c, "add_team", err)
	}

	flag := ""
	if created.IsBrazilian {
		flag = " 🇧🇷"
	}
	return c.Reply(fmt.Sprintf("✅ Time cadastrado: %d · %s%s", created.ID, created.Name, flag))
}

// HandleAddMatch handles the /jogo_add command.
// Format: /jogo_add <casa>;<fora>;<data>
func (h *AdminHandler) HandleAddMatch(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	parts, ok := splitPayload(c.Message().Payload, 3)
	if !ok {
		return c.Reply("❌ Uso: /jogo_add <casa>;<fora>;<data>\nExemplo: /jogo_add Palmeiras;River Plate;20/06/2026 16:00")
	}

	home, err := h.pool.FindTeam(ctx, parts[0])
	if err != nil {
		return replyError(c, "find_team", err)
	}
	away, err := h.pool.FindTeam(ctx, parts[1])
	if err != nil {
		return replyError(c, "find_team", err)
	}
	kickoff, err := parseKickoff(parts[2], h.loc, h.now())
	if err != nil {
		return c.Reply(err.Error())
	}

	match, err := h.pool.AddMatch(ctx, sender.ID, home.ID, away.ID, kickoff)
	if err != nil {
		return replyError(c, "add_match", err)
	}

	return c.Reply(fmt.Sprintf("✅ Jogo cadastrado: #%d %s x %s · %s",
		match.ID, home.Name, away.Name, match.KickoffTime.In(h.loc).Format(displayLayout)))
}
