// Package bot wires the Telegram transport to the pool handlers.
package bot

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"bolao-bot/internal/config"
	"bolao-bot/internal/handler"
	"bolao-bot/internal/pkg/lock"
	"bolao-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot   *tele.Bot
	cfg   *config.Config
	pool  *service.PoolService
	known *knownUsers

	poolHandler    *handler.PoolHandler
	betHandler     *handler.BetHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	PoolService *service.PoolService
	UserLock    *lock.UserLock
	// Location is used to display and parse kickoff times.
	Location *time.Location
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	b := &Bot{
		bot:   teleBot,
		cfg:   deps.Config,
		pool:  deps.PoolService,
		known: newKnownUsers(),
	}

	b.poolHandler = handler.NewPoolHandler(deps.PoolService, deps.UserLock, loc)
	b.betHandler = handler.NewBetHandler(deps.PoolService, deps.UserLock)
	b.rankingHandler = handler.NewRankingHandler(deps.PoolService)
	b.adminHandler = handler.NewAdminHandler(deps.PoolService, loc)

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.known))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	// /start bootstraps the profile itself.
	b.bot.Handle("/start", b.poolHandler.HandleStart)

	players := b.bot.Group()
	players.Use(ProfileMiddleware(b.pool))
	players.Handle("/jogos", b.poolHandler.HandleMatches)
	players.Handle("/palpite", b.poolHandler.HandleGuess)
	players.Handle("/meuspalpites", b.poolHandler.HandleMyGuesses)
	players.Handle("/palpites", b.poolHandler.HandleMatchGuesses)
	players.Handle("/brasileiro", b.betHandler.HandleSurvivor)
	players.Handle("/campeao", b.betHandler.HandleChampion)
	players.Handle("/pontos", b.rankingHandler.HandleScore)
	players.Handle("/ranking", b.rankingHandler.HandleRanking)
	players.Handle("/bonus", b.rankingHandler.HandleBonus)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/resultado", b.adminHandler.HandleResult)
	adminGroup.Handle("/time_add", b.adminHandler.HandleAddTeam)
	adminGroup.Handle("/jogo_add", b.adminHandler.HandleAddMatch)
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
