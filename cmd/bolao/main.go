// Package main is the entry point for the bolão bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"bolao-bot/internal/api"
	"bolao-bot/internal/bot"
	"bolao-bot/internal/cache"
	"bolao-bot/internal/config"
	"bolao-bot/internal/metrics"
	"bolao-bot/internal/pkg/db"
	"bolao-bot/internal/pkg/lock"
	"bolao-bot/internal/repository"
	"bolao-bot/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	app := &cli.App{
		Name:  "bolao",
		Usage: "sports prediction pool bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config",
				Usage:   "directory containing config.yaml",
				EnvVars: []string{"BOLAO_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the Telegram bot and the HTTP API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:  "token",
				Usage: "issue an API token for a profile",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "user", Required: true, Usage: "profile (Telegram user) id"},
					&cli.StringFlag{Name: "name", Usage: "display name claim"},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: issueToken,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")
	return cfg, nil
}

func migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	dbPool, err := db.NewPool(c.Context, &cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	return dbPool.Migrate(c.Context)
}

func issueToken(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.HTTP.JWTSecret == "" {
		return errors.New("http.jwt_secret is not set")
	}

	token, err := api.IssueToken([]byte(cfg.HTTP.JWTSecret), c.Int64("user"), c.String("name"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer dbPool.Close()

	if err := dbPool.Migrate(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deadline, hasDeadline, _ := cfg.Pool.Deadline()
	loc, _ := cfg.Pool.Location()

	opts := service.Options{
		SubmissionCutoff: cfg.Pool.SubmissionCutoff,
		IsOperator:       cfg.IsAdmin,
		Metrics:          metrics.New(reg),
	}
	if hasDeadline {
		opts.BetsDeadline = &deadline
	}

	var notifier *cache.Notifier
	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()

		notifier = cache.NewNotifier(rdb, cfg.Redis.Channel)
		opts.Cache = cache.NewLeaderboardCache(rdb, cfg.Redis.CacheTTL)
		opts.Publisher = notifier
	} else {
		log.Warn().Msg("redis.addr not set, leaderboard cache disabled")
	}

	stores := service.Stores{
		Profiles:  repository.NewProfileRepository(dbPool.Pool),
		Teams:     repository.NewTeamRepository(dbPool.Pool),
		Matches:   repository.NewMatchRepository(dbPool.Pool),
		Guesses:   repository.NewGuessRepository(dbPool.Pool),
		Bets:      repository.NewBetRepository(dbPool.Pool),
		Snapshots: repository.NewSnapshotRepository(dbPool.Pool),
	}
	pool := service.NewPoolService(stores, opts)

	if notifier != nil {
		if err := pool.Watch(ctx, notifier); err != nil {
			return err
		}
		log.Info().Str("channel", cfg.Redis.Channel).Msg("Watching pool changes")
	}

	var telegramBot *bot.Bot
	if cfg.Bot.Token != "" {
		telegramBot, err = bot.New(&bot.Dependencies{
			Config:      cfg,
			PoolService: pool,
			UserLock:    lock.NewUserLock(),
			Location:    loc,
		})
		if err != nil {
			return err
		}
		go telegramBot.Start()
	} else {
		log.Warn().Msg("bot.token not set, Telegram bot disabled")
	}

	var httpServer *http.Server
	if cfg.HTTP.Addr != "" {
		router := api.New(pool, api.Options{
			JWTSecret:         cfg.HTTP.JWTSecret,
			Gatherer:          reg,
			Health:            dbPool.HealthCheck,
			RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
			Burst:             cfg.HTTP.Burst,
		}).Router()

		httpServer = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP API listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("HTTP server failed")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	if telegramBot != nil {
		telegramBot.Stop()
	}
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
	}

	log.Info().Msg("Stopped gracefully")
	return nil
}
