package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/pollbot/internal/adapter/discord"
	"github.com/pscheid92/pollbot/internal/adapter/filestore"
	"github.com/pscheid92/pollbot/internal/adapter/httpserver"
	"github.com/pscheid92/pollbot/internal/adapter/metrics"
	"github.com/pscheid92/pollbot/internal/adapter/postgres"
	"github.com/pscheid92/pollbot/internal/adapter/redis"
	"github.com/pscheid92/pollbot/internal/app"
	"github.com/pscheid92/pollbot/internal/domain"
	"github.com/pscheid92/pollbot/internal/platform/config"
	"github.com/pscheid92/pollbot/internal/platform/logging"
)

type storeResult struct {
	store   domain.PollStore
	checks  []httpserver.HealthCheck
	cleanup func()
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupStore(cfg *config.Config, m *metrics.StoreMetrics) storeResult {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.PollStore {
	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL, m)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		store := redis.NewPollStore(client)
		return storeResult{
			store:   store,
			checks:  []httpserver.HealthCheck{{Name: "redis", Check: store.Ping}},
			cleanup: func() { _ = client.Close() },
		}

	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		store := postgres.NewPollStore(pool)
		return storeResult{
			store:   store,
			checks:  []httpserver.HealthCheck{{Name: "postgres", Check: store.Ping}},
			cleanup: pool.Close,
		}

	default:
		slog.Info("Using file poll store", "path", cfg.PollsFile)
		return storeResult{
			store:   filestore.NewPollStore(cfg.PollsFile, m),
			cleanup: func() {},
		}
	}
}

func runGracefulShutdown(srv *httpserver.Server, bot *discord.Bot, manager *app.Manager, reconciler *app.StoreReconciler, ledger *app.Ledger, cancelRun context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		if err := bot.Close(); err != nil {
			slog.Error("Discord session close error", "error", err)
		}

		manager.Stop()
		reconciler.Stop()
		cancelRun()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := ledger.Sync(shutdownCtx); err != nil {
			slog.Error("Final poll store sync failed", "error", err)
		}

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.PollStore)

	reg := metrics.NewRegistry()
	pollMetrics := metrics.NewPollMetrics(reg)
	storeMetrics := metrics.NewStoreMetrics(reg)
	botMetrics := metrics.NewBotMetrics(reg)

	sr := setupStore(cfg, storeMetrics)
	defer sr.cleanup()

	ledger := app.NewLedger(sr.store)

	session, err := discord.NewSession(cfg.BotToken)
	if err != nil {
		slog.Error("Failed to create Discord session", "error", err)
		os.Exit(1)
	}

	renderer := discord.NewRenderer(session, clock, botMetrics)
	manager := app.NewManager(ledger, renderer, clock, pollMetrics)

	router := discord.NewRouter(session, renderer, manager, clock, botMetrics, discord.RouterConfig{
		Prefix:               cfg.CommandPrefix,
		PollsChannel:         cfg.PollsChannel,
		SuggestionChannel:    cfg.SuggestionChannel,
		CommandRatePerMinute: cfg.CommandRatePerMinute,
	}, session.HeartbeatLatency)

	bot := discord.NewBot(session, router, clock, botMetrics, discord.BotConfig{
		GuildID:         cfg.GuildID,
		StartupChannels: cfg.StartupChannels,
	})

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	// Buttons on restored polls must work as soon as the gateway delivers them.
	report := manager.Restore(runCtx)
	slog.Info("Polls restored",
		"resumed", report.Resumed,
		"concluded", report.Concluded,
		"dropped", report.Dropped,
		"skipped", report.Skipped)

	openCtx, cancelOpen := context.WithTimeout(runCtx, 45*time.Second)
	if err := bot.Open(openCtx); err != nil {
		cancelOpen()
		slog.Error("Failed to connect to Discord", "error", err)
		os.Exit(1)
	}
	cancelOpen()

	reconciler := app.NewStoreReconciler(ledger, clock, pollMetrics)
	go reconciler.Start(runCtx)
	go bot.RunHeartbeatMonitor(runCtx)

	checks := append(sr.checks, httpserver.HealthCheck{Name: "discord", Check: bot.Check})
	srv := httpserver.NewServer(cfg.Port, manager, reg, checks, clock)

	done := runGracefulShutdown(srv, bot, manager, reconciler, ledger, cancelRun)

	slog.Info("Bot running", "port", cfg.Port, "prefix", cfg.CommandPrefix)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
