package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Wissididom/twitch-sus-user-logger/internal/api"
	"github.com/Wissididom/twitch-sus-user-logger/internal/config"
	"github.com/Wissididom/twitch-sus-user-logger/internal/discord"
	"github.com/Wissididom/twitch-sus-user-logger/internal/engine"
	"github.com/Wissididom/twitch-sus-user-logger/internal/eventsub"
	"github.com/Wissididom/twitch-sus-user-logger/internal/store"
	"github.com/Wissididom/twitch-sus-user-logger/internal/twitch"
	"github.com/Wissididom/twitch-sus-user-logger/internal/websocket"
	"github.com/Wissididom/twitch-sus-user-logger/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the EventSub webhook server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.SlogLevel())
			if err := runServe(cfg, logger); err != nil {
				logger.Error("server failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func runServe(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	dest := discord.Destination{WebhookURL: cfg.DiscordWebhookURL, ThreadID: cfg.ThreadID}
	if _, err := dest.ExecuteURL(); err != nil {
		return fmt.Errorf("invalid DISCORD_WEBHOOK_URL: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	opts := []worker.Option{
		worker.WithTimeout(cfg.DeliveryTimeout),
		worker.WithNotifier(hub),
	}
	healthChecks := map[string]api.HealthCheck{}
	var deliveryLog api.DeliveryLog

	// Initialize PostgreSQL
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		logger.Info("connected to PostgreSQL")

		if err := pgStore.RunMigrations(ctx, store.Migrations()); err != nil {
			return err
		}
		logger.Info("database migrations applied")

		opts = append(opts, worker.WithRecorder(pgStore))
		deliveryLog = pgStore
		healthChecks["postgres"] = pgStore.Ping
	} else {
		logger.Info("DATABASE_URL not set, delivery log disabled")
	}

	// Initialize Redis
	if cfg.RedisURL != "" {
		redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		logger.Info("connected to Redis")

		client := redisStore.Client()
		opts = append(opts,
			worker.WithCircuitBreaker(engine.NewCircuitBreaker(client, logger, 0, 0)),
			worker.WithRateLimiter(engine.NewRateLimiter(client, logger), cfg.DiscordRateLimit),
		)
		healthChecks["redis"] = redisStore.Ping
	} else {
		logger.Info("REDIS_URL not set, circuit breaker and rate limiter disabled")
	}

	deliverer := worker.NewDeliverer(discord.NewClient(cfg.DeliveryTimeout), logger, opts...)
	pool := worker.NewPool(cfg.NumWorkers, cfg.QueueSize, deliverer, logger)
	pool.Start(ctx)

	var auth *api.AuthHandler
	if creds := cfg.TwitchCredentials(); creds.Enabled() {
		auth = api.NewAuthHandler(creds, twitch.NewClient(creds.ClientID, 10*time.Second), logger)
	} else {
		logger.Info("twitch credentials not set, /auth disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		EventSub: api.NewEventSubHandler(
			eventsub.NewVerifier(cfg.EventSubSecret, cfg.EventSubMaxMessageAge),
			pool, dest, cfg.MaxBodySize, logger,
		),
		Auth:         auth,
		Deliveries:   deliveryLog,
		LiveFeed:     http.HandlerFunc(hub.HandleWebSocket),
		HealthChecks: healthChecks,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		pool.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// Queued deliveries finish before their context is cancelled.
	pool.Stop()

	logger.Info("server stopped")
	return nil
}
