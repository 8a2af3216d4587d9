package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/api"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/config"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/crypto"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/events"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/handlers"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/ingest"
	"github.com/navansh03/LyftrAI-Webhook-Backend-Assignment/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx := context.Background()

	// Initialize message store
	driver, dsn, err := cfg.StoreDriver()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	messages, err := store.Open(ctx, driver, dsn)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", driver).Msg("message store unavailable")
	}
	defer messages.Close()
	logger.Info().Str("driver", driver).Msg("message store ready")

	// Signature verifier; without a secret the server runs but refuses webhooks
	verifier, err := crypto.NewVerifier(cfg.WebhookSecret)
	if err != nil {
		logger.Warn().Err(err).Msg("webhook deliveries will be rejected until WEBHOOK_SECRET is set")
		verifier = nil
	}

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	opts := []ingest.Option{
		ingest.WithMaxTextLength(cfg.MaxTextLength),
		ingest.WithLogger(logger),
	}

	// Downstream fan-out
	var publisher *events.NATSPublisher
	if cfg.NatsURL != "" {
		publisher, err = events.NewNATSPublisher(cfg.NatsURL, cfg.NatsSubject, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connection failed")
		}
		defer publisher.Close()
		opts = append(opts, ingest.WithPublisher(publisher))
		logger.Info().Str("subject", cfg.NatsSubject).Msg("connected to NATS")
	}

	pipeline := ingest.NewPipeline(verifier, messages, opts...)

	h := handlers.NewHandler(messages, pipeline, logger, handlers.PageLimits{
		Default: cfg.MessagesDefaultPage,
		Max:     cfg.MessagesMaxPage,
	})
	if redisStore != nil {
		h.Report("redis", redisStore)
	}
	if publisher != nil {
		h.Report("nats", publisher)
	}

	// Create router
	router := api.NewRouter(logger, cfg, h, redisStore)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Bool("secret_configured", cfg.SecretConfigured()).
			Msg("starting webhook ingestion server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
