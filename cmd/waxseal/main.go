package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/waxseal/waxseal/internal/chain"
	"github.com/waxseal/waxseal/internal/config"
	"github.com/waxseal/waxseal/internal/export"
	slacknotify "github.com/waxseal/waxseal/internal/notify/slack"
	"github.com/waxseal/waxseal/internal/server"
	"github.com/waxseal/waxseal/internal/store/postgres"
	redisstore "github.com/waxseal/waxseal/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("WAXSEAL_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("WAXSEAL_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL, the single source of truth for the chain.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	if err = store.EnsureSchema(ctx); err != nil {
		return err
	}

	// Connect to Redis for the live entry feed, when configured.
	var pubsub *redisstore.PubSub
	if cfg.Redis.Addr != "" {
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	} else {
		log.Warn().Msg("redis not configured; live tail disabled")
	}

	// Slack alerting for append failures and CRITICAL entries, when configured.
	var alerter chain.Alerter
	if cfg.Slack.BotToken != "" {
		alerter = slacknotify.NewAlerter(slacklib.New(cfg.Slack.BotToken), cfg.Slack.AlertChannel)
		log.Info().Str("channel", cfg.Slack.AlertChannel).Msg("slack alerting enabled")
	}

	// Object storage for export artifacts, when configured.
	var archiver *export.Archiver
	if cfg.Archive.Endpoint != "" {
		archiver, err = export.NewArchiver(ctx, cfg.Archive.Endpoint, cfg.Archive.AccessKey,
			cfg.Archive.SecretKey, cfg.Archive.Bucket, cfg.Archive.UseSSL)
		if err != nil {
			return err
		}
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("export archiving enabled")
	}

	// Chain core.
	writer := chain.NewWriter(store.Entries())
	verifier := chain.NewVerifier(store.Entries())

	var publisher chain.Publisher
	if pubsub != nil {
		publisher = pubsub
	}
	recorder := chain.NewRecorder(writer, publisher, redisstore.EntriesChannel(), alerter)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, pubsub, writer, recorder, verifier, archiver)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
