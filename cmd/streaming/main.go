package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/guardkit/guardkit/internal/setup"
	setuplogger "github.com/guardkit/guardkit/internal/setup/logger"
	"github.com/guardkit/guardkit/internal/stream"
	"github.com/guardkit/guardkit/internal/stream/redis"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	logger := setuplogger.New("guardkit-worker", os.Getenv("LOG_LEVEL"))
	log.Logger = logger

	// Load env
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := setup.LoadConfig()

	deps, err := setup.Wire(ctx, cfg, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	streamCfg := &stream.Config{
		Provider: os.Getenv("STREAM_PROVIDER"),
		RedisConfig: redis.NewStreamConfig(
			cfg.RedisAddr,
			cfg.RedisPassword,
			"validate-requests",
			"validate-results",
			"guardkit-group",
			os.Getenv("HOSTNAME"),
		),
	}

	consumer, err := stream.NewConsumer(ctx, streamCfg, deps.Guard, &logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stream consumer")
	}

	// Setup consumer
	if err := consumer.Setup(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup consumer")
	}

	// Start consumer
	go func() {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Consumer stopped with error")
		}
	}()

	// Wait for context to be done
	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	log.Info().Msg("Validation worker stopped")
}
