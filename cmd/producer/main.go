package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/guardkit/guardkit/internal/models"
	red "github.com/guardkit/guardkit/internal/redis"
	setuplogger "github.com/guardkit/guardkit/internal/setup/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	data := flag.String("d", "", "Inline JSON ValidatePayload")
	stream := flag.String("stream", "validate-requests", "Stream name")
	flag.Parse()

	if *data == "" {
		fmt.Fprintln(os.Stderr, "Usage: producer -d '<json>'")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log.Logger = setuplogger.New("guardkit-producer", os.Getenv("LOG_LEVEL"))

	if err := run(*data, *stream); err != nil {
		log.Error().Err(err).Msg("producer failed")
		os.Exit(1)
	}
}

func run(data, stream string) error {
	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	ctx := context.Background()
	logger := log.Logger
	client, err := red.Connect(ctx, addr, os.Getenv("REDIS_PASSWORD"), 3, &logger)
	if err != nil {
		return err
	}
	defer client.Close()

	var payload models.ValidatePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return err
	}

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"payload": data},
	}).Result()
	if err != nil {
		return err
	}

	log.Info().Str("stream", stream).Str("id", id).Str("request_id", payload.RequestID).Msg("Published successfully!")
	return nil
}
