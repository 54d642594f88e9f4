package stream

import (
	"context"
	"fmt"

	"github.com/guardkit/guardkit/internal/guard"
	redisconn "github.com/guardkit/guardkit/internal/redis"
	"github.com/guardkit/guardkit/internal/stream/redis"
	"github.com/rs/zerolog"
)

type Config struct {
	Provider    string // redis, kafka, sqs, etc
	RedisConfig *redis.StreamConfig
}

func NewConsumer(
	ctx context.Context,
	cfg *Config,
	g *guard.Guard,
	logger *zerolog.Logger,
) (Consumer, error) {

	// If provider is empty, fallback to the default configuration.
	provider := cfg.Provider
	if provider == "" {
		provider = "redis"
	}

	switch provider {
	case "redis":
		if cfg.RedisConfig == nil {
			return nil, fmt.Errorf("redis config required")
		}

		client, err := redisconn.Connect(
			ctx,
			cfg.RedisConfig.RedisAddr,
			cfg.RedisConfig.RedisPassword,
			5,
			logger,
		)
		if err != nil {
			return nil, err
		}

		return redis.NewConsumer(client, cfg.RedisConfig, g, logger), nil

	// Future providers:
	// case "kafka":
	//     return kafka.NewConsumer(...)
	// case "sqs":
	//     return sqs.NewConsumer(...)

	default:
		return nil, fmt.Errorf("unsupported stream provider: %s", cfg.Provider)
	}
}
