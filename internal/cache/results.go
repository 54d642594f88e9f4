package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/guardkit/guardkit/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "guardkit:result:"

// ResultsCache memoizes single-validator results in Redis. Validators are
// deterministic for a given text, so identical requests can reuse the
// stored verdict instead of re-running inference.
type ResultsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewResultsCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *ResultsCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ResultsCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached result for a validator/text pair, or false on a
// miss. Cache errors count as misses; the caller re-validates.
func (c *ResultsCache) Get(ctx context.Context, validatorName, text string) (models.ValidationResult, bool) {
	data, err := c.client.Get(ctx, cacheKey(validatorName, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("validator", validatorName).Msg("cache read failed")
		}
		return models.ValidationResult{}, false
	}

	var result models.ValidationResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Str("validator", validatorName).Msg("cache entry corrupt")
		return models.ValidationResult{}, false
	}

	return result, true
}

func (c *ResultsCache) Set(ctx context.Context, validatorName, text string, result models.ValidationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Str("validator", validatorName).Msg("failed to marshal result for cache")
		return
	}

	if err := c.client.Set(ctx, cacheKey(validatorName, text), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("validator", validatorName).Msg("cache write failed")
	}
}

func cacheKey(validatorName, text string) string {
	sum := sha256.Sum256([]byte(validatorName + "\x00" + text))
	return keyPrefix + hex.EncodeToString(sum[:])
}
