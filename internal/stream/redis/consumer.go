package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/guardkit/guardkit/internal/guard"
	"github.com/guardkit/guardkit/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Consumer reads validate requests from a Redis stream with a consumer
// group, runs each through the guard and publishes the result to the
// result stream.
type Consumer struct {
	client        *redis.Client
	requestStream string
	resultStream  string
	groupID       string
	consumerName  string
	guard         *guard.Guard
	logger        *zerolog.Logger
}

func NewConsumer(client *redis.Client, cfg *StreamConfig, g *guard.Guard, logger *zerolog.Logger) *Consumer {
	return &Consumer{
		client:        client,
		requestStream: cfg.RequestStream,
		resultStream:  cfg.ResultStream,
		groupID:       cfg.Group,
		consumerName:  cfg.ConsumerName,
		guard:         g,
		logger:        logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.requestStream, c.groupID, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.requestStream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.requestStream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				// timeout, no message -> loop again
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err() // context cancelled during block
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, msg := range msgs[0].Messages {
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) Stop() error {
	// No-op
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		c.logger.Error().Str("id", msg.ID).Msg("Missing payload field")
		c.ack(ctx, msg.ID)
		return
	}

	var request models.ValidatePayload
	if err := json.Unmarshal([]byte(payload), &request); err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID) // bad message, ack to skip it
		return
	}

	run, err := c.guard.Validate(ctx, request.RequestID, request.Text)
	if err != nil && !errors.Is(err, guard.ErrValidationFailed) {
		// Routing or transport failure: leave the message pending so
		// another consumer (or a retry) can pick it up.
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Validation failed to run")
		return
	}

	c.logger.Info().
		Str("id", msg.ID).
		Str("request_id", run.RequestID).
		Str("outcome", string(run.Outcome)).
		Msg("Validation complete")

	c.publish(ctx, run)
	c.ack(ctx, msg.ID)
}

func (c *Consumer) publish(ctx context.Context, run models.GuardResult) {
	data, err := json.Marshal(run)
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", run.RequestID).Msg("Failed to marshal result")
		return
	}

	err = c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.resultStream,
		Values: map[string]any{"payload": string(data)},
	}).Err()
	if err != nil {
		c.logger.Error().Err(err).Str("request_id", run.RequestID).Msg("Failed to publish result")
	}
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(ctx, c.requestStream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}
