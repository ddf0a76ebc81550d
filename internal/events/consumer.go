package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultConsumerGroup = "candidate-profile-consumers"

// StreamReader is the part of go-redis the consumer uses.
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Handler receives each decoded profile event. A returned error leaves the
// message unacknowledged so it is redelivered.
type Handler func(ctx context.Context, p *ProfileScrapedPayload) error

type ConsumerConfig struct {
	Stream   string
	Group    string
	Name     string
	Block    time.Duration
	Count    int64
	ErrPause time.Duration
}

type Consumer struct {
	client  StreamReader
	cfg     ConsumerConfig
	handler Handler
	logger  *slog.Logger
}

func NewConsumer(client StreamReader, cfg ConsumerConfig, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Group == "" {
		cfg.Group = DefaultConsumerGroup
	}
	if cfg.Name == "" {
		cfg.Name = "consumer-1"
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 10
	}
	if cfg.ErrPause <= 0 {
		cfg.ErrPause = time.Second
	}
	return &Consumer{
		client:  client,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "profile_consumer", "stream", cfg.Stream, "group", cfg.Group),
	}
}

// Run reads the stream until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	if c.cfg.Stream == "" {
		return fmt.Errorf("consumer stream is required")
	}

	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil &&
		!strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Name,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.Count,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ErrPause):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.handle(ctx, msg)
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) {
	payload, err := DecodeMessage(msg)
	switch {
	case err != nil:
		// undecodable entries would be redelivered forever
		c.logger.Error("dropping malformed message", "id", msg.ID, "error", err)
	case payload == nil:
		c.logger.Debug("skipping unrelated event", "id", msg.ID, "type", msg.Values["type"])
	default:
		if err := c.handler(ctx, payload); err != nil {
			c.logger.Error("failed to handle profile event", "id", msg.ID, "profile_url", payload.ProfileURL, "error", err)
			return
		}
	}

	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message", "id", msg.ID, "error", err)
	}
}

// DecodeMessage extracts the profile payload from a relayed stream entry.
// It returns nil without error for entries of other event types.
func DecodeMessage(msg redis.XMessage) (*ProfileScrapedPayload, error) {
	if t, _ := msg.Values["type"].(string); t != string(EventTypeProfileScraped) {
		return nil, nil
	}

	data, ok := msg.Values["data"].(string)
	if !ok || data == "" {
		return nil, fmt.Errorf("message %s has no data field", msg.ID)
	}

	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if len(envelope.Payload) == 0 {
		return nil, fmt.Errorf("message %s has an empty payload", msg.ID)
	}

	var payload ProfileScrapedPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &payload, nil
}
