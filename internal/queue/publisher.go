package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher defines the interface for publishing events to a stream.
type Publisher interface {
	// Publish adds an event to the specified stream.
	// Returns the message ID assigned by Redis.
	Publish(ctx context.Context, stream string, event ImageEvent) (messageID string, err error)
}

// RedisPublisher implements Publisher using Redis Streams.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.Logger
}

// NewPublisher creates a new Publisher backed by Redis Streams.
func NewPublisher(client *redis.Client, log *zap.Logger) Publisher {
	return &RedisPublisher{client: client, log: log.Named("publisher")}
}

// Publish adds an event to the stream using XADD.
func (p *RedisPublisher) Publish(ctx context.Context, stream string, event ImageEvent) (string, error) {
	startTime := time.Now()

	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		p.log.Error("publish failed",
			zap.String("stream", stream),
			zap.String("type", event.Type),
			zap.Error(err))
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	p.log.Debug("published",
		zap.String("stream", stream),
		zap.String("type", event.Type),
		zap.String("msg_id", messageID),
		zap.String("image_id", event.ImageID),
		zap.Int("attempt", event.Attempt),
		zap.Duration("duration", time.Since(startTime)))

	return messageID, nil
}

// ErrQueueDisabled is returned by DisabledPublisher.
var ErrQueueDisabled = errors.New("queue disabled")

// DisabledPublisher rejects every event. Used when Redis is not configured.
type DisabledPublisher struct{}

func (DisabledPublisher) Publish(context.Context, string, ImageEvent) (string, error) {
	return "", ErrQueueDisabled
}
