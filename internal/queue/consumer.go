package queue

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is a single entry read from a stream, carrying the decoded
// event together with its Redis message ID for acknowledgement.
type Message struct {
	ID    string
	Event ReminderEvent
}

// Consumer defines the interface for reading reminder events from a
// stream as part of a consumer group.
type Consumer interface {
	// EnsureGroup creates the consumer group for the stream if it does
	// not already exist. Safe to call repeatedly.
	EnsureGroup(ctx context.Context, stream, group string) error

	// Read blocks up to the given duration waiting for new messages
	// addressed to this consumer. Returns an empty slice on timeout.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)

	// ReadPending fetches messages that were delivered to this consumer
	// but never acknowledged, for recovery after a crash.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)

	// Ack acknowledges a message so it is not redelivered.
	Ack(ctx context.Context, stream, group, messageID string) error
}

// RedisConsumer implements Consumer using Redis Streams consumer groups.
type RedisConsumer struct {
	client *redis.Client
}

// NewConsumer creates a new Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return c.decode(streams), nil
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup pending: %w", err)
	}
	return c.decode(streams), nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group, messageID string) error {
	if err := c.client.XAck(ctx, stream, group, messageID).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

// decode converts raw stream entries into Messages, dropping entries
// whose payload cannot be parsed.
func (c *RedisConsumer) decode(streams []redis.XStream) []Message {
	var messages []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			event, err := ParseReminderEvent(m.Values)
			if err != nil {
				log.Printf("[Consumer] Skipping malformed message %s: %v", m.ID, err)
				continue
			}
			messages = append(messages, Message{ID: m.ID, Event: event})
		}
	}
	return messages
}
