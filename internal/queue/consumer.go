package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is one decoded stream entry.
type Message struct {
	ID    string // stream entry ID, e.g. "1702000000000-0"
	Event Event
}

// Consumer reads the square stream as a member of a consumer group.
type Consumer interface {
	EnsureGroup(ctx context.Context, stream, group string) error
	// Read waits up to block for new entries; a timeout yields (nil, nil).
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
	// ReadPending returns entries delivered to consumer but not yet acked.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)
}

// RedisConsumer implements Consumer using Redis Streams.
type RedisConsumer struct {
	client *redis.Client
}

// NewConsumer creates a new Consumer backed by Redis Streams.
func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

// EnsureGroup creates the group (and stream) starting at "0" so events
// published before the first worker started are still processed.
func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	switch {
	case err == nil:
		log.Printf("[Consumer] Group created: stream=%s group=%s", stream, group)
		return nil
	case strings.HasPrefix(err.Error(), "BUSYGROUP"):
		return nil
	default:
		return fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}
}

// Read blocks up to block for entries never delivered to any consumer.
func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.readGroup(ctx, stream, group, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	})
}

// ReadPending returns entries already delivered to consumer but never acked,
// oldest first. An empty result means the pending list is drained.
func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	return c.readGroup(ctx, stream, group, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, "0"},
		Count:    count,
		// Block < 0 omits BLOCK so the pending read returns immediately.
		Block: -1,
	})
}

func (c *RedisConsumer) readGroup(ctx context.Context, stream, group string, args *redis.XReadGroupArgs) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup %s (%s): %w", stream, args.Streams[1], err)
	}
	return c.decode(ctx, stream, group, streams), nil
}

// Ack removes entries from the group's pending list.
func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack %d entries: %w", len(messageIDs), err)
	}
	return nil
}

// decode turns stream entries into events. Entries that fail to decode are
// acked straight away; retrying them could never succeed.
func (c *RedisConsumer) decode(ctx context.Context, stream, group string, streams []redis.XStream) []Message {
	var out []Message
	var bad []string
	for _, s := range streams {
		for _, entry := range s.Messages {
			event, err := ParseEvent(entry.Values)
			if err != nil {
				log.Printf("[Consumer] Dropping undecodable entry %s: %v", entry.ID, err)
				bad = append(bad, entry.ID)
				continue
			}
			out = append(out, Message{ID: entry.ID, Event: event})
		}
	}
	if err := c.Ack(ctx, stream, group, bad...); err != nil {
		log.Printf("[Consumer] Ack of dropped entries FAILED: %v", err)
	}
	return out
}
