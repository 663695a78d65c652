package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared go-redis client used by the feed cache and the
// event stream.
type Client struct {
	*redis.Client
}

// NewClient creates a client from a URL such as redis://:password@host:6379/0
// and verifies it answers within timeout.
func NewClient(ctx context.Context, redisURL string, timeout time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	// Consumers block on XREADGROUP for up to 5s; leave headroom.
	opts.ReadTimeout = 10 * time.Second

	c := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		c.Client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}
