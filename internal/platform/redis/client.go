// Package redis builds the shared go-redis client used for request locks,
// submission limits and the registry cache.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"adjudicator/internal/platform/config"
)

// Client embeds the go-redis client so callers can pass it wherever a
// redis.Cmdable or redis.Scripter is expected.
type Client struct {
	*redis.Client
}

// New connects and pings within the dial timeout. It returns a nil client and
// no error when no URL is configured; callers then fall back to in-memory
// implementations.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := c.Health(pingCtx); err != nil {
		_ = c.Client.Close()
		return nil, err
	}
	return c, nil
}

// Health is the readiness check.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}
