package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "adjudicator/pkg/domain"
)

const profileKeyPrefix = "adjudicator:registry:profile:"

// RedisCache is a read-through cache in front of another Source. Cache
// failures degrade to the underlying source; they never fail a lookup.
type RedisCache struct {
	client  *redis.Client
	next    Source
	ttl     time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

func NewRedisCache(client *redis.Client, next Source, ttl time.Duration, logger *slog.Logger, metrics *Metrics) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, next: next, ttl: ttl, logger: logger, metrics: metrics}
}

func profileKey(stakeholderID id.StakeholderID) string {
	return profileKeyPrefix + stakeholderID.String()
}

func (c *RedisCache) Lookup(ctx context.Context, stakeholderID id.StakeholderID) (*Profile, error) {
	start := time.Now()
	key := profileKey(stakeholderID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Profile
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			c.metrics.ObserveHit(start)
			return &p, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable registry cache entry", "stakeholder_id", stakeholderID.String())
	case errors.Is(err, redis.Nil):
	default:
		c.logger.WarnContext(ctx, "registry cache read failed", "error", err)
	}
	c.metrics.ObserveMiss(start)

	p, err := c.next.Lookup(ctx, stakeholderID)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(p); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "registry cache write failed", "error", err)
		}
	}
	return p, nil
}

// Invalidate drops a cached profile, e.g. after the registry reports a change.
func (c *RedisCache) Invalidate(ctx context.Context, stakeholderID id.StakeholderID) error {
	return c.client.Del(ctx, profileKey(stakeholderID)).Err()
}
