package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

// CachedRepository caches agent lookups in Redis. Every inbound message
// resolves an agent, so the hot path avoids a database round trip.
type CachedRepository struct {
	inner  Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps a repository with a Redis read-through cache.
func NewCachedRepository(inner Repository, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if inner == nil {
		panic("agents: inner repository required")
	}
	if redisClient == nil {
		panic("agents: redis client required")
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{inner: inner, redis: redisClient, ttl: ttl, logger: logger}
}

// GetByPhoneNumberID returns the cached agent or falls through to the inner
// repository. Cache failures degrade to direct lookups, never to errors.
func (r *CachedRepository) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*Agent, error) {
	key := cacheKey(phoneNumberID)

	data, err := r.redis.Get(ctx, key).Bytes()
	if err == nil {
		var agent Agent
		if err := json.Unmarshal(data, &agent); err == nil {
			return &agent, nil
		}
		r.logger.Warn("discarding undecodable cached agent", "phone_number_id", phoneNumberID)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("agent cache read failed", "error", err, "phone_number_id", phoneNumberID)
	}

	agent, err := r.inner.GetByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(agent); err == nil {
		if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("agent cache write failed", "error", err, "phone_number_id", phoneNumberID)
		}
	}
	return agent, nil
}

// Invalidate drops the cached entry for a phone number id.
func (r *CachedRepository) Invalidate(ctx context.Context, phoneNumberID string) error {
	if err := r.redis.Del(ctx, cacheKey(phoneNumberID)).Err(); err != nil {
		return fmt.Errorf("agents: invalidate cache: %w", err)
	}
	return nil
}

func cacheKey(phoneNumberID string) string {
	return "agent:phone:" + phoneNumberID
}
