package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"countriapi/internal/ratelimit/models"
	"countriapi/pkg/platform/sentinel"
)

// fixedWindowScript increments the window counter and starts the window expiry on
// the first hit. Returns {count, pttl}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisStore keeps fixed-window counters in Redis so several processes share one limit.
type RedisStore struct {
	client *redis.Client
	clock  Clock
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, clock: time.Now}
}

// Allow atomically counts one request against key.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	raw, err := fixedWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("run fixed window script: %w: %w", sentinel.ErrUnavailable, err)
	}
	if len(raw) != 2 {
		return nil, fmt.Errorf("unexpected fixed window reply: %v", raw)
	}

	count := int(raw[0])
	ttl := time.Duration(raw[1]) * time.Millisecond
	resetAt := s.clock().Add(ttl)

	if count <= limit {
		return &models.RateLimitResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - count,
			ResetAt:   resetAt,
		}, nil
	}
	return &models.RateLimitResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: ttl,
	}, nil
}

// Reset clears the counter for key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete window %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
