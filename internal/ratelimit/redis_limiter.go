package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims expired hits, then either records the hit or reports how long until the oldest one expires.
// Scores are unix milliseconds.
var slidingWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  redis.call('PEXPIRE', KEYS[1], window)
  return {1, limit - count - 1, 0}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, 0, tonumber(oldest[2]) + window - now}
`)

// RedisLimiter keeps each bucket as a sorted set of hit timestamps shared by all bot instances.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{client: client, log: log, now: time.Now}
}

// Allow records a hit against b when the rule still has room.
func (l *RedisLimiter) Allow(ctx context.Context, b Bucket, rule Rule) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("redis client is not configured for rate limiting")
	}
	if rule.Limit <= 0 {
		return rejectAll(b, rule), nil
	}

	key := b.Key()
	raw, err := slidingWindow.Run(ctx, l.client, []string{key},
		l.now().UnixMilli(), rule.Window.Milliseconds(), rule.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		l.log.Error("rate limiter script failed", slog.String("bucket", key), slog.Any("error", err))
		return Decision{}, err
	}
	if len(raw) != 3 {
		return Decision{}, fmt.Errorf("rate limiter script returned %d values", len(raw))
	}

	return Decision{
		Bucket:     b,
		Allowed:    raw[0] == 1,
		Remaining:  int(raw[1]),
		RetryAfter: time.Duration(raw[2]) * time.Millisecond,
	}, nil
}
