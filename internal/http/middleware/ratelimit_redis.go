package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter key increments within a fixed window keyed by the window number.
// The script keeps the increment and the expiry set atomic.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type redisFixedWindowLimiter struct {
	client *redis.Client
}

func NewRedisFixedWindowLimiter(client *redis.Client) Limiter {
	return &redisFixedWindowLimiter{client: client}
}

func (l *redisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	bucket := now.UnixMilli() / window.Milliseconds()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	current, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if current > int64(limit) {
		windowEnd := time.UnixMilli((bucket + 1) * window.Milliseconds())
		return false, windowEnd.Sub(now), nil
	}
	return true, 0, nil
}
