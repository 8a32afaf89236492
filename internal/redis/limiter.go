package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited = errors.New("lookup rate limit exceeded")
)

// Limiter throttles lookups per client so access tokens cannot be guessed
// by brute force.
type Limiter interface {
	Allow(ctx context.Context, client string) error
}

type redisWindowLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisWindowLimiter allows limit lookups per client in each fixed window.
func NewRedisWindowLimiter(client *redis.Client, limit int, window time.Duration) Limiter {
	return &redisWindowLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// The counter key expires together with its window, so the first INCR in a
// window also sets the expiry.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

func (l *redisWindowLimiter) Allow(ctx context.Context, client string) error {
	n, err := windowScript.Run(ctx, l.client, []string{limiterKey(client)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("check lookup rate: %w", err)
	}
	if n > int64(l.limit) {
		return ErrRateLimited
	}
	return nil
}

func limiterKey(client string) string {
	return fmt.Sprintf("ratelimit:lookup:%s", client)
}
