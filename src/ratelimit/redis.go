package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"

	"github.com/bubtconnect/backend/src/apperr"
)

// RedisLimiter keeps one sorted set per user, scored by send time in
// milliseconds, so every instance shares the same sliding window.
type RedisLimiter struct {
	client *redis.Client
	clock  clock.Clock
	policy Policy
}

func NewRedisLimiter(client *redis.Client, clk clock.Clock, policy Policy) *RedisLimiter {
	return &RedisLimiter{client: client, clock: clk, policy: policy}
}

func limiterKey(identity string) string {
	return fmt.Sprintf("ratelimit:connection-request:%s", identity)
}

func (l *RedisLimiter) Allow(ctx context.Context, identity string) error {
	key := limiterKey(identity)
	cutoff := l.clock.Now().Add(-l.policy.Window).UnixMilli()

	pipe := l.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("read rate window: %w", err)
	}

	if card.Val() >= int64(l.policy.Limit) {
		return apperr.ErrRateLimited
	}
	return nil
}

func (l *RedisLimiter) Record(ctx context.Context, identity string, at time.Time) error {
	key := limiterKey(identity)

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, l.policy.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record rate window: %w", err)
	}
	return nil
}
