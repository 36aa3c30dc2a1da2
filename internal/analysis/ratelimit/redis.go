package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window log kept in one sorted set per key.
// Members are request ids scored by their arrival time in milliseconds.
type RedisLimiter struct {
	rdb    redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a limiter allowing limit requests per window
func NewRedisLimiter(rdb redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, userID, action string) (bool, error) {
	k := key(userID, action)
	now := l.now().UnixMilli()
	windowStart := now - l.window.Milliseconds()
	member := uuid.NewString()

	var card *redis.IntCmd
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", "("+strconv.FormatInt(windowStart, 10))
		card = pipe.ZCard(ctx, k)
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now), Member: member})
		pipe.PExpire(ctx, k, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", k, err)
	}

	if card.Val() < int64(l.limit) {
		return true, nil
	}

	// Denied requests do not occupy a slot.
	if err := l.rdb.ZRem(ctx, k, member).Err(); err != nil {
		return false, fmt.Errorf("rate limit %s: release slot: %w", k, err)
	}
	return false, nil
}
