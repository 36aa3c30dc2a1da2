// Package ratelimit throttles analyses per (user, action).
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by New
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Limiter decides whether one more request for (userID, action) may proceed
type Limiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}

// Config holds the throttle settings shared by every backend
type Config struct {
	Backend string
	Limit   int
	Window  time.Duration
}

// New returns the limiter selected by cfg.Backend. rdb may be nil for the memory backend.
func New(cfg Config, rdb redis.UniversalClient) (Limiter, error) {
	if cfg.Limit <= 0 || cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit requires positive limit and window, got %d per %s", cfg.Limit, cfg.Window)
	}

	switch cfg.Backend {
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis rate limiter requires a redis client")
		}
		return NewRedisLimiter(rdb, cfg.Limit, cfg.Window), nil
	case BackendMemory, "":
		return NewMemoryLimiter(cfg.Limit, cfg.Window), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

func key(userID, action string) string {
	return "ratelimit:" + action + ":" + userID
}
