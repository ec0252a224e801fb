package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
)

// PlatformLimiter bounds concurrent downloads per source platform so
// one platform's rate limits never starve the others. Acquire blocks
// until a slot frees up or the context is cancelled.
type PlatformLimiter interface {
	Acquire(ctx context.Context, platform string) (release func(), err error)
}

// redisLimiter counts in-flight downloads per platform in redis, so the
// bound holds across backend replicas. Keys carry a TTL so a crashed
// worker's slot frees itself.
type redisLimiter struct {
	log  *logger.Logger
	rdb  *goredis.Client
	max  int64
	ttl  time.Duration
	poll time.Duration
}

func NewRedisLimiter(log *logger.Logger, rdb *goredis.Client, maxPerPlatform int) PlatformLimiter {
	return &redisLimiter{
		log:  log.With("component", "RedisLimiter"),
		rdb:  rdb,
		max:  int64(maxPerPlatform),
		ttl:  10 * time.Minute,
		poll: 500 * time.Millisecond,
	}
}

func (l *redisLimiter) key(platform string) string {
	return fmt.Sprintf("clipforge:downloads:%s", platform)
}

func (l *redisLimiter) Acquire(ctx context.Context, platform string) (func(), error) {
	key := l.key(platform)
	for {
		n, err := l.rdb.Incr(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("limiter incr: %w", err)
		}
		l.rdb.Expire(ctx, key, l.ttl)
		if n <= l.max {
			return func() {
				if err := l.rdb.Decr(context.Background(), key).Err(); err != nil {
					l.log.Warn("limiter release failed", "platform", platform, "error", err)
				}
			}, nil
		}
		// Over the bound: give the slot back and wait for one to free.
		if err := l.rdb.Decr(ctx, key).Err(); err != nil {
			l.log.Warn("limiter rollback failed", "platform", platform, "error", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}

// localLimiter is the single-process fallback used when redis is not
// configured (and in tests).
type localLimiter struct {
	mu    sync.Mutex
	max   int
	slots map[string]chan struct{}
}

func NewLocalLimiter(maxPerPlatform int) PlatformLimiter {
	if maxPerPlatform < 1 {
		maxPerPlatform = 1
	}
	return &localLimiter{max: maxPerPlatform, slots: make(map[string]chan struct{})}
}

func (l *localLimiter) Acquire(ctx context.Context, platform string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.slots[platform]
	if !ok {
		ch = make(chan struct{}, l.max)
		l.slots[platform] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
