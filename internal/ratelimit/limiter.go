package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether a client identified by key may make another
// request right now.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Config tunes the fixed-window policy.
type Config struct {
	Limit  int           // requests per window
	Window time.Duration // window length
}

// DefaultConfig allows 20 requests per hour per client.
func DefaultConfig() Config {
	return Config{Limit: 20, Window: time.Hour}
}

// RedisLimiter is a fixed-window counter in Redis, shared across server
// instances. Each client key gets one counter per window, expired one full
// window after the window closes so stale counters clean themselves up.
type RedisLimiter struct {
	client *redis.Client
	config Config
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, config Config) *RedisLimiter {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	return &RedisLimiter{
		client: client,
		config: config,
		prefix: "ratelimit",
	}
}

// Allow counts this request against the client's current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowTS := time.Now().Unix() / int64(l.config.Window.Seconds())
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, windowTS)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.config.Window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit check failed: %w", err)
	}

	count := int(incr.Val())
	decision := Decision{
		Allowed:   count <= l.config.Limit,
		Remaining: l.config.Limit - count,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		windowEnd := (windowTS + 1) * int64(l.config.Window.Seconds())
		decision.RetryAfter = time.Until(time.Unix(windowEnd, 0))
	}

	return decision, nil
}

// LocalLimiter is the in-process fallback used when Redis is not
// configured. It keeps one token bucket per client, sized so the sustained
// rate matches the fixed-window policy.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   Config
}

// NewLocalLimiter creates an in-process limiter.
func NewLocalLimiter(config Config) *LocalLimiter {
	if config.Limit <= 0 {
		config.Limit = DefaultConfig().Limit
	}
	if config.Window <= 0 {
		config.Window = DefaultConfig().Window
	}
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
	}
}

// Allow checks the client's token bucket.
func (l *LocalLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		perSecond := rate.Limit(float64(l.config.Limit) / l.config.Window.Seconds())
		limiter = rate.NewLimiter(perSecond, l.config.Limit)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	if !limiter.Allow() {
		return Decision{RetryAfter: time.Second}, nil
	}
	return Decision{Allowed: true, Remaining: int(limiter.Tokens())}, nil
}
