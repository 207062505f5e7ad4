package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"identity-sync-backend/internal/delivery/http/response"
	"identity-sync-backend/pkg/logger"
	"identity-sync-backend/pkg/metrics"
	"identity-sync-backend/pkg/security"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Name labels metrics and security events ("webhook", "rpc", "auth").
	Name string
	// Requests per window
	Limit  int
	Window time.Duration
	// Custom key extractor (default: IP-based)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis (default: "rl:<name>:")
	KeyPrefix string
	// Whether to fail closed (reject) when Redis is unavailable
	FailClosed bool

	// Redis is optional; without it each process limits on its own.
	Redis       *goredis.Client
	SecurityLog *security.SecurityLogger
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

var rateLimitScript = goredis.NewScript(rateLimitLuaScript)

// NewRateLimitConfig fills the IP key function and Redis prefix.
func NewRateLimitConfig(name string, limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Name:      name,
		Limit:     limit,
		Window:    window,
		KeyPrefix: "rl:" + name + ":",
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// AuthRateLimitConfig is the strict limit for sign-in and sign-up form posts.
func AuthRateLimitConfig(window time.Duration) RateLimitConfig {
	cfg := NewRateLimitConfig("auth", 10, window)
	cfg.FailClosed = true
	return cfg
}

// RateLimitMiddleware counts requests in a fixed Redis window when a client
// is configured and falls back to an in-process token bucket otherwise.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rl:" + config.Name + ":"
	}
	fallback := newLocalLimiter(config.Limit, config.Window)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		fullKey := config.KeyPrefix + key
		limiterType := "memory"

		var (
			allowed   bool
			remaining int
			resetAt   time.Time
		)

		if config.Redis != nil {
			limiterType = "redis"
			count, reset, err := checkRateLimitRedis(c.Request.Context(), config.Redis, fullKey, config.Window)
			if err != nil {
				if config.FailClosed {
					logger.Log.Error("Rate limit backend unavailable", "limiter", config.Name, "error", err)
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
				limiterType = "memory"
				allowed, remaining, resetAt = fallback.allow(fullKey)
			} else {
				allowed = count <= config.Limit
				remaining = max(config.Limit-count, 0)
				resetAt = reset
			}
		} else {
			allowed, remaining, resetAt = fallback.allow(fullKey)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", resetAt.UTC().Format(time.RFC3339))

		if !allowed {
			retryAfter := max(int(time.Until(resetAt).Seconds()), 1)
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			metrics.RateLimitRejected.WithLabelValues(limiterType).Inc()
			config.SecurityLog.LogRateLimitTriggered(c.Request.Context(), RequestMeta(c), config.Name)

			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		metrics.RateLimitAllowed.WithLabelValues(limiterType).Inc()
		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, window time.Duration) (int, time.Time, error) {
	ttlSeconds := max(int(window.Seconds()), 1)

	result, err := rateLimitScript.Run(ctx, client, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps one token bucket per key, refilling limit tokens per window.
type localLimiter struct {
	mu        sync.Mutex
	entries   map[string]*localEntry
	every     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	limit = max(limit, 1)
	if window <= 0 {
		window = time.Minute
	}
	return &localLimiter{
		entries:   make(map[string]*localEntry),
		every:     rate.Every(window / time.Duration(limit)),
		burst:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

func (l *localLimiter) allow(key string) (bool, int, time.Time) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.window {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.window {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	entry, ok := l.entries[key]
	if !ok {
		entry = &localEntry{limiter: rate.NewLimiter(l.every, l.burst)}
		l.entries[key] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := max(int(entry.limiter.TokensAt(now)), 0)
	resetAt := now.Add(time.Duration(float64(time.Second) / float64(l.every)))
	return allowed, remaining, resetAt
}
