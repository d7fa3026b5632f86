package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client in fixed windows.
type RateLimiter struct {
	requests map[string]*clientLimit
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time
}

type clientLimit struct {
	count     int
	resetTime time.Time
}

// NewRateLimiter creates a limiter whose stale entries are dropped until
// ctx is done.
func NewRateLimiter(ctx context.Context, requestsPerWindow int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string]*clientLimit),
		limit:    requestsPerWindow,
		window:   window,
		now:      time.Now,
	}
	go rl.cleanup(ctx)
	return rl
}

func (rl *RateLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		now := rl.now()
		for key, limit := range rl.requests {
			if now.After(limit.resetTime) {
				delete(rl.requests, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow counts one request of key. It returns the remaining budget, the
// end of the window and whether the request is allowed.
func (rl *RateLimiter) Allow(key string) (int, time.Time, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	limit, ok := rl.requests[key]
	if !ok || now.After(limit.resetTime) {
		limit = &clientLimit{resetTime: now.Add(rl.window)}
		rl.requests[key] = limit
	}
	if limit.count >= rl.limit {
		return 0, limit.resetTime, false
	}
	limit.count++
	return rl.limit - limit.count, limit.resetTime, true
}

// Middleware limits requests per client IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		remaining, reset, ok := rl.Allow(c.ClientIP())

		c.Header("X-RateLimit-Limit", itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !ok {
			retryAfter := int(time.Until(reset).Seconds()) + 1
			c.Header("Retry-After", itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
