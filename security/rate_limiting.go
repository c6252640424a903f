package security

import (
	"context"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// rateScript counts a hit and arms the window expiry together with the
// first one, so a crashed client cannot leave a counter without TTL.
const rateScript = `local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count`

// Allow records one hit for key and reports whether it stays within limit
// for the current window.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.redis.Eval(ctx, rateScript, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

// WriteRateLimit guards mutating member endpoints. Signed in members are
// limited per account, anonymous callers per IP.
func (r *RateLimiter) WriteRateLimit(limit int, window time.Duration) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		id := "ip:" + e.RealIP()
		if e.Auth != nil {
			id = "user:" + e.Auth.Id
		}

		ok, err := r.Allow(e.Request.Context(), "ratelimit:"+id, limit, window)
		if err != nil {
			// Redis being down must not lock members out.
			return e.Next()
		}
		if !ok {
			return e.JSON(429, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		}
		return e.Next()
	}
}

// AntiBotFilter rejects obvious scraper user agents before they reach the
// API.
func (r *RateLimiter) AntiBotFilter() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if isSuspiciousUserAgent(e.Request.UserAgent()) {
			return e.JSON(403, map[string]string{
				"error": "Access denied",
			})
		}
		return e.Next()
	}
}

func isSuspiciousUserAgent(ua string) bool {
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	for _, pattern := range suspicious {
		if strings.Contains(strings.ToLower(ua), pattern) {
			return true
		}
	}
	return false
}
