package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const invokeRatePrefix = "rl:invoke:"

// InvokeRateLimit limits command invocations per session and minute using
// Redis. It is a no-op without Redis or with a non-positive limit, and fails
// open on cache errors.
func InvokeRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		subject := c.Params("sessionId")
		if subject == "" {
			subject = c.IP()
		}
		key := invokeRatePrefix + subject

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("invoke rate limit unavailable", slog.String("key", key), slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many commands for this session, try again later")
		}
		return c.Next()
	}
}
