package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// ErrRateLimitStoreUnavailable is returned when no Redis client is configured.
var ErrRateLimitStoreUnavailable = errors.New("rate limit store unavailable")

// LimitExceededHandler writes the response for a throttled request.
type LimitExceededHandler func(c *fiber.Ctx) error

// RateLimitEnabled reports whether throttling applies in the current APP_ENV.
// Test and development runs are never throttled.
func RateLimitEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// CheckRateLimit reports whether another hit on resource by id fits in the window.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if !RateLimitEnabled() {
		return true, nil
	}
	return checkRateLimit(ctx, rdb, resource, id, limit, window)
}

func checkRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, ErrRateLimitStoreUnavailable
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing limit requests per window.
// It keys by the resolved session user when present, otherwise by remote IP.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string, onExceeded LimitExceededHandler) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name, onExceeded)
}

// RateLimitWithPolicy is RateLimit with an explicit policy for an unavailable store.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name string, onExceeded LimitExceededHandler) fiber.Handler {
	if onExceeded == nil {
		onExceeded = func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
	}
	return func(c *fiber.Ctx) error {
		if !RateLimitEnabled() {
			return c.Next()
		}

		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = fmt.Sprintf("user:%d", uid)
		}

		allowed, err := checkRateLimit(c.UserContext(), rdb, name, id, limit, window)
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					slog.String("resource", name), slog.String("error", err.Error()))
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
			}
			return c.Next()
		}
		if !allowed {
			return onExceeded(c)
		}
		return c.Next()
	}
}
