package api

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/example/shopping-list/modules/cache"
	"github.com/gofiber/fiber/v2"
)

// Limiter admits or rejects a request for a key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit cache.Limit) (cache.LimitResult, error)
}

// RateLimit rejects requests over limit with 429. Requests are keyed by
// name and keyFn, falling back to the client IP. Limiter errors let the
// request through.
func RateLimit(l Limiter, name string, limit cache.Limit, keyFn func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || limit.Requests <= 0 {
			return c.Next()
		}

		key := ""
		if keyFn != nil {
			key = keyFn(c)
		}
		if key == "" {
			key = "ip:" + c.IP()
		}

		result, err := l.Allow(c.UserContext(), name+":"+key, limit)
		if err != nil {
			log.Printf("[api] Warning: rate limiter failed for %s: %v", name, err)
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "rate_limited",
				Message: fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
			})
		}
		return c.Next()
	}
}

// userKey keys a request by the authenticated account.
func userKey(c *fiber.Ctx) string {
	if claims, ok := claimsFrom(c); ok {
		return "user:" + claims.UserID
	}
	return ""
}
