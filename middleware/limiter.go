package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apperrors "conference-webapp/errors"
)

// RetryAfterHeader tells a throttled client how many seconds to wait.
const RetryAfterHeader = "X-Rate-Limit-Retry-After-Seconds"

// LoginLimiter allows a number of attempts per client IP in each window.
func LoginLimiter(attempts int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        attempts,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			retryAfter := c.GetRespHeader(fiber.HeaderRetryAfter)
			if retryAfter == "" {
				retryAfter = strconv.Itoa(int(window.Seconds()))
			}
			c.Set(RetryAfterHeader, retryAfter)
			return apperrors.RaiseError(c, fiber.StatusTooManyRequests, "too many requests",
				"Too many login attempts. Please try again in "+retryAfter+" seconds.")
		},
	})
}
