package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Limiter is a keyed token bucket.
type Limiter interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// RateLimit rejects requests once the caller's bucket for this route is empty.
// Callers are keyed by client IP.
func RateLimit(l Limiter, capacity, refillPerSec float64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if l == nil || capacity <= 0 {
				return next(c)
			}
			key := c.Path() + "|" + c.RealIP()
			if !l.Allow(key, capacity, refillPerSec) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"status":  http.StatusTooManyRequests,
					"message": "Too many requests",
				})
			}
			return next(c)
		}
	}
}
