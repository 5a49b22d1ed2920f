package api

import (
	"SmartEnergy/internal/service/ratelimit"
	pkgmw "SmartEnergy/pkg/http/middleware"

	"github.com/labstack/echo/v4"
)

// RateLimit configures the token bucket guarding write-heavy routes.
type RateLimit struct {
	Limiter      *ratelimit.Limiter
	Capacity     float64
	RefillPerSec float64
}

func (r RateLimit) middleware() echo.MiddlewareFunc {
	if r.Limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return pkgmw.RateLimit(r.Limiter, r.Capacity, r.RefillPerSec)
}
