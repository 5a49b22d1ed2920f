package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS answers preflight requests and sets allow headers for permitted origins.
// The dashboard is served from a different origin than the API.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	wildcard := false
	allowed := make(map[string]struct{}, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if _, ok := allowed[origin]; !ok && !wildcard {
				return next(c)
			}

			h := c.Response().Header()
			if origin != "" {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
				h.Add(echo.HeaderVary, echo.HeaderOrigin)
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			}
			if methods != "" {
				h.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
