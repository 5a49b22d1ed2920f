package auth

import (
	"strings"

	xhttp "SmartEnergy/pkg/http"

	"github.com/labstack/echo/v4"
)

const userIDKey = "auth.user_id"

func bearer(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// Required rejects requests without a valid bearer token.
func Required(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return xhttp.UnauthorizedError("No token")
			}
			claims, err := issuer.Verify(raw)
			if err != nil {
				return xhttp.UnauthorizedError("Invalid token").WithError(err)
			}
			c.Set(userIDKey, claims.UserID)
			return next(c)
		}
	}
}

// Optional records the caller when a valid token is present and ignores it otherwise.
func Optional(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := bearer(c); raw != "" {
				if claims, err := issuer.Verify(raw); err == nil {
					c.Set(userIDKey, claims.UserID)
				}
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user, or "" for anonymous requests.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
