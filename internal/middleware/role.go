package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole enforces that the authenticated user has one of roles.  It
// must run after JWTAuth; a request without a user is treated as
// unauthenticated, a user with another role gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return Unauthenticated(c)
			}
			if !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"detail": "Not enough permissions"})
			}
			return next(c)
		}
	}
}
