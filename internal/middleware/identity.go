package middleware

import "github.com/labstack/echo/v4"

// userID names the caller for rate limit and cache keys: the username set by
// JWTAuth, or "guest" on public routes.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.Username != "" {
		return u.Username
	}
	return "guest"
}
