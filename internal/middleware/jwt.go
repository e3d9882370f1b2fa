package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/importfull/inventory-api/internal/model"
)

// UserKey is the echo context key JWTAuth stores the resolved user under.
const UserKey = "user"

// TokenResolver turns a raw bearer token into a user.  Any error is treated
// as "unauthenticated"; the middleware never tells the caller why.
type TokenResolver interface {
	Resolve(ctx context.Context, raw string) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// through resolver and injects the resolved user into the request context.
// Handlers read it back with CurrentUser.
func JWTAuth(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return Unauthenticated(c)
			}
			u, err := resolver.Resolve(c.Request().Context(), raw)
			if err != nil || u == nil {
				return Unauthenticated(c)
			}
			c.Set(UserKey, u)
			return next(c)
		}
	}
}

// Unauthenticated writes the uniform 401 response.
func Unauthenticated(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"detail": "Could not validate credentials"})
}

// CurrentUser returns the user stored by JWTAuth, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(UserKey).(*model.User)
	return u
}

func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
