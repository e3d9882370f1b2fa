package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/middleware"
	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/service"
	"github.com/importfull/inventory-api/internal/utils"
)

// Authenticator is the part of the auth service the handlers use.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	IssueToken(u *model.User) (utils.AccessToken, error)
	Register(ctx context.Context, username, password, role string) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User, p service.ProfileUpdate) (*model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth Authenticator
	Log  *zap.Logger
}

func NewAuthHandler(auth Authenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Log: log.Named("auth")}
}

// ----- DTOs -----

type tokenReq struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type createUserReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Token exchanges username and password (form or JSON body) for a bearer
// token.
func (h *AuthHandler) Token(c echo.Context) error {
	var req tokenReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return detail(c, http.StatusBadRequest, "username and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return detail(c, http.StatusUnauthorized, "Incorrect username or password")
	}
	tok, err := h.Auth.IssueToken(u)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok.Token, TokenType: "bearer", ExpiresAt: tok.Exp})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// UpdateMe applies a self-service profile change.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, middleware.CurrentUser(c), req)
	if errors.Is(err, service.ErrReadOnlyIdentity) {
		return detail(c, http.StatusForbidden, "This identity has no editable profile")
	}
	if err != nil {
		return fail(c, h.Log, err, "User not found")
	}
	return c.JSON(http.StatusOK, u)
}

// CreateUser registers a new user.  Admin only.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Register(ctx, req.Username, req.Password, strings.ToLower(strings.TrimSpace(req.Role)))
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	h.Log.Info("user created",
		zap.String("username", u.Username),
		zap.String("role", u.Role),
		zap.String("by", middleware.CurrentUser(c).Username))
	return c.JSON(http.StatusCreated, u)
}
