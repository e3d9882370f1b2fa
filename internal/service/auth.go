// Package service holds the application services that sit between the HTTP
// handlers and the repositories: authentication and the event publisher.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/metrics"
	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/repository"
	"github.com/importfull/inventory-api/internal/utils"
)

// ErrUnauthenticated is the single outcome of every failed credential or
// token check.  Callers never learn which check failed.
var ErrUnauthenticated = errors.New("could not validate credentials")

// ErrReadOnlyIdentity is returned when the break-glass identity tries to
// change its profile; it has no stored row.
var ErrReadOnlyIdentity = errors.New("identity has no stored profile")

// UserStore is the subset of the user repository the auth service needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, username, hash, role string) (*model.User, error)
	Update(ctx context.Context, id int64, u repository.UserUpdate) (*model.User, error)
}

// ProfileUpdate is a self-service change request.  Nil fields are kept.
type ProfileUpdate struct {
	Password     *string `json:"password"`
	LogoURL      *string `json:"logo_url"`
	LogoLightURL *string `json:"logo_light_url"`
	LogoDarkURL  *string `json:"logo_dark_url"`
	ThemePref    *string `json:"theme_pref"`
}

// AuthService issues and resolves bearer tokens.
type AuthService struct {
	users      UserStore
	secret     string
	ttlMin     int
	cost       int
	breakGlass config.BreakGlassConfig
	log        *zap.Logger

	// dummyHash is compared against when the user does not exist so both
	// paths cost one bcrypt comparison.
	dummyHash string
}

func NewAuthService(cfg config.Config, users UserStore, log *zap.Logger) (*AuthService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := utils.HashPassword("unused-password", cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return &AuthService{
		users:      users,
		secret:     cfg.JWTSecret,
		ttlMin:     cfg.AccessTTLMin,
		cost:       cfg.BcryptCost,
		breakGlass: cfg.BreakGlass,
		log:        log.Named("auth"),
		dummyHash:  dummy,
	}, nil
}

// Authenticate checks a username/password pair.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if s.isBreakGlass(username) {
		if !utils.VerifyPassword(s.breakGlass.PasswordHash, password) {
			s.log.Warn("break-glass login rejected", zap.String("audit", "breakglass"), zap.String("username", username))
			return nil, ErrUnauthenticated
		}
		s.auditBreakGlass("login")
		return s.breakGlassUser(), nil
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		_ = utils.VerifyPassword(s.dummyHash, password)
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("user lookup failed", zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}
	if !utils.VerifyPassword(u.HashedPassword, password) {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// IssueToken signs an access token for u.
func (s *AuthService) IssueToken(u *model.User) (utils.AccessToken, error) {
	return utils.NewAccessToken(s.secret, u.Username, u.Role, s.ttlMin)
}

// Resolve validates a raw bearer token and returns its user.  Bad
// signature, expiry, missing subject and unknown users all yield
// ErrUnauthenticated.
func (s *AuthService) Resolve(ctx context.Context, raw string) (*model.User, error) {
	claims, err := utils.ParseAccessToken(s.secret, raw)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	if s.isBreakGlass(claims.Subject) {
		s.auditBreakGlass("request")
		return s.breakGlassUser(), nil
	}
	u, err := s.users.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Error("user lookup failed", zap.Error(err))
		}
		return nil, ErrUnauthenticated
	}
	return u, nil
}

// Register creates a user.  role defaults to "user".
func (s *AuthService) Register(ctx context.Context, username, password, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, &repository.ValidationError{Msg: "username and password are required"}
	}
	if s.isBreakGlass(username) {
		return nil, repository.ErrUsernameExists
	}
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleAdmin:
	default:
		return nil, &repository.ValidationError{Field: "role", Msg: "must be 'user' or 'admin'"}
	}
	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, username, hash, role)
}

// UpdateProfile applies a self-service update to u.
func (s *AuthService) UpdateProfile(ctx context.Context, u *model.User, p ProfileUpdate) (*model.User, error) {
	if u.BreakGlass {
		return nil, ErrReadOnlyIdentity
	}
	if p.ThemePref != nil && *p.ThemePref != "light" && *p.ThemePref != "dark" {
		return nil, &repository.ValidationError{Field: "theme_pref", Msg: "must be 'light' or 'dark'"}
	}
	upd := repository.UserUpdate{
		LogoURL:      p.LogoURL,
		LogoLightURL: p.LogoLightURL,
		LogoDarkURL:  p.LogoDarkURL,
		ThemePref:    p.ThemePref,
	}
	if p.Password != nil && *p.Password != "" {
		hash, err := utils.HashPassword(*p.Password, s.cost)
		if err != nil {
			return nil, err
		}
		upd.HashedPassword = &hash
	}
	return s.users.Update(ctx, u.ID, upd)
}

func (s *AuthService) isBreakGlass(username string) bool {
	return s.breakGlass.Enabled() && username == s.breakGlass.Username
}

func (s *AuthService) breakGlassUser() *model.User {
	return &model.User{
		Username:   s.breakGlass.Username,
		Role:       model.RoleAdmin,
		ThemePref:  "light",
		BreakGlass: true,
	}
}

func (s *AuthService) auditBreakGlass(action string) {
	metrics.BreakGlassLogins.Inc()
	s.log.Warn("break-glass identity used",
		zap.String("audit", "breakglass"),
		zap.String("username", s.breakGlass.Username),
		zap.String("action", action))
}
