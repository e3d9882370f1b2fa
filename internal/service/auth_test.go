package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/repository"
	"github.com/importfull/inventory-api/internal/utils"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	byName map[string]*model.User
	down   bool
}

func newMemUsers() *memUsers { return &memUsers{byName: map[string]*model.User{}} }

func (m *memUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.down {
		return nil, errors.New("connection refused")
	}
	u, ok := m.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Create(_ context.Context, username, hash, role string) (*model.User, error) {
	if _, ok := m.byName[username]; ok {
		return nil, repository.ErrUsernameExists
	}
	u := &model.User{ID: int64(len(m.byName) + 1), Username: username, HashedPassword: hash, Role: role, ThemePref: "light"}
	m.byName[username] = u
	return u, nil
}

func (m *memUsers) Update(_ context.Context, id int64, upd repository.UserUpdate) (*model.User, error) {
	for _, u := range m.byName {
		if u.ID != id {
			continue
		}
		if upd.HashedPassword != nil {
			u.HashedPassword = *upd.HashedPassword
		}
		if upd.ThemePref != nil {
			u.ThemePref = *upd.ThemePref
		}
		if upd.LogoLightURL != nil {
			u.LogoLightURL = upd.LogoLightURL
		}
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func testConfig() config.Config {
	return config.Config{JWTSecret: "secret", AccessTTLMin: 60, BcryptCost: 4}
}

func newService(t *testing.T, cfg config.Config, users UserStore, log *zap.Logger) *AuthService {
	t.Helper()
	s, err := NewAuthService(cfg, users, log)
	require.NoError(t, err)
	return s
}

func TestIssuedTokenResolvesToUser(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newService(t, testConfig(), users, nil)

	_, err := s.Register(ctx, "alice", "p1", "")
	require.NoError(t, err)

	u, err := s.Authenticate(ctx, "alice", "p1")
	require.NoError(t, err)
	tok, err := s.IssueToken(u)
	require.NoError(t, err)

	got, err := s.Resolve(ctx, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, model.RoleUser, got.Role)
}

func TestFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newService(t, testConfig(), users, nil)
	_, err := s.Register(ctx, "alice", "p1", "")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Authenticate(ctx, "nobody", "p1")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	expired, err := utils.NewAccessToken("secret", "alice", "user", -1)
	require.NoError(t, err)
	forged, err := utils.NewAccessToken("other", "alice", "user", 60)
	require.NoError(t, err)
	ghost, err := utils.NewAccessToken("secret", "ghost", "admin", 60)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"expired":      expired.Token,
		"forged":       forged.Token,
		"unknown user": ghost.Token,
		"garbage":      "abc",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Resolve(ctx, raw)
			assert.Equal(t, ErrUnauthenticated, err)
		})
	}

	users.down = true
	valid, err := utils.NewAccessToken("secret", "alice", "user", 60)
	require.NoError(t, err)
	_, err = s.Resolve(ctx, valid.Token)
	assert.Equal(t, ErrUnauthenticated, err)
}

func TestNoImplicitAdmin(t *testing.T) {
	users := newMemUsers()
	users.down = true
	s := newService(t, testConfig(), users, nil)

	_, err := s.Authenticate(context.Background(), "admin", "admin123")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestBreakGlassIsAudited(t *testing.T) {
	ctx := context.Background()
	hash, err := utils.HashPassword("emergency", 4)
	require.NoError(t, err)

	cfg := testConfig()
	cfg.BreakGlass = config.BreakGlassConfig{Username: "ops-breakglass", PasswordHash: hash}
	core, logs := observer.New(zapcore.WarnLevel)
	users := newMemUsers()
	users.down = true
	s := newService(t, cfg, users, zap.New(core))

	u, err := s.Authenticate(ctx, "ops-breakglass", "emergency")
	require.NoError(t, err)
	assert.True(t, u.BreakGlass)
	assert.Equal(t, model.RoleAdmin, u.Role)

	tok, err := s.IssueToken(u)
	require.NoError(t, err)
	_, err = s.Resolve(ctx, tok.Token)
	require.NoError(t, err)

	audited := logs.FilterField(zap.String("audit", "breakglass")).All()
	require.Len(t, audited, 2)
	assert.Equal(t, zapcore.WarnLevel, audited[0].Level)

	_, err = s.Authenticate(ctx, "ops-breakglass", "guess")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = s.UpdateProfile(ctx, u, ProfileUpdate{})
	assert.ErrorIs(t, err, ErrReadOnlyIdentity)

	_, err = s.Register(ctx, "ops-breakglass", "x", "")
	assert.ErrorIs(t, err, repository.ErrUsernameExists)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	s := newService(t, testConfig(), users, nil)
	u, err := s.Register(ctx, "alice", "p1", "")
	require.NoError(t, err)

	dark, pw := "dark", "p2"
	u, err = s.UpdateProfile(ctx, u, ProfileUpdate{ThemePref: &dark, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "dark", u.ThemePref)

	_, err = s.Authenticate(ctx, "alice", "p2")
	assert.NoError(t, err)

	blue := "blue"
	_, err = s.UpdateProfile(ctx, u, ProfileUpdate{ThemePref: &blue})
	var verr *repository.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRegisterValidation(t *testing.T) {
	s := newService(t, testConfig(), newMemUsers(), nil)
	var verr *repository.ValidationError
	_, err := s.Register(context.Background(), " ", "p", "")
	assert.ErrorAs(t, err, &verr)
	_, err = s.Register(context.Background(), "bob", "p", "root")
	assert.ErrorAs(t, err, &verr)
}
