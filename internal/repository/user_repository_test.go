package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/importfull/inventory-api/internal/model"
)

func TestUserCreateAndGet(t *testing.T) {
	repo := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u, err := repo.Create(ctx, " alice ", "hash", model.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "light", u.ThemePref)
	assert.Equal(t, model.RoleUser, u.Role)

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.Create(ctx, "alice", "other", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrUsernameExists)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserUpdateOnlyGivenFields(t *testing.T) {
	repo := NewUserRepo(newTestDB(t))
	ctx := context.Background()

	u, err := repo.Create(ctx, "alice", "hash", model.RoleUser)
	require.NoError(t, err)

	u, err = repo.Update(ctx, u.ID, UserUpdate{ThemePref: str("dark"), LogoLightURL: str("/logo/light")})
	require.NoError(t, err)
	assert.Equal(t, "dark", u.ThemePref)
	assert.Equal(t, "/logo/light", *u.LogoLightURL)
	assert.Equal(t, "hash", u.HashedPassword)
	assert.Nil(t, u.LogoDarkURL)
}
