package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/importfull/inventory-api/internal/database"
	"github.com/importfull/inventory-api/internal/model"
)

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// UserUpdate carries the self-service fields; nil fields are left alone.
type UserUpdate struct {
	HashedPassword *string
	LogoURL        *string
	LogoLightURL   *string
	LogoDarkURL    *string
	ThemePref      *string
}

// Create inserts a user with an already hashed password.
func (r *UserRepo) Create(ctx context.Context, username, hash, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username", "must not be blank")
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO inventory_users (username, hashed_password, role) VALUES (?,?,?)",
		username, hash, role)
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrUsernameExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "SELECT * FROM inventory_users WHERE username = ? LIMIT 1", username)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "SELECT * FROM inventory_users WHERE id = ? LIMIT 1", id)
}

// Update applies the non-nil fields of u and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, id int64, u UserUpdate) (*model.User, error) {
	sets := []string{}
	args := map[string]any{"id": id}
	set := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = :"+col)
			args[col] = *v
		}
	}
	set("hashed_password", u.HashedPassword)
	set("logo_url", u.LogoURL)
	set("logo_light_url", u.LogoLightURL)
	set("logo_dark_url", u.LogoDarkURL)
	set("theme_pref", u.ThemePref)

	if len(sets) > 0 {
		query := "UPDATE inventory_users SET " + strings.Join(sets, ", ") + " WHERE id = :id"
		if _, err := r.DB.NamedExecContext(ctx, query, args); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
