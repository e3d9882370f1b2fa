package model

import "time"

// User mirrors the 'inventory_users' table.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Role           string    `db:"role" json:"role"`
	LogoURL        *string   `db:"logo_url" json:"logo_url"`
	LogoLightURL   *string   `db:"logo_light_url" json:"logo_light_url"`
	LogoDarkURL    *string   `db:"logo_dark_url" json:"logo_dark_url"`
	ThemePref      string    `db:"theme_pref" json:"theme_pref"`
	CreatedAt      time.Time `db:"created_at" json:"-"`

	// BreakGlass marks the configured emergency identity; it has no row.
	BreakGlass bool `db:"-" json:"-"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
