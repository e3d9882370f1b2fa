package repository

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/importfull/inventory-api/internal/config"
	"github.com/importfull/inventory-api/internal/database"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(config.DBConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

type seedProduct struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Category    string
	Brand       string
	Stock       *int64
	MeliID      string
	Status      string
	Price       string
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func seed(t *testing.T, db *sqlx.DB, products ...seedProduct) {
	t.Helper()
	for _, p := range products {
		_, err := db.Exec(`INSERT INTO product_catalog_sync
			(id, product_code, product_name, description, product_type_path, brand, stock, meli_id, status, price)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			p.ID, nullable(p.Code), nullable(p.Name), nullable(p.Description), nullable(p.Category),
			nullable(p.Brand), p.Stock, nullable(p.MeliID), nullable(p.Status), nullable(p.Price))
		require.NoError(t, err)
	}
}

func i64(n int64) *int64 { return &n }

func str(s string) *string { return &s }
