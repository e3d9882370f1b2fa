package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// table holds the column list of one table; {{pk}}, {{autoinc}}, {{text}}
// and {{now}} are replaced per dialect.
type table struct {
	name string
	ddl  string
}

var tables = []table{
	{"product_catalog_sync", `
		id                           {{pk}},
		product_code                 VARCHAR(255) NULL,
		product_name                 VARCHAR(255) NULL,
		price                        DECIMAL(10,0) NULL,
		product_image_b_format_url   {{text}} NULL,
		product_type_id              VARCHAR(255) NULL,
		product_type_path            VARCHAR(255) NULL,
		product_use_stock            VARCHAR(50) NULL,
		product_sale_type_id         VARCHAR(50) NULL,
		product_search_codes         {{text}} NULL,
		product_type_node_left       VARCHAR(50) NULL,
		product_change_cost_on_sales VARCHAR(50) NULL,
		stock                        INTEGER NULL,
		description                  {{text}} NULL,
		brand                        VARCHAR(255) NULL,
		meli_id                      VARCHAR(50) NULL,
		drive_url                    {{text}} NULL,
		status                       VARCHAR(50) NULL,
		reason                       VARCHAR(255) NULL,
		remedy                       VARCHAR(255) NULL,
		permalink                    VARCHAR(255) NULL`},
	{"competitor_listings", `
		url                   VARCHAR(768) NOT NULL PRIMARY KEY,
		meli_id               VARCHAR(50) NULL,
		title                 VARCHAR(512) NULL,
		price                 DECIMAL(12,2) NULL,
		competitor            VARCHAR(255) NULL,
		price_in_installments VARCHAR(255) NULL,
		image                 {{text}} NULL,
		` + "`timestamp`" + `           DATETIME NULL,
		status                VARCHAR(50) NULL,
		api_cost_total        DECIMAL(12,4) NULL,
		remaining_credits     DECIMAL(12,4) NULL,
		product_code          VARCHAR(255) NULL,
		product_name          VARCHAR(255) NULL`},
	{"inventory_users", `
		id              {{autoinc}},
		username        VARCHAR(50) NOT NULL UNIQUE,
		hashed_password VARCHAR(255) NOT NULL,
		role            VARCHAR(50) NOT NULL DEFAULT 'user',
		logo_url        VARCHAR(255) NULL,
		logo_light_url  VARCHAR(255) NULL,
		logo_dark_url   VARCHAR(255) NULL,
		theme_pref      VARCHAR(20) NOT NULL DEFAULT 'light',
		created_at      DATETIME NOT NULL DEFAULT {{now}}`},
}

var indexes = []string{
	"CREATE INDEX %sidx_products_code ON product_catalog_sync (product_code)",
	"CREATE INDEX %sidx_products_name ON product_catalog_sync (product_name)",
	"CREATE INDEX %sidx_products_meli ON product_catalog_sync (meli_id)",
}

// Migrate creates the tables that do not exist yet.  It never alters or
// drops existing tables, so it is safe to run on every start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	sqlite := db.DriverName() == "sqlite3"
	r := strings.NewReplacer(
		"{{pk}}", pick(sqlite, "INTEGER NOT NULL PRIMARY KEY", "BIGINT NOT NULL PRIMARY KEY"),
		"{{autoinc}}", pick(sqlite, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGINT AUTO_INCREMENT PRIMARY KEY"),
		"{{text}}", "TEXT",
		"{{now}}", "CURRENT_TIMESTAMP",
	)
	suffix := pick(sqlite, "", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4")

	for _, t := range tables {
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n)%s", t.name, r.Replace(t.ddl), suffix)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", t.name, err)
		}
	}
	for _, ix := range indexes {
		// MySQL has no IF NOT EXISTS for indexes; duplicates are tolerated.
		stmt := fmt.Sprintf(ix, pick(sqlite, "IF NOT EXISTS ", ""))
		if _, err := db.ExecContext(ctx, stmt); err != nil && !isDuplicateIndex(err) {
			return fmt.Errorf("migrate index: %w", err)
		}
	}
	return nil
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// isDuplicateIndex matches MySQL 1061 (duplicate key name).
func isDuplicateIndex(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1061
}
