package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/importfull/inventory-api/internal/model"
)

type ProductRepo struct{ DB *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{DB: db} }

// ProductPage is one page of a product listing.  Total is set only when the
// query asked for it.
type ProductPage struct {
	Products []model.Product
	Total    *int64
}

// MarketplacePage is one page of marketplace products plus status counts
// over every marketplace-published product.
type MarketplacePage struct {
	Products    []model.Product `json:"products"`
	Total       int64           `json:"total"`
	ActiveCount int64           `json:"active_count"`
	PausedCount int64           `json:"paused_count"`
}

const onMarketplace = "meli_id IS NOT NULL AND meli_id <> ''"

// Get fetches a product by id.
func (r *ProductRepo) Get(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.DB.GetContext(ctx, &p, "SELECT * FROM product_catalog_sync WHERE id = ? LIMIT 1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the products matching q.
func (r *ProductRepo) List(ctx context.Context, q ProductQuery) (ProductPage, error) {
	w := newWhere()
	if q.Category != "" {
		w.add("product_type_path = :category", "category", q.Category)
	}
	if q.Brand != "" {
		w.add("brand = :brand", "brand", q.Brand)
	}
	if q.Search != "" {
		w.search(q.Search, "product_name", "product_code", "description")
	}
	switch q.Stock {
	case WithStock:
		w.add("stock > 0")
	case NoStock:
		w.add("(stock = 0 OR stock IS NULL)")
	}

	var out ProductPage
	if q.WithTotal {
		total, err := r.count(ctx, "SELECT COUNT(*) FROM product_catalog_sync"+w.String(), w.args)
		if err != nil {
			return ProductPage{}, err
		}
		out.Total = &total
	}

	query := "SELECT * FROM product_catalog_sync" + w.String() +
		orderBy(q.SortBy, q.SortOrder) + page(q.Offset, q.Limit, DefaultProductLimit)
	products, err := r.selectNamed(ctx, query, w.args)
	if err != nil {
		return ProductPage{}, err
	}
	out.Products = products
	return out, nil
}

// Search is the plain text search: name, code or description, or the id
// when q is numeric.
func (r *ProductRepo) Search(ctx context.Context, q string, offset, limit int) ([]model.Product, error) {
	w := newWhere()
	w.search(q, "product_name", "product_code", "description")
	query := "SELECT * FROM product_catalog_sync" + w.String() + " ORDER BY id ASC" + page(offset, limit, DefaultProductLimit)
	return r.selectNamed(ctx, query, w.args)
}

// ListMarketplace lists products with a marketplace id, newest id first.
func (r *ProductRepo) ListMarketplace(ctx context.Context, q MarketplaceQuery) (MarketplacePage, error) {
	w := newWhere()
	w.add(onMarketplace)
	if q.Status != "" {
		w.add("status = :status", "status", q.Status)
	}
	if q.Search != "" {
		w.search(q.Search, "product_name", "meli_id", "product_code")
	}

	var out MarketplacePage
	var err error
	if out.Total, err = r.count(ctx, "SELECT COUNT(*) FROM product_catalog_sync"+w.String(), w.args); err != nil {
		return MarketplacePage{}, err
	}
	query := "SELECT * FROM product_catalog_sync" + w.String() + " ORDER BY id DESC" + page(q.Offset, q.Limit, DefaultMarketplaceLimit)
	if out.Products, err = r.selectNamed(ctx, query, w.args); err != nil {
		return MarketplacePage{}, err
	}

	var counts struct {
		Active sql.NullInt64 `db:"active_count"`
		Paused sql.NullInt64 `db:"paused_count"`
	}
	err = r.DB.GetContext(ctx, &counts, `
		SELECT
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS active_count,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS paused_count
		FROM product_catalog_sync WHERE `+onMarketplace,
		model.StatusActive, model.StatusPaused)
	if err != nil {
		return MarketplacePage{}, err
	}
	out.ActiveCount, out.PausedCount = counts.Active.Int64, counts.Paused.Int64
	return out, nil
}

// Update applies a partial update.  Keys that are not product attributes
// and nil values are skipped; id can not be changed.  A value that does not
// fit its column is a *ValidationError.
func (r *ProductRepo) Update(ctx context.Context, id int64, fields map[string]any) (*model.Product, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys))
	args := map[string]any{"id": id}
	for _, k := range keys {
		kind, ok := productColumns[k]
		if !ok || k == "id" || fields[k] == nil {
			continue
		}
		v, err := coerce(k, kind, fields[k])
		if err != nil {
			return nil, err
		}
		sets = append(sets, fmt.Sprintf("%s = :%s", k, k))
		args[k] = v
	}
	if len(sets) == 0 {
		return current, nil
	}

	query := "UPDATE product_catalog_sync SET " + strings.Join(sets, ", ") + " WHERE id = :id"
	if _, err := r.DB.NamedExecContext(ctx, query, args); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Categories returns the distinct non-null product_type_path values.
func (r *ProductRepo) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "product_type_path")
}

// Brands returns the distinct non-null brand values.
func (r *ProductRepo) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "brand")
}

func (r *ProductRepo) distinct(ctx context.Context, col string) ([]string, error) {
	out := []string{}
	query := fmt.Sprintf("SELECT DISTINCT %[1]s FROM product_catalog_sync WHERE %[1]s IS NOT NULL ORDER BY %[1]s", col)
	if err := r.DB.SelectContext(ctx, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepo) selectNamed(ctx context.Context, query string, args map[string]any) ([]model.Product, error) {
	products := []model.Product{}
	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer nstmt.Close()
	if err := nstmt.SelectContext(ctx, &products, args); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepo) count(ctx context.Context, query string, args map[string]any) (int64, error) {
	var n int64
	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer nstmt.Close()
	if err := nstmt.GetContext(ctx, &n, args); err != nil {
		return 0, err
	}
	return n, nil
}
