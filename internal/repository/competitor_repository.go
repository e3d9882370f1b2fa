package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/importfull/inventory-api/internal/database"
	"github.com/importfull/inventory-api/internal/model"
)

// DefaultCompetitorLimit is the page size used when the caller gives none.
const DefaultCompetitorLimit = 100

type CompetitorRepo struct {
	DB  *sqlx.DB
	now func() time.Time
}

func NewCompetitorRepo(db *sqlx.DB) *CompetitorRepo {
	return &CompetitorRepo{DB: db, now: time.Now}
}

// CompetitorQuery describes a competitor listing.  Empty fields do not
// filter.
type CompetitorQuery struct {
	Offset int
	Limit  int
	Search string
	Status string
}

// CompetitorCreate is what a user supplies to start tracking a listing.
type CompetitorCreate struct {
	URL         string  `json:"url"`
	ProductCode *string `json:"product_code"`
	ProductName *string `json:"product_name"`
}

// List returns tracked listings, most recently created first.
func (r *CompetitorRepo) List(ctx context.Context, q CompetitorQuery) ([]model.CompetitorListing, error) {
	w := newWhere()
	if q.Search != "" {
		cond := "(LOWER(url) LIKE :search ESCAPE '!' OR LOWER(title) LIKE :search ESCAPE '!'" +
			" OR LOWER(competitor) LIKE :search ESCAPE '!' OR LOWER(product_code) LIKE :search ESCAPE '!'" +
			" OR LOWER(product_name) LIKE :search ESCAPE '!')"
		w.add(cond, "search", "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	if q.Status != "" {
		w.add("status = :status", "status", q.Status)
	}
	query := "SELECT * FROM competitor_listings" + w.String() +
		" ORDER BY `timestamp` DESC, url ASC" + page(q.Offset, q.Limit, DefaultCompetitorLimit)

	out := []model.CompetitorListing{}
	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer nstmt.Close()
	if err := nstmt.SelectContext(ctx, &out, w.args); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a listing by its URL.
func (r *CompetitorRepo) Get(ctx context.Context, url string) (*model.CompetitorListing, error) {
	var c model.CompetitorListing
	err := r.DB.GetContext(ctx, &c, "SELECT * FROM competitor_listings WHERE url = ? LIMIT 1", strings.TrimSpace(url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create starts tracking a listing.  The URL is trimmed and must not be
// blank; every scraped attribute starts empty.
func (r *CompetitorRepo) Create(ctx context.Context, in CompetitorCreate) (*model.CompetitorListing, error) {
	url := strings.TrimSpace(in.URL)
	if url == "" {
		return nil, invalid("url", "URL is required")
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO competitor_listings (url, product_code, product_name, `timestamp`) VALUES (?,?,?,?)",
		url, in.ProductCode, in.ProductName, r.now().UTC().Truncate(time.Second))
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return r.Get(ctx, url)
}

// UpdateURL re-keys a listing.
func (r *CompetitorRepo) UpdateURL(ctx context.Context, url, newURL string) (*model.CompetitorListing, error) {
	newURL = strings.TrimSpace(newURL)
	if newURL == "" {
		return nil, invalid("url", "URL is required")
	}
	_, err := r.DB.ExecContext(ctx, "UPDATE competitor_listings SET url = ? WHERE url = ?", newURL, strings.TrimSpace(url))
	if err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return r.Get(ctx, newURL)
}

// Delete stops tracking a listing.
func (r *CompetitorRepo) Delete(ctx context.Context, url string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM competitor_listings WHERE url = ?", strings.TrimSpace(url))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
