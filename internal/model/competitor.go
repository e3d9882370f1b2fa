package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CompetitorListing mirrors the 'competitor_listings' table.  The listing
// URL is the identity; everything else is filled in by the external
// scraper after creation.
type CompetitorListing struct {
	URL                 string              `db:"url" json:"url"`
	MeliID              *string             `db:"meli_id" json:"meli_id"`
	Title               *string             `db:"title" json:"title"`
	Price               decimal.NullDecimal `db:"price" json:"price"`
	Competitor          *string             `db:"competitor" json:"competitor"`
	PriceInInstallments *string             `db:"price_in_installments" json:"price_in_installments"`
	Image               *string             `db:"image" json:"image"`
	Timestamp           *time.Time          `db:"timestamp" json:"timestamp"`
	Status              *string             `db:"status" json:"status"`
	APICostTotal        decimal.NullDecimal `db:"api_cost_total" json:"api_cost_total"`
	RemainingCredits    decimal.NullDecimal `db:"remaining_credits" json:"remaining_credits"`
	ProductCode         *string             `db:"product_code" json:"product_code"`
	ProductName         *string             `db:"product_name" json:"product_name"`
}
