package model

import "github.com/shopspring/decimal"

// Product mirrors the 'product_catalog_sync' table.  Every attribute but the
// id is nullable; a nil Stock is treated as zero stock.
type Product struct {
	ID                       int64               `db:"id" json:"id"`
	ProductCode              *string             `db:"product_code" json:"product_code"`
	ProductName              *string             `db:"product_name" json:"product_name"`
	Price                    decimal.NullDecimal `db:"price" json:"price"`
	ProductImageBFormatURL   *string             `db:"product_image_b_format_url" json:"product_image_b_format_url"`
	ProductTypeID            *string             `db:"product_type_id" json:"product_type_id"`
	ProductTypePath          *string             `db:"product_type_path" json:"product_type_path"`
	ProductUseStock          *string             `db:"product_use_stock" json:"product_use_stock"`
	ProductSaleTypeID        *string             `db:"product_sale_type_id" json:"product_sale_type_id"`
	ProductSearchCodes       *string             `db:"product_search_codes" json:"product_search_codes"`
	ProductTypeNodeLeft      *string             `db:"product_type_node_left" json:"product_type_node_left"`
	ProductChangeCostOnSales *string             `db:"product_change_cost_on_sales" json:"product_change_cost_on_sales"`
	Stock                    *int64              `db:"stock" json:"stock"`
	Description              *string             `db:"description" json:"description"`
	Brand                    *string             `db:"brand" json:"brand"`
	MeliID                   *string             `db:"meli_id" json:"meli_id"`
	DriveURL                 *string             `db:"drive_url" json:"drive_url"`
	Status                   *string             `db:"status" json:"status"`
	Reason                   *string             `db:"reason" json:"reason"`
	Remedy                   *string             `db:"remedy" json:"remedy"`
	Permalink                *string             `db:"permalink" json:"permalink"`
}

// OnMarketplace reports whether the product carries a marketplace id.
func (p Product) OnMarketplace() bool {
	return p.MeliID != nil && *p.MeliID != ""
}

// Marketplace publication statuses.
const (
	StatusActive = "active"
	StatusPaused = "paused"
)
