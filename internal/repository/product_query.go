package repository

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// StockFilter restricts a product listing by stock level.
type StockFilter string

const (
	StockAny  StockFilter = ""
	WithStock StockFilter = "with_stock" // stock > 0
	NoStock   StockFilter = "no_stock"   // stock = 0 or unset
)

// DefaultProductLimit and DefaultMarketplaceLimit are the page sizes used
// when the caller gives none.
const (
	DefaultProductLimit     = 50
	DefaultMarketplaceLimit = 500
)

// ProductQuery describes a product listing.  Empty fields do not filter.
// SortBy must name a product column; anything else is ignored.
type ProductQuery struct {
	Offset    int
	Limit     int
	Category  string // product_type_path equality
	Brand     string
	Search    string
	Stock     StockFilter
	SortBy    string
	SortOrder string // "desc" sorts descending, anything else ascending
	WithTotal bool
}

// MarketplaceQuery describes a listing of marketplace-published products.
type MarketplaceQuery struct {
	Offset int
	Limit  int
	Status string
	Search string
}

type columnKind int

const (
	kindString columnKind = iota
	kindInt
	kindDecimal
)

// productColumns is the attribute set of a product.  It doubles as the sort
// whitelist and the update whitelist.
var productColumns = map[string]columnKind{
	"id":                           kindInt,
	"product_code":                 kindString,
	"product_name":                 kindString,
	"price":                        kindDecimal,
	"product_image_b_format_url":   kindString,
	"product_type_id":              kindString,
	"product_type_path":            kindString,
	"product_use_stock":            kindString,
	"product_sale_type_id":         kindString,
	"product_search_codes":         kindString,
	"product_type_node_left":       kindString,
	"product_change_cost_on_sales": kindString,
	"stock":                        kindInt,
	"description":                  kindString,
	"brand":                        kindString,
	"meli_id":                      kindString,
	"drive_url":                    kindString,
	"status":                       kindString,
	"reason":                       kindString,
	"remedy":                       kindString,
	"permalink":                    kindString,
}

// where collects AND-ed conditions and their named arguments.
type where struct {
	conds []string
	args  map[string]any
}

func newWhere() *where { return &where{args: map[string]any{}} }

func (w *where) add(cond string, kv ...any) {
	w.conds = append(w.conds, cond)
	for i := 0; i+1 < len(kv); i += 2 {
		w.args[kv[i].(string)] = kv[i+1]
	}
}

// search adds a case-insensitive substring match over cols, OR'd with an
// exact id match when q is purely numeric.
func (w *where) search(q string, cols ...string) {
	parts := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		parts = append(parts, fmt.Sprintf("LOWER(%s) LIKE :search ESCAPE '!'", c))
	}
	w.args["search"] = "%" + escapeLike(strings.ToLower(q)) + "%"
	if id, ok := numericID(q); ok {
		parts = append(parts, "id = :search_id")
		w.args["search_id"] = id
	}
	w.conds = append(w.conds, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// numericID accepts strings made only of ASCII digits.
func numericID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

func orderBy(sortBy, sortOrder string) string {
	if _, ok := productColumns[sortBy]; !ok {
		return " ORDER BY id ASC"
	}
	dir := "ASC"
	if sortOrder == "desc" {
		dir = "DESC"
	}
	if sortBy == "id" {
		return fmt.Sprintf(" ORDER BY id %s", dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", sortBy, dir)
}

func page(offset, limit, def int) string {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = def
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// coerce converts a decoded JSON value to the Go type of a column.
func coerce(field string, kind columnKind, v any) (any, error) {
	switch kind {
	case kindString:
		s, ok := v.(string)
		if !ok {
			return nil, invalid(field, "must be a string")
		}
		return s, nil
	case kindInt:
		return toInt(field, v)
	case kindDecimal:
		return toDecimal(field, v)
	}
	return nil, invalid(field, "unsupported attribute")
}

func toInt(field string, v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, invalid(field, "must be an integer")
		}
		return int64(t), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, invalid(field, "must be an integer")
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, invalid(field, "must be an integer")
		}
		return n, nil
	}
	return 0, invalid(field, "must be an integer")
}

func toDecimal(field string, v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case json.Number:
		return parseDecimal(field, t.String())
	case string:
		return parseDecimal(field, strings.TrimSpace(t))
	case decimal.Decimal:
		return t, nil
	}
	return decimal.Decimal{}, invalid(field, "must be a number")
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, invalid(field, "must be a number")
	}
	return d, nil
}
