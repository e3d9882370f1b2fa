package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/notify"
	"github.com/importfull/inventory-api/internal/repository"
)

// ProductStore is the catalog repository as seen by the product handlers.
type ProductStore interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	List(ctx context.Context, q repository.ProductQuery) (repository.ProductPage, error)
	Search(ctx context.Context, q string, offset, limit int) ([]model.Product, error)
	ListMarketplace(ctx context.Context, q repository.MarketplaceQuery) (repository.MarketplacePage, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*model.Product, error)
}

// Notifier delivers product events to the webhook receiver.
type Notifier interface {
	Notify(ctx context.Context, productID int64, eventType string) bool
}

type ProductHandler struct {
	Products ProductStore
	Notifier Notifier
	Log      *zap.Logger
}

func NewProductHandler(products ProductStore, notifier Notifier, log *zap.Logger) *ProductHandler {
	return &ProductHandler{Products: products, Notifier: notifier, Log: log.Named("products")}
}

const productNotFound = "Product not found"

type publishReq struct {
	Action string `json:"action"`
}

// List handles GET /api/products.  with_total=true adds X-Total-Count.
func (h *ProductHandler) List(c echo.Context) error {
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	limit, err := intParam(c, "limit", repository.DefaultProductLimit)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	withTotal, _ := strconv.ParseBool(c.QueryParam("with_total"))

	page, err := h.Products.List(c.Request().Context(), repository.ProductQuery{
		Offset:    skip,
		Limit:     limit,
		Category:  c.QueryParam("category"),
		Brand:     c.QueryParam("brand"),
		Search:    strings.TrimSpace(c.QueryParam("q")),
		Stock:     repository.StockFilter(c.QueryParam("stock_filter")),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: strings.ToLower(c.QueryParam("sort_order")),
		WithTotal: withTotal,
	})
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	if page.Total != nil {
		c.Response().Header().Set("X-Total-Count", strconv.FormatInt(*page.Total, 10))
	}
	return c.JSON(http.StatusOK, page.Products)
}

// Marketplace handles GET /api/products/meli.
func (h *ProductHandler) Marketplace(c echo.Context) error {
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	limit, err := intParam(c, "limit", repository.DefaultMarketplaceLimit)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	page, err := h.Products.ListMarketplace(c.Request().Context(), repository.MarketplaceQuery{
		Offset: skip,
		Limit:  limit,
		Status: c.QueryParam("status"),
		Search: strings.TrimSpace(c.QueryParam("q")),
	})
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, page)
}

// Search handles GET /api/products/search?q=.
func (h *ProductHandler) Search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return detail(c, http.StatusBadRequest, "q is required")
	}
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	limit, err := intParam(c, "limit", repository.DefaultProductLimit)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	products, err := h.Products.Search(c.Request().Context(), q, skip, limit)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	p, err := h.Products.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err, productNotFound)
	}
	return c.JSON(http.StatusOK, p)
}

// Patch applies a partial update.  Unknown keys are ignored by the
// repository; numbers are kept as json.Number so integers stay exact.
func (h *ProductHandler) Patch(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	var fields map[string]any
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return detail(c, http.StatusBadRequest, "body must be a JSON object")
	}
	p, err := h.Products.Update(c.Request().Context(), id, fields)
	if err != nil {
		return fail(c, h.Log, err, productNotFound)
	}
	return c.JSON(http.StatusOK, p)
}

// Publish sends a publish or pause event for the product.  The product row
// is not modified; the receiver updates it.
func (h *ProductHandler) Publish(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	var req publishReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Action != notify.EventPublish && req.Action != notify.EventPause {
		return detail(c, http.StatusBadRequest, "action must be 'publish' or 'pause'")
	}
	p, err := h.Products.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err, productNotFound)
	}
	if !h.Notifier.Notify(c.Request().Context(), id, req.Action) {
		h.Log.Warn("publication event not delivered", zap.Int64("product_id", id), zap.String("action", req.Action))
	}
	return c.JSON(http.StatusOK, p)
}

// NotifyUpdate sends an update event and reports failure as 500.
func (h *ProductHandler) NotifyUpdate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	if _, err := h.Products.Get(c.Request().Context(), id); err != nil {
		return fail(c, h.Log, err, productNotFound)
	}
	if !h.Notifier.Notify(c.Request().Context(), id, notify.EventUpdate) {
		return detail(c, http.StatusInternalServerError, "Failed to send webhook")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "message": "Update notification sent"})
}
