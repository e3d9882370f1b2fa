package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/repository"
)

// CompetitorStore is the competitor repository as seen by the handlers.
type CompetitorStore interface {
	List(ctx context.Context, q repository.CompetitorQuery) ([]model.CompetitorListing, error)
	Get(ctx context.Context, url string) (*model.CompetitorListing, error)
	Create(ctx context.Context, in repository.CompetitorCreate) (*model.CompetitorListing, error)
	UpdateURL(ctx context.Context, url, newURL string) (*model.CompetitorListing, error)
	Delete(ctx context.Context, url string) error
}

// CompetitorHandler serves the tracked competitor listings.  Listings are
// addressed by the ?url= query parameter.
type CompetitorHandler struct {
	Competitors CompetitorStore
	Log         *zap.Logger
}

func NewCompetitorHandler(competitors CompetitorStore, log *zap.Logger) *CompetitorHandler {
	return &CompetitorHandler{Competitors: competitors, Log: log.Named("competitors")}
}

const competitorNotFound = "Competitor listing not found"

func (h *CompetitorHandler) List(c echo.Context) error {
	skip, err := intParam(c, "skip", 0)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	limit, err := intParam(c, "limit", repository.DefaultCompetitorLimit)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	items, err := h.Competitors.List(c.Request().Context(), repository.CompetitorQuery{
		Offset: skip,
		Limit:  limit,
		Search: strings.TrimSpace(c.QueryParam("q")),
		Status: c.QueryParam("status"),
	})
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CompetitorHandler) Get(c echo.Context) error {
	url, ok := urlParam(c)
	if !ok {
		return detail(c, http.StatusBadRequest, "url is required")
	}
	item, err := h.Competitors.Get(c.Request().Context(), url)
	if err != nil {
		return fail(c, h.Log, err, competitorNotFound)
	}
	return c.JSON(http.StatusOK, item)
}

// Create starts tracking a listing.  Only the URL is required.
func (h *CompetitorHandler) Create(c echo.Context) error {
	var req repository.CompetitorCreate
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	item, err := h.Competitors.Create(c.Request().Context(), req)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusCreated, item)
}

// Update changes the URL of a listing, the only field users edit.
func (h *CompetitorHandler) Update(c echo.Context) error {
	url, ok := urlParam(c)
	if !ok {
		return detail(c, http.StatusBadRequest, "url is required")
	}
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	item, err := h.Competitors.UpdateURL(c.Request().Context(), url, req.URL)
	if err != nil {
		return fail(c, h.Log, err, competitorNotFound)
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CompetitorHandler) Delete(c echo.Context) error {
	url, ok := urlParam(c)
	if !ok {
		return detail(c, http.StatusBadRequest, "url is required")
	}
	if err := h.Competitors.Delete(c.Request().Context(), url); err != nil {
		return fail(c, h.Log, err, competitorNotFound)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "deleted", "url": url})
}

func urlParam(c echo.Context) (string, bool) {
	url := strings.TrimSpace(c.QueryParam("url"))
	return url, url != ""
}
