package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CatalogMetadata lists the distinct category and brand values.
type CatalogMetadata interface {
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
}

type MetadataHandler struct {
	Catalog CatalogMetadata
	Log     *zap.Logger
}

func NewMetadataHandler(catalog CatalogMetadata, log *zap.Logger) *MetadataHandler {
	return &MetadataHandler{Catalog: catalog, Log: log.Named("metadata")}
}

func (h *MetadataHandler) Categories(c echo.Context) error {
	out, err := h.Catalog.Categories(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MetadataHandler) Brands(c echo.Context) error {
	out, err := h.Catalog.Brands(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	return c.JSON(http.StatusOK, out)
}
