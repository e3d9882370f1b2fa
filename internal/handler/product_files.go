package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/model"
)

// imageProxyPath is where product images are served from; the file id
// follows it.
const imageProxyPath = "/api/products/images/"

// ProductLookup is what the file handlers need from the catalog.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (*model.Product, error)
	Update(ctx context.Context, id int64, fields map[string]any) (*model.Product, error)
}

// ProductFilesHandler stores product photos in one folder per product.
type ProductFilesHandler struct {
	Products   ProductLookup
	Files      filestore.Store
	RootFolder string
	Log        *zap.Logger
}

func NewProductFilesHandler(products ProductLookup, files filestore.Store, rootFolder string, log *zap.Logger) *ProductFilesHandler {
	return &ProductFilesHandler{Products: products, Files: files, RootFolder: rootFolder, Log: log.Named("product_files")}
}

type productFile struct {
	filestore.FileRef
	ThumbnailLink  string `json:"thumbnail_link"`
	LargeImageLink string `json:"large_image_link"`
}

// Upload stores the multipart "file" in the product's folder, creating the
// folder (and recording its link in drive_url) on first upload.
func (h *ProductFilesHandler) Upload(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	ctx := c.Request().Context()
	p, err := h.Products.Get(ctx, id)
	if err != nil {
		return fail(c, h.Log, err, productNotFound)
	}
	up, err := readUpload(c)
	if err != nil {
		return uploadError(c, err)
	}

	folderID, folderURL := "", ""
	if p.DriveURL != nil {
		folderURL = *p.DriveURL
		folderID, _ = h.Files.ExtractFolderID(folderURL)
	}
	if folderID == "" {
		folder, err := h.Files.CreateFolder(ctx, strconv.FormatInt(p.ID, 10), h.RootFolder)
		if err != nil {
			h.Log.Error("create product folder", zap.Int64("product_id", id), zap.Error(err))
			return detail(c, http.StatusInternalServerError, "Failed to create storage folder")
		}
		folderID, folderURL = folder.ID, folder.URL
		if _, err := h.Products.Update(ctx, id, map[string]any{"drive_url": folderURL}); err != nil {
			return fail(c, h.Log, err, productNotFound)
		}
	}

	ref, err := h.Files.UploadFile(ctx, up.Data, up.Name, folderID, up.ContentType)
	if errors.Is(err, filestore.ErrInvalidName) {
		return detail(c, http.StatusBadRequest, "invalid file name")
	}
	if err != nil {
		h.Log.Error("upload product file", zap.Int64("product_id", id), zap.Error(err))
		return detail(c, http.StatusInternalServerError, "Failed to upload file")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"detail":    "File uploaded successfully",
		"file_id":   ref.ID,
		"drive_url": folderURL,
	})
}

// List returns the product's images with links to the image proxy.  Any
// problem (no product, no folder, store down) yields an empty list.
func (h *ProductFilesHandler) List(c echo.Context) error {
	out := []productFile{}
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusOK, out)
	}
	ctx := c.Request().Context()
	p, err := h.Products.Get(ctx, id)
	if err != nil || p.DriveURL == nil {
		return c.JSON(http.StatusOK, out)
	}
	folderID, ok := h.Files.ExtractFolderID(*p.DriveURL)
	if !ok {
		h.Log.Debug("drive_url is not a folder link", zap.Int64("product_id", id))
		return c.JSON(http.StatusOK, out)
	}
	files, err := h.Files.ListFiles(ctx, folderID)
	if err != nil {
		return c.JSON(http.StatusOK, out)
	}
	for _, f := range files {
		link := imageProxyPath + f.ID
		out = append(out, productFile{FileRef: f, ThumbnailLink: link, LargeImageLink: link + "?size=large"})
	}
	return c.JSON(http.StatusOK, out)
}

// Image proxies an image file out of the store.
func (h *ProductFilesHandler) Image(c echo.Context) error {
	fileID := strings.TrimPrefix(c.Param("*"), "/")
	obj, err := h.Files.Download(c.Request().Context(), fileID)
	switch {
	case errors.Is(err, filestore.ErrUnavailable):
		return detail(c, http.StatusServiceUnavailable, "File storage unavailable")
	case err != nil:
		return detail(c, http.StatusNotFound, "Image not found")
	case !strings.HasPrefix(obj.MimeType, "image/"):
		return detail(c, http.StatusNotFound, "Image not found")
	}
	return c.Blob(http.StatusOK, obj.MimeType, obj.Data)
}
