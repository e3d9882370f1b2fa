package handler

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/settings"
)

// logoTypes maps a logo type to the settings key that records it.
var logoTypes = map[string]string{
	"light":   settings.KeyLogoLight,
	"dark":    settings.KeyLogoDark,
	"favicon": settings.KeyFavicon,
}

// logoPrefix is the fixed file name (without extension) of a logo type.
func logoPrefix(logoType string) string { return "app_logo_" + logoType }

// LogoHandler stores the application logos as fixed-name files in the root
// folder and serves them publicly.
type LogoHandler struct {
	Files    filestore.Store
	Folder   string
	Settings SettingsStore
	Log      *zap.Logger
}

func NewLogoHandler(files filestore.Store, folder string, s SettingsStore, log *zap.Logger) *LogoHandler {
	return &LogoHandler{Files: files, Folder: folder, Settings: s, Log: log.Named("logo")}
}

// Upload replaces the logo of the given type (form or query "logo_type",
// default "light") and records its public path in the settings document.
func (h *LogoHandler) Upload(c echo.Context) error {
	logoType := c.FormValue("logo_type")
	if logoType == "" {
		logoType = "light"
	}
	key, ok := logoTypes[logoType]
	if !ok {
		return detail(c, http.StatusBadRequest, "Invalid logo type: "+logoType)
	}
	up, err := readUpload(c)
	if err != nil {
		return uploadError(c, err)
	}
	ctx := c.Request().Context()
	prefix := logoPrefix(logoType)

	old, err := h.Files.FindAllByNamePrefix(ctx, prefix+".", h.Folder)
	if err != nil {
		return fail(c, h.Log, err, "")
	}
	for _, f := range old {
		if err := h.Files.Delete(ctx, f.ID); err != nil && !errors.Is(err, filestore.ErrNotFound) {
			h.Log.Warn("could not delete old logo", zap.String("file_id", f.ID), zap.Error(err))
		}
	}

	contentType := up.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "image/png"
	}
	ref, err := h.Files.UploadFile(ctx, up.Data, prefix+"."+logoExt(up.Name), h.Folder, contentType)
	if err != nil {
		h.Log.Error("upload logo", zap.String("logo_type", logoType), zap.Error(err))
		return detail(c, http.StatusInternalServerError, "Failed to upload logo")
	}

	logoURL := "/logo/" + logoType
	saved := h.Settings.UpdateSetting(ctx, key, logoURL)
	if !saved {
		h.Log.Warn("logo uploaded but settings not saved", zap.String("logo_type", logoType))
	}
	h.Log.Info("logo uploaded", zap.String("logo_type", logoType), zap.String("file_id", ref.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"logo_url":       logoURL,
		"logo_type":      logoType,
		"file_id":        ref.ID,
		"settings_saved": saved,
	})
}

// Serve streams the newest logo of a type.  Public, cached for an hour.
func (h *LogoHandler) Serve(c echo.Context) error {
	logoType := c.Param("type")
	if _, ok := logoTypes[logoType]; !ok {
		return c.NoContent(http.StatusNotFound)
	}
	ctx := c.Request().Context()
	ref, err := h.Files.FindByNamePrefix(ctx, logoPrefix(logoType)+".", h.Folder)
	if err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	if ref == nil {
		return c.NoContent(http.StatusNotFound)
	}
	obj, err := h.Files.Download(ctx, ref.ID)
	switch {
	case errors.Is(err, filestore.ErrNotFound):
		return c.NoContent(http.StatusNotFound)
	case err != nil:
		return c.NoContent(http.StatusServiceUnavailable)
	}
	mimeType := obj.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Blob(http.StatusOK, mimeType, obj.Data)
}

// logoExt keeps the uploaded extension when it is a plain one, else png.
func logoExt(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || len(ext) > 5 {
		return "png"
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "png"
		}
	}
	return ext
}
