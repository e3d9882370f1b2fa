package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/settings"
)

// SettingsStore is the settings document as seen by the handlers.
type SettingsStore interface {
	Load(ctx context.Context) settings.Document
	UpdateSetting(ctx context.Context, key string, value any) bool
	GetSetting(ctx context.Context, key string, def any) any
}

// publicKeys are the settings anyone may read.
var publicKeys = []string{settings.KeyLogoLight, settings.KeyLogoDark, settings.KeyFavicon, settings.KeyTheme}

type SettingsHandler struct {
	Settings SettingsStore
	Log      *zap.Logger
}

func NewSettingsHandler(s SettingsStore, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{Settings: s, Log: log.Named("settings")}
}

type putSettingReq struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Get returns the whole document, reloaded from the store.
func (h *SettingsHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Settings.Load(c.Request().Context()))
}

// Public returns the logo URLs and theme from the cached document.
func (h *SettingsHandler) Public(c echo.Context) error {
	ctx := c.Request().Context()
	out := make(map[string]any, len(publicKeys))
	for _, k := range publicKeys {
		out[k] = h.Settings.GetSetting(ctx, k, nil)
	}
	return c.JSON(http.StatusOK, out)
}

// Put writes a single key.
func (h *SettingsHandler) Put(c echo.Context) error {
	var req putSettingReq
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "invalid body")
	}
	var value any
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			return detail(c, http.StatusBadRequest, "invalid value")
		}
	}
	if err := settings.Validate(req.Key, value); err != nil {
		return fail(c, h.Log, err, "")
	}
	ctx := c.Request().Context()
	if !h.Settings.UpdateSetting(ctx, req.Key, value) {
		return detail(c, http.StatusServiceUnavailable, "Could not save settings")
	}
	return c.JSON(http.StatusOK, echo.Map{req.Key: value})
}
