package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/middleware"
	"github.com/importfull/inventory-api/internal/repository"
	"github.com/importfull/inventory-api/internal/service"
	"github.com/importfull/inventory-api/internal/settings"
)

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"detail": msg})
}

// fail maps a layer error onto its HTTP response.  notFound is the detail
// used for a missing row.  Unknown errors are logged and reported as a
// generic 500.
func fail(c echo.Context, log *zap.Logger, err error, notFound string) error {
	var verr *repository.ValidationError
	var serr *settings.ValidationError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return detail(c, http.StatusNotFound, notFound)
	case errors.As(err, &verr):
		return detail(c, http.StatusBadRequest, verr.Error())
	case errors.As(err, &serr):
		return detail(c, http.StatusBadRequest, serr.Error())
	case errors.Is(err, repository.ErrUsernameExists):
		return detail(c, http.StatusBadRequest, "Username already registered")
	case errors.Is(err, repository.ErrConflict):
		return detail(c, http.StatusConflict, "Already exists")
	case errors.Is(err, service.ErrUnauthenticated):
		return middleware.Unauthenticated(c)
	case errors.Is(err, filestore.ErrUnavailable):
		log.Warn("file store unavailable", zap.String("route", c.Path()), zap.Error(err))
		return detail(c, http.StatusServiceUnavailable, "File storage unavailable")
	}
	log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
	return detail(c, http.StatusInternalServerError, "Internal server error")
}

// intParam reads an optional integer query parameter.
func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &repository.ValidationError{Field: name, Msg: "must be an integer"}
	}
	return n, nil
}

// pathID reads the :id path parameter of product routes.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &repository.ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return id, nil
}
