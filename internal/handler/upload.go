package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxUploadBytes caps a single uploaded file.
const maxUploadBytes = 10 << 20

var errTooLarge = errors.New("file too large")

type upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// readUpload reads the multipart field "file".
func readUpload(c echo.Context) (upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return upload{}, err
	}
	if fh.Size > maxUploadBytes {
		return upload{}, errTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return upload{}, err
	}
	if len(data) > maxUploadBytes {
		return upload{}, errTooLarge
	}
	return upload{Name: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Data: data}, nil
}

func uploadError(c echo.Context, err error) error {
	if errors.Is(err, errTooLarge) {
		return detail(c, http.StatusRequestEntityTooLarge, "file exceeds 10 MiB")
	}
	return detail(c, http.StatusBadRequest, "multipart field 'file' is required")
}
