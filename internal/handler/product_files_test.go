package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/importfull/inventory-api/internal/filestore"
	"github.com/importfull/inventory-api/internal/model"
)

func newFilesFixture(t *testing.T) (*ProductFilesHandler, *fakeProducts, filestore.Store) {
	t.Helper()
	local, err := filestore.NewLocal(t.TempDir(), "http://files.test/files")
	require.NoError(t, err)
	name := "Desk"
	store := &fakeProducts{byID: map[int64]*model.Product{7: {ID: 7, ProductName: &name}}}
	return NewProductFilesHandler(store, local, "inventory", zap.NewNop()), store, local
}

func TestProductFilesListAndImage(t *testing.T) {
	h, store, files := newFilesFixture(t)
	ctx := context.Background()

	rec := call(http.MethodGet, "/api/products/7/files", "", "7", h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	folder, err := files.CreateFolder(ctx, "7", "inventory")
	require.NoError(t, err)
	store.byID[7].DriveURL = &folder.URL
	_, err = files.UploadFile(ctx, []byte("png-bytes"), "side.png", folder.ID, "image/png")
	require.NoError(t, err)
	_, err = files.UploadFile(ctx, []byte("notes"), "notes.txt", folder.ID, "text/plain")
	require.NoError(t, err)

	rec = call(http.MethodGet, "/api/products/7/files", "", "7", h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		ID             string `json:"id"`
		ThumbnailLink  string `json:"thumbnail_link"`
		LargeImageLink string `json:"large_image_link"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "inventory/7/side.png", listed[0].ID)
	assert.Equal(t, "/api/products/images/inventory/7/side.png", listed[0].ThumbnailLink)
	assert.Equal(t, listed[0].ThumbnailLink+"?size=large", listed[0].LargeImageLink)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, listed[0].ThumbnailLink, nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("*")
	c.SetParamValues("inventory/7/side.png")
	require.NoError(t, h.Image(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/api/products/images/inventory/7/notes.txt", nil), rec)
	c.SetParamNames("*")
	c.SetParamValues("inventory/7/notes.txt")
	require.NoError(t, h.Image(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductFilesUploadCreatesFolder(t *testing.T) {
	h, store, files := newFilesFixture(t)
	rec := postFile(t, h.Upload, "7", "front.jpg", []byte("jpeg"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, files.FolderURL("inventory/7"), store.updated["drive_url"])
	obj, err := files.Download(context.Background(), "inventory/7/front.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), obj.Data)

	rec = postFile(t, h.Upload, "8", "front.jpg", []byte("jpeg"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// postFile sends data as the multipart field "file" to h with the :id param set.
func postFile(t *testing.T, h echo.HandlerFunc, id, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products/"+id+"/upload", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h(c))
	return rec
}
