package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/importfull/inventory-api/internal/model"
	"github.com/importfull/inventory-api/internal/repository"
)

type fakeProducts struct {
	byID      map[int64]*model.Product
	lastQuery repository.ProductQuery
	updated   map[string]any
	err       error
}

func (f *fakeProducts) Get(_ context.Context, id int64) (*model.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) List(_ context.Context, q repository.ProductQuery) (repository.ProductPage, error) {
	f.lastQuery = q
	if f.err != nil {
		return repository.ProductPage{}, f.err
	}
	page := repository.ProductPage{Products: []model.Product{}}
	for _, p := range f.byID {
		page.Products = append(page.Products, *p)
	}
	if q.WithTotal {
		n := int64(len(page.Products))
		page.Total = &n
	}
	return page, nil
}

func (f *fakeProducts) Search(_ context.Context, q string, offset, limit int) ([]model.Product, error) {
	return []model.Product{}, f.err
}

func (f *fakeProducts) ListMarketplace(_ context.Context, q repository.MarketplaceQuery) (repository.MarketplacePage, error) {
	return repository.MarketplacePage{Products: []model.Product{}}, f.err
}

func (f *fakeProducts) Update(ctx context.Context, id int64, fields map[string]any) (*model.Product, error) {
	f.updated = fields
	return f.Get(ctx, id)
}

type fakeNotifier struct {
	ok     bool
	events []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ int64, eventType string) bool {
	n.events = append(n.events, eventType)
	return n.ok
}

func newProductFixture(notifyOK bool) (*ProductHandler, *fakeProducts, *fakeNotifier, *observer.ObservedLogs) {
	name := "Desk"
	store := &fakeProducts{byID: map[int64]*model.Product{7: {ID: 7, ProductName: &name}}}
	notifier := &fakeNotifier{ok: notifyOK}
	core, logs := observer.New(zap.DebugLevel)
	return NewProductHandler(store, notifier, zap.New(core)), store, notifier, logs
}

func call(method, target, body string, id string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestListPassesFiltersAndTotal(t *testing.T) {
	h, store, _, _ := newProductFixture(true)

	rec := call(http.MethodGet, "/api/products?skip=5&limit=2&brand=acme&stock_filter=with_stock&sort_order=DESC&with_total=1", "", "", h.List)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, 5, store.lastQuery.Offset)
	assert.Equal(t, 2, store.lastQuery.Limit)
	assert.Equal(t, "acme", store.lastQuery.Brand)
	assert.Equal(t, repository.WithStock, store.lastQuery.Stock)
	assert.Equal(t, "desc", store.lastQuery.SortOrder)

	rec = call(http.MethodGet, "/api/products", "", "", h.List)
	assert.Empty(t, rec.Header().Get("X-Total-Count"))
	assert.Equal(t, repository.DefaultProductLimit, store.lastQuery.Limit)
}

func TestSearchRequiresQuery(t *testing.T) {
	h, _, _, _ := newProductFixture(true)
	rec := call(http.MethodGet, "/api/products/search?q=%20", "", "", h.Search)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRejectsBadIDs(t *testing.T) {
	h, _, _, _ := newProductFixture(true)
	for _, id := range []string{"abc", "0", "-3"} {
		rec := call(http.MethodGet, "/api/products/"+id, "", id, h.Get)
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
	rec := call(http.MethodGet, "/api/products/8", "", "8", h.Get)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Product not found"}`, rec.Body.String())
}

func TestPatchKeepsNumbersExact(t *testing.T) {
	h, store, _, _ := newProductFixture(true)

	rec := call(http.MethodPatch, "/api/products/7", `{"stock": 9007199254740993}`, "7", h.Patch)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("9007199254740993"), store.updated["stock"])

	for _, body := range []string{`[1,2]`, `null`, `{`} {
		rec = call(http.MethodPatch, "/api/products/7", body, "7", h.Patch)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestPublish(t *testing.T) {
	t.Run("delivered", func(t *testing.T) {
		h, _, notifier, _ := newProductFixture(true)
		rec := call(http.MethodPatch, "/api/products/7/publish", `{"action":"pause"}`, "7", h.Publish)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"product_name":"Desk"`)
		assert.Equal(t, []string{"pause"}, notifier.events)
	})
	t.Run("failure is only logged", func(t *testing.T) {
		h, _, _, logs := newProductFixture(false)
		rec := call(http.MethodPatch, "/api/products/7/publish", `{"action":"publish"}`, "7", h.Publish)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, logs.FilterMessage("publication event not delivered").Len())
	})
	t.Run("missing product sends nothing", func(t *testing.T) {
		h, _, notifier, _ := newProductFixture(true)
		rec := call(http.MethodPatch, "/api/products/8/publish", `{"action":"publish"}`, "8", h.Publish)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, notifier.events)
	})
	t.Run("unknown action", func(t *testing.T) {
		h, _, notifier, _ := newProductFixture(true)
		rec := call(http.MethodPatch, "/api/products/7/publish", `{"action":"archive"}`, "7", h.Publish)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, notifier.events)
	})
}

func TestNotifyUpdate(t *testing.T) {
	h, _, notifier, _ := newProductFixture(true)
	rec := call(http.MethodPost, "/api/products/7/notify", "", "7", h.NotifyUpdate)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success","message":"Update notification sent"}`, rec.Body.String())
	assert.Equal(t, []string{"update"}, notifier.events)

	notifier.ok = false
	rec = call(http.MethodPost, "/api/products/7/notify", "", "7", h.NotifyUpdate)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	h, store, _, logs := newProductFixture(true)
	store.err = errors.New("connection refused")

	rec := call(http.MethodGet, "/api/products", "", "", h.List)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())
}

func TestLogoExt(t *testing.T) {
	cases := map[string]string{
		"brand.PNG":     "png",
		"icon.svg":      "svg",
		"noext":         "png",
		"weird.p!g":     "png",
		"long.abcdefgh": "png",
		"photo.webp":    "webp",
	}
	for in, want := range cases {
		assert.Equal(t, want, logoExt(in), in)
	}
}
