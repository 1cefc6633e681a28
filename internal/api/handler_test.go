package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"storefront/internal/app"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/state"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	_ = util.InitLogger("test")
	os.Exit(m.Run())
}

type stubShop struct {
	loginErr      error
	categoryTotal int
}

func (stubShop) FetchProducts(_ context.Context, limit, skip int) (models.ProductPage, error) {
	return models.ProductPage{
		Products: []models.Product{{ID: int64(skip + 1), Title: "Mascara", Price: decimal.RequireFromString("9.99")}},
		Total:    30,
		Skip:     skip,
		Limit:    limit,
	}, nil
}

func (s stubShop) FetchProductsByCategory(context.Context, string) (models.ProductPage, error) {
	total := s.categoryTotal
	if total == 0 {
		total = 1
	}
	products := make([]models.Product, 0, total)
	for i := 0; i < total; i++ {
		products = append(products, models.Product{ID: int64(80 + i), Title: "Laptop", Price: decimal.NewFromInt(999)})
	}
	return models.ProductPage{Products: products, Total: total}, nil
}

func (stubShop) FetchCategories(context.Context) ([]string, error) {
	return []string{"beauty", "laptops"}, nil
}

func (s stubShop) Login(_ context.Context, creds models.Credentials) (*models.User, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &models.User{ID: 1, Username: creds.Username, FirstName: "Emily", Token: "tok"}, nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type fixture struct {
	router  *gin.Engine
	app     *app.App
	storage *store.MemoryStorage
}

func newFixture(t *testing.T, shop stubShop, ready Pinger) *fixture {
	t.Helper()
	storage := store.NewMemoryStorage()
	a := app.New(context.Background(), app.Deps{
		Storage:     storage,
		Products:    shop,
		Identity:    shop,
		FencePolicy: state.LastIssuedWins,
		Rates:       service.DefaultRates(),
	})

	router := gin.New()
	NewHandler(a, ready).SetupRoutes(router)
	return &fixture{router: router, app: a, storage: storage}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) loginAdmin(t *testing.T) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusOK, w.Code)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGatedRoutesRedirectToLogin(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)

	for _, path := range []string{"/api/v1/catalog", "/api/v1/cart", "/api/v1/checkout"} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, LoginPath, w.Header().Get("Location"))
		assert.Equal(t, LoginPath, decode(t, w)["redirect"])
	}
}

func TestAdminLoginOpensGate(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "admin", "password": "admin"})
	require.Equal(t, http.StatusOK, w.Code)

	var session models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.True(t, session.Authenticated)
	assert.Equal(t, int64(999), session.User.ID)

	w = f.do(t, http.MethodGet, "/api/v1/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.EqualValues(t, 30, body["total"])
	pagination, ok := body["pagination"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, pagination["totalPages"])
	assert.EqualValues(t, 1, pagination["currentPage"])

	w = f.do(t, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/catalog", nil).Code)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "emilys"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, f.app.Auth.Authenticated())
}

func TestDelegatedLoginFailure(t *testing.T) {
	f := newFixture(t, stubShop{loginErr: errors.New("Invalid credentials")}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/auth/login", gin.H{"username": "emilys", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["details"])

	w = f.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	var session models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.False(t, session.Authenticated)
	assert.Equal(t, "Invalid credentials", session.Error)
}

func TestCatalogPaging(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	f.loginAdmin(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/catalog/refresh", nil).Code)

	w := f.do(t, http.MethodPost, "/api/v1/catalog/page", gin.H{"page": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 12, decode(t, w)["skip"])

	w = f.do(t, http.MethodPost, "/api/v1/catalog/page", gin.H{"page": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 12, f.app.Catalog.Snapshot().Skip)
}

func TestCatalogCategoryHidesPagination(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	f.loginAdmin(t)

	w := f.do(t, http.MethodPost, "/api/v1/catalog/category", gin.H{"category": "laptops"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "laptops", body["selectedCategory"])
	assert.NotContains(t, body, "pagination")

	w = f.do(t, http.MethodGet, "/api/v1/catalog/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"all", "beauty", "laptops"}, decode(t, w)["categories"])
}

func TestLargeCategoryIsNotPaginated(t *testing.T) {
	f := newFixture(t, stubShop{categoryTotal: 27}, nil)
	f.loginAdmin(t)

	w := f.do(t, http.MethodPost, "/api/v1/catalog/category", gin.H{"category": "groceries"})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.EqualValues(t, 27, body["total"])
	assert.Len(t, body["items"], 27)
	assert.NotContains(t, body, "pagination")

	w = f.do(t, http.MethodPost, "/api/v1/catalog/page", gin.H{"page": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.app.Catalog.Snapshot().Skip)

	w = f.do(t, http.MethodPost, "/api/v1/catalog/category", gin.H{"category": models.CategoryAll})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "pagination")
}

func TestCartAndCheckoutFlow(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	f.loginAdmin(t)

	product := gin.H{"id": 3, "title": "Powder", "price": "30", "category": "beauty"}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/cart/items", product).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/v1/cart/items/3/increment", nil).Code)

	w := f.do(t, http.MethodPut, "/api/v1/cart/items/3", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["totalItems"])

	w = f.do(t, http.MethodGet, "/api/v1/checkout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, decimal.RequireFromString("64.8").Equal(summary.Total))

	w = f.do(t, http.MethodPost, "/api/v1/checkout/confirm", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, decode(t, w)["orderRef"])
	assert.Empty(t, f.app.Cart.Snapshot().Items)

	_, err := f.storage.Get(context.Background(), models.CartStorageKey)
	assert.ErrorIs(t, err, store.ErrNotFound)

	w = f.do(t, http.MethodPost, "/api/v1/checkout/confirm", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartRejectsBadInput(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	f.loginAdmin(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodDelete, "/api/v1/cart/items/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"title": "no id"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/cart/items/1", gin.H{}).Code)
}

func TestDecrementAndClear(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	f.loginAdmin(t)

	f.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"id": 1, "price": 2})
	f.do(t, http.MethodPost, "/api/v1/cart/items", gin.H{"id": 2, "price": 3})

	w := f.do(t, http.MethodPost, "/api/v1/cart/items/1/decrement", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["totalItems"])

	w = f.do(t, http.MethodDelete, "/api/v1/cart", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["totalItems"])
}

func TestHealthAndReadiness(t *testing.T) {
	f := newFixture(t, stubShop{}, nil)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", nil).Code)

	f = newFixture(t, stubShop{}, failingPinger{})
	w := f.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "connection refused", decode(t, w)["details"])
}

func TestMetricsServer(t *testing.T) {
	srv := NewMetricsServer("9090")
	assert.Equal(t, ":9090", srv.Addr)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cart_items")

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
