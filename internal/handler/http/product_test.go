package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/repository"
	"github.com/openshelf/catalog-service/internal/service"
	apperrors "github.com/openshelf/catalog-service/pkg/errors"
	"github.com/openshelf/catalog-service/pkg/health"
	"github.com/openshelf/catalog-service/pkg/httputil"
	"github.com/openshelf/catalog-service/pkg/middleware"
)

// =============================================================================
// Mock ProductRepository
// =============================================================================

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepo) ListTop(ctx context.Context, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

// =============================================================================
// Test helpers
// =============================================================================

type nopProductEvents struct{}

func (nopProductEvents) PublishProductCreated(context.Context, *domain.Product) error { return nil }
func (nopProductEvents) PublishProductUpdated(context.Context, *domain.Product) error { return nil }
func (nopProductEvents) PublishProductDeleted(context.Context, string) error          { return nil }

type nopRanking struct{}

func (nopRanking) Get(context.Context, int) ([]domain.Product, bool, error) { return nil, false, nil }
func (nopRanking) Set(context.Context, int, []domain.Product) error         { return nil }
func (nopRanking) Invalidate(context.Context) error                         { return nil }

func catalogTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testVerifier resolves a fixed set of bearer tokens to actors.
func testVerifier(token string) (*middleware.Actor, error) {
	switch token {
	case "admin-token":
		return &middleware.Actor{ID: "admin-1", Name: "Ada Admin", Role: "admin"}, nil
	case "customer-token":
		return &middleware.Actor{ID: "cust-1", Name: "Dana", Role: "customer"}, nil
	default:
		return nil, errors.New("unknown token")
	}
}

func catalogTestRouter(productRepo *mockProductRepo, reviewRepo *mockReviewRepo) http.Handler {
	logger := catalogTestLogger()

	productService := service.NewProductService(productRepo, nopProductEvents{}, nopRanking{}, logger, 2, 3)
	reviewService := service.NewReviewService(reviewRepo, nopReviewEvents{}, nopRanking{}, logger)

	return NewRouter(RouterConfig{
		ProductService: productService,
		ReviewService:  reviewService,
		HealthHandler:  health.NewHandler(),
		VerifyToken:    testVerifier,
		CORS:           middleware.DefaultCORSConfig(),
		Logger:         logger,
	})
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func catalogProduct(id, name string) domain.Product {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Product{
		ID:        id,
		Name:      name,
		Brand:     "Airshell",
		Category:  "Electronics",
		Price:     89.99,
		OwnerID:   "admin-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// GET /api/v1/products - ListProducts
// =============================================================================

func TestListProducts_FirstPage(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	products := []domain.Product{catalogProduct("p1", "Alpha"), catalogProduct("p2", "Beta")}
	productRepo.On("List", mock.Anything, repository.ProductFilter{Keyword: "", Page: 1, PageSize: 2}).
		Return(products, 5, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data ProductListResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Len(t, envelope.Data.Items, 2)
	assert.Equal(t, 1, envelope.Data.Page)
	assert.Equal(t, 3, envelope.Data.TotalPages)
	productRepo.AssertExpectations(t)
}

func TestListProducts_KeywordForwarded(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("List", mock.Anything, repository.ProductFilter{Keyword: "shell", Page: 1, PageSize: 2}).
		Return([]domain.Product{}, 0, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?keyword=shell", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	productRepo.AssertExpectations(t)
}

func TestListProducts_MalformedPageFallsBackToFirst(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("List", mock.Anything, repository.ProductFilter{Keyword: "", Page: 1, PageSize: 2}).
		Return([]domain.Product{}, 0, nil).Times(3)

	for _, page := range []string{"abc", "-2", "0"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products?pageNumber="+page, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, "pageNumber=%s", page)
	}

	productRepo.AssertExpectations(t)
}

// =============================================================================
// GET /api/v1/products/top - TopProducts
// =============================================================================

func TestTopProducts_DefaultLimit(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	top := []domain.Product{catalogProduct("p1", "Alpha")}
	productRepo.On("ListTop", mock.Anything, 3).Return(top, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/top", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	productRepo.AssertExpectations(t)
}

func TestTopProducts_CustomLimit(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("ListTop", mock.Anything, 5).Return([]domain.Product{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/top?limit=5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	productRepo.AssertExpectations(t)
}

// =============================================================================
// GET /api/v1/products/{id} - GetProduct
// =============================================================================

func TestGetProduct_Found(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	p := catalogProduct("p1", "Alpha")
	productRepo.On("GetByID", mock.Anything, "p1").Return(&p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	productRepo.AssertExpectations(t)
}

func TestGetProduct_NotFound(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.ErrNotFound)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}

// =============================================================================
// POST /api/v1/products - CreateProduct (admin)
// =============================================================================

func TestCreateProduct_RequiresAuth(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_ForbiddenForCustomer(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer customer-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	productRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_StubDefaults(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.Name == domain.StubName && p.OwnerID == "admin-1"
	})).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	productRepo.AssertExpectations(t)
}

// =============================================================================
// PUT /api/v1/products/{id} - UpdateProduct (admin)
// =============================================================================

func TestUpdateProduct_Success(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	existing := catalogProduct("p1", "Alpha")
	productRepo.On("GetByID", mock.Anything, "p1").Return(&existing, nil)
	productRepo.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.Name == "Trail Lantern" && p.Price == 24.5
	})).Return(nil)

	body, _ := json.Marshal(UpdateProductRequest{
		Name:         "Trail Lantern",
		Price:        24.5,
		Brand:        "Northfield",
		Category:     "Outdoors",
		CountInStock: 8,
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/p1", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	productRepo.AssertExpectations(t)
}

func TestUpdateProduct_ValidationError(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	// Missing name and negative stock.
	body, _ := json.Marshal(UpdateProductRequest{CountInStock: -1})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/p1", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	productRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateProduct_NotFound(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("product", "missing"))

	body, _ := json.Marshal(UpdateProductRequest{Name: "X"})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/products/missing", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer admin-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DELETE /api/v1/products/{id} - DeleteProduct (admin)
// =============================================================================

func TestDeleteProduct_Success(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("Delete", mock.Anything, "p1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/p1", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	productRepo.AssertExpectations(t)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	productRepo := new(mockProductRepo)
	router := catalogTestRouter(productRepo, new(mockReviewRepo))

	productRepo.On("Delete", mock.Anything, "missing").Return(apperrors.NotFound("product", "missing"))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/missing", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
