package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/catalog-service/internal/domain"
	apperrors "github.com/openshelf/catalog-service/pkg/errors"
)

// =============================================================================
// Mock ReviewRepository
// =============================================================================

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) Add(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepo) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, productID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepo) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSummary), args.Error(1)
}

type nopReviewEvents struct{}

func (nopReviewEvents) PublishReviewCreated(context.Context, *domain.Review) error { return nil }

// =============================================================================
// POST /api/v1/products/{productId}/reviews - CreateReview
// =============================================================================

func TestCreateReview_Success(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	reviewRepo.On("Add", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		// Identity comes from the token, not the body.
		return r.ProductID == "p1" && r.ReviewerID == "cust-1" &&
			r.ReviewerName == "Dana" && r.Rating == 5
	})).Return(nil)

	body, _ := json.Marshal(CreateReviewRequest{Rating: 5, Comment: "Excellent"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer customer-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "review added", resp.Message)
	reviewRepo.AssertExpectations(t)
}

func TestCreateReview_RequiresAuth(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	body, _ := json.Marshal(CreateReviewRequest{Rating: 5})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	reviewRepo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestCreateReview_RatingOutOfRange(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	for _, rating := range []int{0, 6} {
		body, _ := json.Marshal(CreateReviewRequest{Rating: rating})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", bytes.NewReader(body))
		req.Header.Set("Authorization", "Bearer customer-token")
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "rating=%d", rating)
	}

	reviewRepo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestCreateReview_Duplicate(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	reviewRepo.On("Add", mock.Anything, mock.Anything).
		Return(apperrors.Conflict("ALREADY_REVIEWED", "product already reviewed", http.StatusBadRequest))

	body, _ := json.Marshal(CreateReviewRequest{Rating: 4})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/reviews", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer customer-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_REVIEWED", resp.Error.Code)
}

func TestCreateReview_ProductMissing(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	reviewRepo.On("Add", mock.Anything, mock.Anything).
		Return(apperrors.NotFound("product", "ghost"))

	body, _ := json.Marshal(CreateReviewRequest{Rating: 4})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/ghost/reviews", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer customer-token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// GET /api/v1/products/{productId}/reviews - ListReviews
// =============================================================================

func TestListReviews_Success(t *testing.T) {
	reviewRepo := new(mockReviewRepo)
	router := catalogTestRouter(new(mockProductRepo), reviewRepo)

	reviews := []domain.Review{{ID: "rev-1", ProductID: "p1", ReviewerName: "Dana", Rating: 5}}
	reviewRepo.On("ListByProduct", mock.Anything, "p1", 1, 20).Return(reviews, 1, nil)
	reviewRepo.On("Summary", mock.Anything, "p1").
		Return(&domain.ReviewSummary{AverageRating: 5, TotalCount: 1}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/p1/reviews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data       []domain.Review       `json:"data"`
		Summary    *domain.ReviewSummary `json:"summary"`
		TotalCount int                   `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Len(t, envelope.Data, 1)
	assert.Equal(t, 5.0, envelope.Summary.AverageRating)
	reviewRepo.AssertExpectations(t)
}
