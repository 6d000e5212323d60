package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openshelf/catalog-service/internal/service"
	"github.com/openshelf/catalog-service/pkg/httputil"
	"github.com/openshelf/catalog-service/pkg/middleware"
	"github.com/openshelf/catalog-service/pkg/pagination"
	"github.com/openshelf/catalog-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateReviewRequest is the JSON request body for submitting a review. The
// reviewer's identity and display name come from the authenticated actor.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/products/{productId}/reviews
// @Summary List product reviews
// @Description Returns paginated reviews for a product, newest first, with a rating summary
// @Tags reviews
// @Produce json
// @Param productId path string true "Product ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/products/{productId}/reviews [get]
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product id is required"},
		})
		return
	}

	params := pagination.FromRequest(r)

	result, err := h.service.ListReviews(r.Context(), productID, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"data":        result.Reviews.Data,
		"summary":     result.Summary,
		"total_count": result.Reviews.TotalCount,
		"page":        result.Reviews.Page,
		"per_page":    result.Reviews.PerPage,
		"total_pages": result.Reviews.TotalPages,
	})
}

// CreateReview handles POST /api/v1/products/{productId}/reviews (authenticated)
// @Summary Submit a product review
// @Description Records a review and atomically updates the product's aggregate rating. One review per customer per product.
// @Tags reviews
// @Accept json
// @Produce json
// @Param productId path string true "Product ID"
// @Param request body CreateReviewRequest true "Review to submit"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{productId}/reviews [post]
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")
	if productID == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "product id is required"},
		})
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "authentication required"},
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Submit(r.Context(), service.SubmitReviewInput{
		ProductID:    productID,
		ReviewerID:   actor.ID,
		ReviewerName: actor.Name,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data:    review,
		Message: "review added",
	})
}
