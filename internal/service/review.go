package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/internal/repository"
	apperrors "github.com/openshelf/catalog-service/pkg/errors"
	"github.com/openshelf/catalog-service/pkg/pagination"
	"github.com/openshelf/catalog-service/pkg/tracing"
)

// ReviewEventPublisher publishes review lifecycle events.
type ReviewEventPublisher interface {
	PublishReviewCreated(ctx context.Context, review *domain.Review) error
}

// SubmitReviewInput holds the parameters for submitting a review. Reviewer
// identity comes from the authenticated actor, never from the request body.
type SubmitReviewInput struct {
	ProductID    string
	ReviewerID   string
	ReviewerName string
	Rating       int
	Comment      string
}

// ReviewListResult contains one page of reviews and their aggregate summary.
type ReviewListResult struct {
	Reviews pagination.Result[domain.Review] `json:"reviews"`
	Summary *domain.ReviewSummary            `json:"summary"`
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo    repository.ReviewRepository
	events  ReviewEventPublisher
	ranking RankingCache
	logger  *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, events ReviewEventPublisher, ranking RankingCache, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:    repo,
		events:  events,
		ranking: ranking,
		logger:  logger,
	}
}

// Submit validates and records a review, updating the product's aggregate
// rating atomically with the insert. A reviewer may review a given product at
// most once.
func (s *ReviewService) Submit(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	ctx, span := tracing.Tracer("catalog.review").Start(ctx, "ReviewService.Submit")
	defer span.End()

	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if input.ReviewerID == "" {
		return nil, apperrors.InvalidInput("reviewer id is required")
	}
	if !domain.ValidRating(input.Rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}

	review := &domain.Review{
		ID:           uuid.New().String(),
		ProductID:    input.ProductID,
		ReviewerID:   input.ReviewerID,
		ReviewerName: input.ReviewerName,
		Rating:       input.Rating,
		Comment:      input.Comment,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Add(ctx, review); err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}

	// The product's rating just changed; cached rankings are stale.
	if err := s.ranking.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "ranking cache invalidation failed",
			slog.String("product_id", review.ProductID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.events.PublishReviewCreated(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.created event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("reviewer_id", review.ReviewerID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// ListReviews returns paginated reviews for a product, newest first, along
// with the aggregate summary.
func (s *ReviewService) ListReviews(ctx context.Context, productID string, params pagination.Params) (*ReviewListResult, error) {
	reviews, total, err := s.repo.ListByProduct(ctx, productID, params.Page, params.PerPage)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	summary, err := s.repo.Summary(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	return &ReviewListResult{
		Reviews: pagination.NewResult(reviews, total, params),
		Summary: summary,
	}, nil
}
