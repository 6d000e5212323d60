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

// ProductEventPublisher publishes product lifecycle events.
type ProductEventPublisher interface {
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishProductUpdated(ctx context.Context, product *domain.Product) error
	PublishProductDeleted(ctx context.Context, id string) error
}

// RankingCache caches top-product lists keyed by result limit.
type RankingCache interface {
	Get(ctx context.Context, limit int) ([]domain.Product, bool, error)
	Set(ctx context.Context, limit int, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

// ProductService implements the business logic for catalog operations.
type ProductService struct {
	repo     repository.ProductRepository
	events   ProductEventPublisher
	ranking  RankingCache
	logger   *slog.Logger
	pageSize int
	topLimit int
}

// NewProductService creates a new product service. pageSize is the fixed
// catalog page size; topLimit is the default size of the top-rated list.
func NewProductService(repo repository.ProductRepository, events ProductEventPublisher, ranking RankingCache, logger *slog.Logger, pageSize, topLimit int) *ProductService {
	return &ProductService{
		repo:     repo,
		events:   events,
		ranking:  ranking,
		logger:   logger,
		pageSize: pageSize,
		topLimit: topLimit,
	}
}

// UpdateProductInput holds the replacement attributes for a product update.
// All fields are applied; this is a full replacement of the editable
// attributes, not a patch.
type UpdateProductInput struct {
	Name         string
	Price        float64
	Description  string
	Image        string
	Brand        string
	Category     string
	CountInStock int
}

// List returns one page of products whose name contains keyword as a
// case-insensitive substring. An empty keyword matches everything. Any page
// value below 1 is coerced to 1 rather than rejected.
func (s *ProductService) List(ctx context.Context, keyword string, page int) (pagination.Result[domain.Product], error) {
	if page < 1 {
		page = 1
	}

	products, total, err := s.repo.List(ctx, repository.ProductFilter{
		Keyword:  keyword,
		Page:     page,
		PageSize: s.pageSize,
	})
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}

	return pagination.NewResult(products, total, pagination.Params{Page: page, PerPage: s.pageSize}), nil
}

// Get retrieves a product by its ID.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// Top returns the limit highest-rated products. A limit below 1 falls back to
// the configured default. Results are served from the ranking cache when
// present; cache failures degrade to the store.
func (s *ProductService) Top(ctx context.Context, limit int) ([]domain.Product, error) {
	ctx, span := tracing.Tracer("catalog.product").Start(ctx, "ProductService.Top")
	defer span.End()

	if limit < 1 {
		limit = s.topLimit
	}

	if cached, ok, err := s.ranking.Get(ctx, limit); err != nil {
		s.logger.WarnContext(ctx, "ranking cache read failed",
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return cached, nil
	}

	products, err := s.repo.ListTop(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list top products: %w", err)
	}

	if err := s.ranking.Set(ctx, limit, products); err != nil {
		s.logger.WarnContext(ctx, "ranking cache write failed",
			slog.Int("limit", limit),
			slog.String("error", err.Error()),
		)
	}

	return products, nil
}

// Create inserts a new placeholder product owned by the calling admin. The
// stub carries sample attribute values; the caller follows up with an update
// to fill in real ones.
func (s *ProductService) Create(ctx context.Context, ownerID string) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        domain.StubName,
		Brand:       domain.StubBrand,
		Category:    domain.StubCategory,
		Description: domain.StubDescription,
		Image:       domain.StubImage,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidateRanking(ctx)

	if err := s.events.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Event publishing never fails the operation.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("owner_id", ownerID),
	)

	return product, nil
}

// Update replaces the editable attributes of an existing product. Rating and
// review count are derived from reviews and cannot be set here.
func (s *ProductService) Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name must not be empty")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.CountInStock < 0 {
		return nil, apperrors.InvalidInput("count in stock must not be negative")
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	product.Name = input.Name
	product.Price = input.Price
	product.Description = input.Description
	product.Image = input.Image
	product.Brand = input.Brand
	product.Category = input.Category
	product.CountInStock = input.CountInStock

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidateRanking(ctx)

	if err := s.events.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
	)

	return product, nil
}

// Delete removes a product and all of its reviews.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidateRanking(ctx)

	if err := s.events.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}

func (s *ProductService) invalidateRanking(ctx context.Context) {
	if err := s.ranking.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "ranking cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}
