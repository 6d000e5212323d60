package repository

import (
	"context"

	"github.com/openshelf/catalog-service/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
// Keyword matches the product name as a case-insensitive substring;
// an empty keyword matches every product.
type ProductFilter struct {
	Keyword  string
	Page     int
	PageSize int
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the given filter along with the total
	// count of matching records. Count and page are computed by the same
	// predicate in a single query so they can never disagree.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update replaces the caller-editable attributes of an existing product.
	// Derived fields (rating, num_reviews) and the owner are never touched.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product and all of its reviews.
	Delete(ctx context.Context, id string) error

	// ListTop returns up to limit products ordered by rating descending,
	// with product id ascending as the deterministic tiebreak.
	ListTop(ctx context.Context, limit int) ([]domain.Product, error)
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Add appends a review to a product and recomputes the product's
	// aggregate rating and review count from the full review set, all
	// within a single transaction holding the product row lock. It fails
	// without modifying anything when the product does not exist or the
	// reviewer has already reviewed it.
	Add(ctx context.Context, review *domain.Review) error

	// ListByProduct returns paginated reviews for a product, newest first,
	// along with the total count.
	ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error)

	// Summary returns the aggregate rating statistics for a product.
	Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error)
}
