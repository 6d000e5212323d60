package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/openshelf/catalog-service/internal/domain"
	"github.com/openshelf/catalog-service/pkg/database"
	apperrors "github.com/openshelf/catalog-service/pkg/errors"
)

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Add inserts a review and recomputes the product's aggregate rating, all in
// one transaction. The product row is locked first, so concurrent submissions
// for the same product serialize: each one sees every previously committed
// review when it recomputes, and duplicate checks cannot race.
func (r *ReviewRepository) Add(ctx context.Context, review *domain.Review) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the product row. A missing row fails the whole submission.
	var productID string
	err = tx.QueryRow(ctx,
		`SELECT id FROM products WHERE id = $1 FOR UPDATE`,
		review.ProductID,
	).Scan(&productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", review.ProductID)
		}
		return fmt.Errorf("lock product row: %w", err)
	}

	var alreadyReviewed bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE product_id = $1 AND reviewer_id = $2)`,
		review.ProductID, review.ReviewerID,
	).Scan(&alreadyReviewed)
	if err != nil {
		return fmt.Errorf("check existing review: %w", err)
	}
	if alreadyReviewed {
		return apperrors.Conflict("ALREADY_REVIEWED", "product already reviewed", http.StatusBadRequest)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO reviews (id, product_id, reviewer_id, reviewer_name, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		review.ID,
		review.ProductID,
		review.ReviewerID,
		review.ReviewerName,
		review.Rating,
		review.Comment,
		review.CreatedAt,
	)
	if err != nil {
		// The unique index on (product_id, reviewer_id) backstops the
		// EXISTS check above.
		if isUniqueViolation(err) {
			return apperrors.Conflict("ALREADY_REVIEWED", "product already reviewed", http.StatusBadRequest)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	// Recompute from the full review set rather than adjusting a running
	// average. Integer sum then one division is exact and order-independent.
	rows, err := tx.Query(ctx,
		`SELECT rating FROM reviews WHERE product_id = $1`,
		review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("load ratings: %w", err)
	}

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			rows.Close()
			return fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate ratings: %w", err)
	}

	mean, count := domain.AggregateRating(ratings)

	_, err = tx.Exec(ctx,
		`UPDATE products SET rating = $1, num_reviews = $2, updated_at = $3 WHERE id = $4`,
		mean, count, time.Now().UTC(), review.ProductID,
	)
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit review tx: %w", err)
	}

	return nil
}

// ListByProduct returns paginated reviews for a product, newest first, along
// with the total count.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Review, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT id, product_id, reviewer_id, reviewer_name, rating, comment, created_at,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, productID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review

		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.ReviewerID,
			&rv.ReviewerName,
			&rv.Rating,
			&rv.Comment,
			&rv.CreatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}

		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	// An OFFSET past the last review yields no rows, so the window count
	// never reaches the client. Recount so the page math stays correct.
	if len(reviews) == 0 {
		err := r.db.QueryRow(ctx,
			`SELECT count(*) FROM reviews WHERE product_id = $1`,
			productID,
		).Scan(&totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("count reviews: %w", err)
		}
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// Summary returns the average rating and total count of reviews for a product.
func (r *ReviewRepository) Summary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1`

	var summary domain.ReviewSummary

	err := r.db.QueryRow(ctx, query, productID).Scan(
		&summary.AverageRating,
		&summary.TotalCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	return &summary, nil
}
