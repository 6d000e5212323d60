package domain

import (
	"time"
)

// Rating bounds for a review.
const (
	MinRating = 1
	MaxRating = 5
)

// Review represents a customer review of a product. At most one review may
// exist per (product, reviewer) pair; the reviewer's display name is
// snapshotted at submission time and never re-synced.
type Review struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReviewSummary contains aggregate review statistics for a product.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}

// ValidRating reports whether r is within the accepted rating range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// AggregateRating computes the mean rating and count over the full set of
// ratings. Summing integers before a single division keeps the result exact
// regardless of arrival order; there is no running average to drift.
// An empty set yields a zero rating.
func AggregateRating(ratings []int) (mean float64, count int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings)
}
