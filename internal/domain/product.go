package domain

import (
	"time"
)

// Default attribute values for a freshly created product stub. Admins create
// a placeholder first and fill in real values with a subsequent update.
const (
	StubName        = "Sample name"
	StubImage       = "/images/sample.png"
	StubBrand       = "Sample brand"
	StubCategory    = "Sample category"
	StubDescription = "Sample description"
)

// Product represents a product in the catalog.
//
// Rating and NumReviews are derived fields: they are recomputed from the full
// review set on every accepted review write and must never be set directly.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Brand        string    `json:"brand"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	Image        string    `json:"image"`
	Price        float64   `json:"price"`
	CountInStock int       `json:"count_in_stock"`
	OwnerID      string    `json:"owner_id"`
	Rating       float64   `json:"rating"`
	NumReviews   int       `json:"num_reviews"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
