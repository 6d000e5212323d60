package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openshelf/catalog-service/internal/service"
	"github.com/openshelf/catalog-service/pkg/health"
	"github.com/openshelf/catalog-service/pkg/middleware"
)

// RouterConfig carries the collaborators the router wires together.
type RouterConfig struct {
	ProductService *service.ProductService
	ReviewService  *service.ReviewService
	HealthHandler  *health.Handler
	VerifyToken    middleware.TokenVerifier
	CORS           middleware.CORSConfig
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all catalog service routes registered.
// Listing, lookup, ranking, and review reads are public; review submission
// requires authentication; product mutations require the admin role.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("catalog-service"))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Operational endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	productHandler := NewProductHandler(cfg.ProductService, cfg.Logger)
	reviewHandler := NewReviewHandler(cfg.ReviewService, cfg.Logger)

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public catalog reads. chi matches the static /top segment ahead
		// of the /{id} param, so "top" is never read as a product id.
		r.Get("/", productHandler.ListProducts)
		r.Get("/top", productHandler.TopProducts)
		r.Get("/{id}", productHandler.GetProduct)
		r.Get("/{productId}/reviews", reviewHandler.ListReviews)

		// Review submission requires an authenticated customer.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.VerifyToken))
			r.Post("/{productId}/reviews", reviewHandler.CreateReview)
		})

		// Catalog mutations require the admin role.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.VerifyToken))
			r.Use(middleware.RequireRole("admin"))

			r.Post("/", productHandler.CreateProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	return r
}
