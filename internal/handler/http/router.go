package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ServiceName labels metrics and spans.
const ServiceName = "storefront"

// RouterDeps holds everything NewRouter wires into the routes.
type RouterDeps struct {
	Products      *service.ProductService
	Reviews       *service.ReviewService
	Notifications *service.NotificationService
	ValidateToken middleware.TokenValidator
	Health        *health.Handler
	Metrics       *middleware.HTTPMetrics
	Gatherer      prometheus.Gatherer
	CORS          middleware.CORSConfig
	RateLimiter   *middleware.RateLimiter // nil disables limiting
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	products := NewProductHandler(deps.Products, logger)
	reviews := NewReviewHandler(deps.Reviews, logger)
	emails := NewEmailHandler(deps.Notifications, logger)

	authenticated := func(r chi.Router) {
		r.Use(middleware.Auth(deps.ValidateToken))
		r.Use(middleware.RequestLogger(logger))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware(logger))
		}

		// Public
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(30))

			r.Get("/products", products.ListProducts)
			r.Get("/product/{id}", products.GetProduct)
			r.Get("/reviews", reviews.ListReviews)
			r.Get("/sizes", ListSizes)
		})

		// Any signed-in user
		r.Group(func(r chi.Router) {
			authenticated(r)

			r.Put("/product/stock", products.UpdateStock)
			r.Put("/product/{id}/stock", products.UpdateStock)
			r.Put("/review", reviews.UpsertReview)
			r.Delete("/reviews", reviews.DeleteReview)
		})

		// Administrators
		r.Group(func(r chi.Router) {
			authenticated(r)
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Post("/admin/product/new", products.CreateProduct)
			r.Get("/admin/products", products.ListAllProducts)
			r.Put("/admin/product/{id}", products.UpdateProduct)
			r.Delete("/admin/product/{id}", products.DeleteProduct)

			r.Post("/internal/emails/password-reset", emails.SendPasswordReset)
			r.Post("/internal/emails/order-status", emails.SendOrderStatus)
		})
	})

	return r
}
