package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
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

// UpsertReview handles PUT /api/v1/review
func (h *ReviewHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	var req UpsertReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := &service.UpsertReviewInput{
		ProductID: req.ProductID,
		Ratings:   *req.Ratings,
		Title:     req.Title,
		Comment:   req.Comment,
		Recommend: req.Recommend,
	}
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		input.UserID = c.UserID
		input.Name = c.Name
		input.Avatar = c.Avatar
	}

	product, err := h.service.UpsertReview(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"ratings":      product.Ratings,
		"numOfReviews": product.NumOfReviews,
	})
}

// ListReviews handles GET /api/v1/reviews?id={productId}
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"reviews": reviews})
}

// DeleteReview handles DELETE /api/v1/reviews?productId={productId}&id={reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	product, err := h.service.DeleteReview(r.Context(), q.Get("productId"), q.Get("id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"ratings":      product.Ratings,
		"numOfReviews": product.NumOfReviews,
	})
}
