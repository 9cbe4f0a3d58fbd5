package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// UpsertReviewInput holds the parameters for creating or updating a review.
// The author fields come from the authenticated caller.
type UpsertReviewInput struct {
	ProductID string
	UserID    string
	Name      string
	Avatar    string
	Ratings   domain.Rating
	Title     string
	Comment   string
	Recommend *bool
}

// ReviewService implements the business logic for review operations.
type ReviewService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// UpsertReview stores the caller's review of a product, replacing the one
// they wrote before if any. Concurrent writes to one product are last writer
// wins.
func (s *ReviewService) UpsertReview(ctx context.Context, input *UpsertReviewInput) (*domain.Product, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("productId is required")
	}
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user is required")
	}
	if input.Ratings < MinRating || input.Ratings > MaxRating {
		return nil, apperrors.InvalidInput(fmt.Sprintf("ratings must be between %d and %d", MinRating, MaxRating))
	}

	product, err := s.repo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	recommend := true
	if input.Recommend != nil {
		recommend = *input.Recommend
	}

	review, created := product.UpsertReview(domain.Review{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		Name:      input.Name,
		Avatar:    input.Avatar,
		Ratings:   input.Ratings,
		Title:     input.Title,
		Comment:   input.Comment,
		Recommend: recommend,
		CreatedAt: time.Now().UTC(),
	})

	if err := s.repo.SaveReviews(ctx, product); err != nil {
		return nil, fmt.Errorf("save reviews: %w", err)
	}

	if err := s.producer.PublishReviewUpserted(ctx, product, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.upserted event",
			slog.String("product_id", product.ID),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review saved",
		slog.String("product_id", product.ID),
		slog.String("review_id", review.ID),
		slog.Bool("created", created),
		slog.Float64("ratings", product.Ratings),
	)

	return product, nil
}

// ListReviews returns the reviews of a product.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for reviews: %w", err)
	}
	if product.Reviews == nil {
		return []domain.Review{}, nil
	}
	return product.Reviews, nil
}

// DeleteReview removes a review from a product and recomputes its ratings.
// Only the reviews and the derived fields are written.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	if productID == "" || reviewID == "" {
		return nil, apperrors.InvalidInput("productId and id are required")
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for review delete: %w", err)
	}

	review, err := product.DeleteReview(reviewID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveReviews(ctx, product); err != nil {
		return nil, fmt.Errorf("save reviews: %w", err)
	}

	if err := s.producer.PublishReviewDeleted(ctx, product, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("product_id", product.ID),
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("product_id", product.ID),
		slog.String("review_id", reviewID),
		slog.Int("num_of_reviews", product.NumOfReviews),
	)

	return product, nil
}
