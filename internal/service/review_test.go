package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newTestReviewService(repo *mockProductRepository) *ReviewService {
	return NewReviewService(repo, disabledProducer(), newTestLogger())
}

func reviewInput(userID string, rating domain.Rating) *UpsertReviewInput {
	return &UpsertReviewInput{
		ProductID: "prod-1",
		UserID:    userID,
		Name:      "User " + userID,
		Avatar:    "https://cdn.test/" + userID + ".png",
		Ratings:   rating,
		Title:     "Title",
		Comment:   "Comment",
	}
}

func TestUpsertReview_AggregatesAndDefaultsRecommend(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	product := sampleProduct()
	repo.On("GetByID", mock.Anything, "prod-1").Return(product, nil)
	repo.On("SaveReviews", mock.Anything, product).Return(nil).Twice()

	_, err := svc.UpsertReview(context.Background(), reviewInput("A", 4))
	require.NoError(t, err)
	got, err := svc.UpsertReview(context.Background(), reviewInput("B", 2))
	require.NoError(t, err)

	assert.Equal(t, 3.0, got.Ratings)
	assert.Equal(t, 2, got.NumOfReviews)
	require.Len(t, got.Reviews, 2)
	assert.True(t, got.Reviews[0].Recommend)
	assert.Equal(t, "User A", got.Reviews[0].Name)
	assert.Equal(t, "https://cdn.test/A.png", got.Reviews[0].Avatar)
	assert.NotEmpty(t, got.Reviews[0].ID)
	assert.False(t, got.Reviews[0].CreatedAt.IsZero())
	repo.AssertExpectations(t)
}

func TestUpsertReview_SecondReviewUpdatesInPlace(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	product := sampleProduct()
	repo.On("GetByID", mock.Anything, "prod-1").Return(product, nil)
	repo.On("SaveReviews", mock.Anything, product).Return(nil)

	first, err := svc.UpsertReview(context.Background(), reviewInput("A", 5))
	require.NoError(t, err)
	original := first.Reviews[0]

	in := reviewInput("A", 1)
	in.Comment = "changed my mind"
	in.Recommend = boolPtr(false)
	got, err := svc.UpsertReview(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, got.Reviews, 1)
	assert.Equal(t, original.ID, got.Reviews[0].ID)
	assert.Equal(t, original.CreatedAt, got.Reviews[0].CreatedAt)
	assert.Equal(t, "changed my mind", got.Reviews[0].Comment)
	assert.False(t, got.Reviews[0].Recommend)
	assert.Equal(t, 1.0, got.Ratings)
}

func TestUpsertReview_Validation(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	tests := []struct {
		name  string
		input *UpsertReviewInput
	}{
		{"missing product", &UpsertReviewInput{UserID: "A", Ratings: 3}},
		{"missing user", &UpsertReviewInput{ProductID: "prod-1", Ratings: 3}},
		{"rating too low", reviewInput("A", 0)},
		{"rating too high", reviewInput("A", 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpsertReview(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUpsertReview_ProductNotFound(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	repo.On("GetByID", mock.Anything, "prod-1").Return(nil, apperrors.NotFound("product", "prod-1"))

	_, err := svc.UpsertReview(context.Background(), reviewInput("A", 3))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpsertReview_SaveError(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewReviewService(repo, failingProducer(), newTestLogger())

	repo.On("GetByID", mock.Anything, "prod-1").Return(sampleProduct(), nil)
	repo.On("SaveReviews", mock.Anything, mock.Anything).Return(errors.New("write conflict"))

	_, err := svc.UpsertReview(context.Background(), reviewInput("A", 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save reviews")
}

func TestListReviews(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	product := sampleProduct()
	product.Reviews = nil
	repo.On("GetByID", mock.Anything, "prod-1").Return(product, nil)

	reviews, err := svc.ListReviews(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.NotNil(t, reviews)
	assert.Empty(t, reviews)

	_, err = svc.ListReviews(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestDeleteReview_RecomputesAggregates(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewReviewService(repo, failingProducer(), newTestLogger())

	product := sampleProduct()
	product.UpsertReview(domain.Review{ID: "rev-a", UserID: "A", Ratings: 4})
	product.UpsertReview(domain.Review{ID: "rev-b", UserID: "B", Ratings: 2})
	repo.On("GetByID", mock.Anything, "prod-1").Return(product, nil)
	repo.On("SaveReviews", mock.Anything, product).Return(nil).Once()

	got, err := svc.DeleteReview(context.Background(), "prod-1", "rev-a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, got.Ratings)
	assert.Equal(t, 1, got.NumOfReviews)
	assert.Equal(t, "rev-b", got.Reviews[0].ID)
	repo.AssertExpectations(t)
}

func TestDeleteReview_MissingReview(t *testing.T) {
	repo := new(mockProductRepository)
	svc := newTestReviewService(repo)

	repo.On("GetByID", mock.Anything, "prod-1").Return(sampleProduct(), nil)

	_, err := svc.DeleteReview(context.Background(), "prod-1", "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "SaveReviews", mock.Anything, mock.Anything)

	_, err = svc.DeleteReview(context.Background(), "prod-1", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
