package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func float64Ptr(f float64) *float64 { return &f }

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter repository.ProductFilter
		want   bson.M
	}{
		{name: "empty", filter: repository.ProductFilter{}, want: bson.M{}},
		{
			name:   "keyword is escaped and case-insensitive",
			filter: repository.ProductFilter{Keyword: "air.max"},
			want:   bson.M{"name": bson.M{"$regex": `air\.max`, "$options": "i"}},
		},
		{
			name: "price range and ratings",
			filter: repository.ProductFilter{
				Category:   "Running",
				PriceGTE:   float64Ptr(10),
				PriceLTE:   float64Ptr(99),
				RatingsGTE: float64Ptr(4),
			},
			want: bson.M{
				"category": "Running",
				"price":    bson.M{"$gte": 10.0, "$lte": 99.0},
				"ratings":  bson.M{"$gte": 4.0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestFindOptions_Pagination(t *testing.T) {
	opts := findOptions(repository.ProductFilter{Page: 3, PerPage: 6})
	require.NotNil(t, opts.Skip)
	require.NotNil(t, opts.Limit)
	assert.Equal(t, int64(12), *opts.Skip)
	assert.Equal(t, int64(6), *opts.Limit)

	opts = findOptions(repository.ProductFilter{})
	assert.Equal(t, int64(0), *opts.Skip)
	assert.Equal(t, int64(6), *opts.Limit)
}

func TestProductRepository_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	created := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "storefront.products", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "prod-1"},
			{Key: "name", Value: "Runner"},
			{Key: "price", Value: 129.9},
			{Key: "ratings", Value: 4.5},
			{Key: "stock", Value: bson.D{{Key: "40", Value: 3}}},
			{Key: "num_of_reviews", Value: 2},
			{Key: "created_at", Value: created},
		}))

		p, err := repo.GetByID(context.Background(), "prod-1")
		require.NoError(mt, err)
		assert.Equal(mt, "Runner", p.Name)
		assert.Equal(mt, 4.5, p.Ratings)
		assert.Equal(mt, domain.Stock{40: 3}, p.Stock)
		assert.Equal(mt, 2, p.NumOfReviews)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.products", mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})

	mt.Run("create", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p := &domain.Product{ID: "prod-2", Name: "Trail", Stock: domain.Stock{42: 1}}
		require.NoError(mt, repo.Create(context.Background(), p))
		assert.NotNil(mt, p.Images)
		assert.NotNil(mt, p.Reviews)
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "acknowledged", Value: true}, {Key: "n", Value: 0}})

		err := repo.Delete(context.Background(), "missing")
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})

	mt.Run("update stock", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 1}, {Key: "nModified", Value: 1}})

		require.NoError(mt, repo.UpdateStock(context.Background(), "prod-1", domain.Stock{40: 1}))
	})

	mt.Run("save reviews on missing product", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		err := repo.SaveReviews(context.Background(), &domain.Product{ID: "missing"})
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})
}
