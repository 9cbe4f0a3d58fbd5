package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func float64Ptr(f float64) *float64 { return &f }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var productColumnNames = []string{
	"id", "name", "description", "price", "info", "category", "ratings", "images", "stock",
	"num_of_reviews", "reviews", "user_id", "created_at", "updated_at",
}

var productColumnNamesWithCount = append(append([]string{}, productColumnNames...), "total_count")

func sampleProduct() domain.Product {
	return domain.Product{
		ID:           "prod-1",
		Name:         "Runner",
		Description:  "Lightweight running shoe",
		Price:        129.9,
		Info:         "Mesh upper",
		Category:     "Running",
		Ratings:      4,
		Images:       []domain.Image{{ProductID: "Products/a", URL: "https://cdn/a.png"}},
		Stock:        domain.Stock{40: 3, 42: 1},
		NumOfReviews: 1,
		Reviews: []domain.Review{{
			ID: "rev-1", UserID: "user-1", Name: "Ana", Ratings: 4,
			Title: "Good", Comment: "Comfortable", Recommend: true, CreatedAt: now,
		}},
		User:      "admin-1",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func productRow(p domain.Product) []any {
	images, _ := json.Marshal(p.Images)
	stock, _ := json.Marshal(p.Stock)
	reviews, _ := json.Marshal(p.Reviews)
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.Info, p.Category, p.Ratings,
		images, stock, p.NumOfReviews, reviews, p.User, p.CreatedAt, p.UpdatedAt,
	}
}

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	images, _ := json.Marshal(p.Images)
	stock, _ := json.Marshal(p.Stock)
	reviews, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Description, p.Price, p.Info, p.Category, p.Ratings,
			images, stock, p.NumOfReviews, reviews, p.User, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_NilCollectionsStoredAsEmptyArrays(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	p.Images = nil
	p.Reviews = nil
	stock, _ := json.Marshal(p.Stock)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Description, p.Price, p.Info, p.Category, p.Ratings,
			[]byte("[]"), stock, p.NumOfReviews, []byte("[]"), p.User, p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectExec("INSERT INTO products").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(productRow(p)...))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Stock, got.Stock)
	assert.Equal(t, p.Images, got.Images)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, domain.Rating(4), got.Reviews[0].Ratings)
	assert.Equal(t, "Ana", got.Reviews[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_Defaults(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	row := append(productRow(p), 9)

	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs(6, 0). // limit, offset
		WillReturnRows(pgxmock.NewRows(productColumnNamesWithCount).AddRow(row...))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{Page: 1})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 9, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_WithFilters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	row := append(productRow(p), 1)

	filter := repository.ProductFilter{
		Keyword:    "run_50%",
		Category:   "Running",
		PriceGTE:   float64Ptr(50),
		PriceLTE:   float64Ptr(200),
		RatingsGTE: float64Ptr(3),
		Page:       3,
		PerPage:    6,
	}

	// name ILIKE $1, category=$2, price>=$3, price<=$4, ratings>=$5, LIMIT $6 OFFSET $7
	mock.ExpectQuery(`SELECT .+ FROM products WHERE name ILIKE \$1 AND category = \$2 AND price >= \$3 AND price <= \$4 AND ratings >= \$5`).
		WithArgs(`%run\_50\%%`, "Running", 50.0, 200.0, 3.0, 6, 12).
		WillReturnRows(pgxmock.NewRows(productColumnNamesWithCount).AddRow(row...))

	products, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_EmptyPage(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs(6, 0).
		WillReturnRows(pgxmock.NewRows(productColumnNamesWithCount))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.Zero(t, total)
}

func TestProductRepository_List_PastLastPageKeepsFilteredCount(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE category = \$1`).
		WithArgs("Running", 6, 12).
		WillReturnRows(pgxmock.NewRows(productColumnNamesWithCount))
	mock.ExpectQuery(`SELECT count\(\*\) FROM products WHERE category = \$1`).
		WithArgs("Running").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(5))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Category: "Running",
		Page:     3,
		PerPage:  6,
	})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 5, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListAllAndCount(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(productRow(p)...).AddRow(productRow(p)...))
	mock.ExpectQuery(`SELECT count\(\*\) FROM products`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	all, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	images, _ := json.Marshal(p.Images)
	stock, _ := json.Marshal(p.Stock)

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Description, p.Price, p.Info, p.Category, images, stock,
			pgxmock.AnyArg(), // updated_at is set inside Update
			p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), &p))
	assert.True(t, p.UpdatedAt.After(now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectExec("UPDATE products").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &p)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdateStock(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("UPDATE products SET stock").
		WithArgs([]byte(`{"38":5}`), pgxmock.AnyArg(), "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE products SET stock").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.UpdateStock(context.Background(), "prod-1", domain.Stock{38: 5}))
	err := repo.UpdateStock(context.Background(), "missing", domain.Stock{38: 5})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveReviews(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	p.Reviews = nil
	p.RecomputeRatings()

	mock.ExpectExec("UPDATE products SET reviews").
		WithArgs([]byte("[]"), 0.0, 0, pgxmock.AnyArg(), p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SaveReviews(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products WHERE").
		WithArgs("prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM products WHERE").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "prod-1"))
	err := repo.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
}
