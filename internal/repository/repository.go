package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductFilter narrows a catalog listing. Nil bounds are not applied.
type ProductFilter struct {
	Keyword    string
	Category   string
	PriceGTE   *float64
	PriceLTE   *float64
	RatingsGTE *float64
	Page       int
	PerPage    int
}

// Offset returns the number of rows skipped before the requested page.
func (f ProductFilter) Offset() int {
	if f.Page <= 1 || f.PerPage <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product, with its reviews, by identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns one page of products matching the filter along with the
	// number of products that match it.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListAll returns every product, unfiltered.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// Count returns the number of products in the store.
	Count(ctx context.Context) (int, error)

	// Update replaces the administrator-editable fields and images.
	Update(ctx context.Context, product *domain.Product) error

	// UpdateStock replaces only the stock of a product.
	UpdateStock(ctx context.Context, id string, stock domain.Stock) error

	// SaveReviews persists reviews and the derived rating fields only.
	SaveReviews(ctx context.Context, product *domain.Product) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error
}
