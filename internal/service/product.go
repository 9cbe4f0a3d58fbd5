package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/media"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ResultPerPage is the fixed page size of the public product listing.
const ResultPerPage = 6

// ProductService implements the business logic for product operations.
type ProductService struct {
	repo     repository.ProductRepository
	images   *media.Ingestor
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, images *media.Ingestor, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		images:   images,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string
	Description string
	Info        string
	Category    string
	Price       float64
	Images      []string
	Stock       domain.Stock
	UserID      string
}

// UpdateProductInput holds the parameters for updating a product. Nil fields
// are left unchanged; a non-empty Images replaces every stored image.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Info        *string
	Category    *string
	Price       *float64
	Images      []string
	Stock       domain.Stock
}

// ProductListResult is one page of the public listing.
type ProductListResult struct {
	Products             []domain.Product
	ProductsCount        int
	ResultPerPage        int
	FilteredProductCount int
}

// CreateProduct validates the input, uploads its images and stores the product.
// Nothing is uploaded when the product fields are invalid.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Info:        input.Info,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		User:        input.UserID,
		Images:      []domain.Image{},
		Reviews:     []domain.Review{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	images, err := s.images.Ingest(ctx, input.Images)
	if err != nil {
		return nil, fmt.Errorf("ingest product images: %w", err)
	}
	product.Images = images

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.Int("images", len(product.Images)),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// ListProducts returns one page of products matching filter. The page size is
// always ResultPerPage.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter) (*ProductListResult, error) {
	page := pagination.New(filter.Page, ResultPerPage)
	filter.Page = page.Page
	filter.PerPage = page.PerPage

	if filter.PriceGTE != nil && filter.PriceLTE != nil && *filter.PriceGTE > *filter.PriceLTE {
		return nil, apperrors.InvalidInput("price[gte] must not exceed price[lte]")
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	products, filtered, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &ProductListResult{
		Products:             products,
		ProductsCount:        total,
		ResultPerPage:        ResultPerPage,
		FilteredProductCount: filtered,
	}, nil
}

// ListAllProducts returns every product for the admin listing.
func (s *ProductService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}

// UpdateProduct applies partial updates to an existing product. When new
// images are given, the old ones are removed from the media host one by one
// before the new ones are uploaded.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Info != nil {
		product.Info = *input.Info
	}
	if input.Category != nil {
		product.Category = *input.Category
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.Stock != nil {
		product.Stock = input.Stock
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	if len(input.Images) > 0 {
		// Reject malformed images before the old ones are destroyed.
		for _, uri := range input.Images {
			if _, err := media.ParseDataURI(uri); err != nil {
				return nil, err
			}
		}
		if err := s.images.DestroyAll(ctx, product.ImageIDs()); err != nil {
			return nil, fmt.Errorf("remove previous images: %w", err)
		}
		images, err := s.images.Ingest(ctx, input.Images)
		if err != nil {
			return nil, fmt.Errorf("ingest product images: %w", err)
		}
		product.Images = images
	}

	product.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.publishUpdated(ctx, product)

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.Bool("images_replaced", len(input.Images) > 0),
	)

	return product, nil
}

// UpdateStock replaces the stock of a product.
func (s *ProductService) UpdateStock(ctx context.Context, id string, stock domain.Stock) (*domain.Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	if err := stock.Validate(); err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for stock update: %w", err)
	}

	if err := s.repo.UpdateStock(ctx, id, stock); err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	product.Stock = stock

	s.publishUpdated(ctx, product)

	s.logger.InfoContext(ctx, "product stock updated",
		slog.String("product_id", id),
		slog.Int("total", stock.Total()),
	)

	return product, nil
}

// DeleteProduct removes a product's images from the media host and then the
// product itself.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.images.DestroyAll(ctx, product.ImageIDs()); err != nil {
		return fmt.Errorf("remove product images: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
		slog.Int("images", len(product.Images)),
	)

	return nil
}

func (s *ProductService) publishUpdated(ctx context.Context, product *domain.Product) {
	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}
}
