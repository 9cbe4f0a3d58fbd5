// Package cache puts a Redis read-through cache in front of product reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

const keyPrefix = "product:"

// ProductRepository wraps a repository.ProductRepository and caches single
// product reads. Every write through it evicts the product's key. Cache
// failures are logged and fall through to the wrapped store.
type ProductRepository struct {
	repository.ProductRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

// NewProductRepository wraps next with a cache entry lifetime of ttl.
func NewProductRepository(next repository.ProductRepository, client redis.Cmdable, ttl time.Duration, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		ProductRepository: next,
		client:            client,
		ttl:               ttl,
		logger:            logger,
	}
}

// cachedProduct reads Stock as a plain map so empty stored stock, which the
// request-side decoder rejects, still round-trips.
type cachedProduct struct {
	*domain.Product
	Stock map[domain.Size]int `json:"Stock"`
}

func decodeProduct(data []byte) (*domain.Product, error) {
	c := cachedProduct{Product: &domain.Product{}}
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.Product.Stock = domain.Stock(c.Stock)
	return c.Product, nil
}

// GetByID serves from Redis when possible and fills it on a miss.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	key := keyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if p, err := decodeProduct(data); err == nil {
			return p, nil
		}
		r.logger.WarnContext(ctx, "discarding undecodable cached product", slog.String("product_id", id))
	case !errors.Is(err, redis.Nil):
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	p, err := r.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.WarnContext(ctx, "product cache write failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// Update writes through and evicts.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	defer r.evict(ctx, p.ID)
	return r.ProductRepository.Update(ctx, p)
}

// UpdateStock writes through and evicts.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock domain.Stock) error {
	defer r.evict(ctx, id)
	return r.ProductRepository.UpdateStock(ctx, id, stock)
}

// SaveReviews writes through and evicts.
func (r *ProductRepository) SaveReviews(ctx context.Context, p *domain.Product) error {
	defer r.evict(ctx, p.ID)
	return r.ProductRepository.SaveReviews(ctx, p)
}

// Delete writes through and evicts.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	defer r.evict(ctx, id)
	return r.ProductRepository.Delete(ctx, id)
}

func (r *ProductRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache evict failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}
