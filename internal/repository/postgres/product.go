package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const productColumns = `id, name, description, price, info, category, ratings, images, stock,
		num_of_reviews, reviews, user_id, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Images, stock and reviews live in JSONB columns on the product row.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	images, stock, reviews, err := encodeDocuments(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.Info,
		p.Category,
		p.Ratings,
		images,
		stock,
		p.NumOfReviews,
		reviews,
		p.User,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("product %s already exists", p.ID))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, err
	}
	return p, nil
}

// List returns products matching the given filter with the filtered count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+escapeLike(filter.Keyword)+"%")
		argIndex++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.PriceGTE != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.PriceGTE)
		argIndex++
	}

	if filter.PriceLTE != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.PriceLTE)
		argIndex++
	}

	if filter.RatingsGTE != nil {
		conditions = append(conditions, fmt.Sprintf("ratings >= $%d", argIndex))
		args = append(args, *filter.RatingsGTE)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// count(*) OVER() returns the filtered total alongside the page.
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 6
	}
	filterArgs := args
	args = append(args[:len(args):len(args)], limit, filter.Offset())

	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	totalCount := 0
	for rows.Next() {
		p, err := scanProduct(rows, &totalCount)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	// Past the last page the window count has no row to ride on.
	if len(products) == 0 && filter.Offset() > 0 {
		rows.Close()
		countQuery := "SELECT count(*) FROM products " + whereClause
		if err := r.pool.QueryRow(ctx, countQuery, filterArgs...).Scan(&totalCount); err != nil {
			return nil, 0, fmt.Errorf("count filtered products: %w", err)
		}
	}

	return products, totalCount, nil
}

// ListAll returns every product, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) (_ []domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	ctx, end := database.TraceQuery(ctx, "ListAllProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Count returns the total number of products.
func (r *ProductRepository) Count(ctx context.Context) (_ int, err error) {
	query := `SELECT count(*) FROM products`

	ctx, end := database.TraceQuery(ctx, "CountProducts", query)
	defer func() { end(err) }()

	var n int
	if err = r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Update modifies the editable columns of an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	images, stock, _, err := encodeDocuments(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, info = $4, category = $5,
		    images = $6, stock = $7, updated_at = $8
		WHERE id = $9`

	ctx, end := database.TraceQuery(ctx, "UpdateProduct", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Description,
		p.Price,
		p.Info,
		p.Category,
		images,
		stock,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// UpdateStock replaces the stock column.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock domain.Stock) (err error) {
	stockJSON, err := json.Marshal(stock)
	if err != nil {
		return fmt.Errorf("marshal stock: %w", err)
	}

	query := `UPDATE products SET stock = $1, updated_at = $2 WHERE id = $3`

	ctx, end := database.TraceQuery(ctx, "UpdateProductStock", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, stockJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// SaveReviews writes reviews, ratings and num_of_reviews without touching
// the rest of the row.
func (r *ProductRepository) SaveReviews(ctx context.Context, p *domain.Product) (err error) {
	reviews, err := json.Marshal(nonNilReviews(p.Reviews))
	if err != nil {
		return fmt.Errorf("marshal reviews: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET reviews = $1, ratings = $2, num_of_reviews = $3, updated_at = $4
		WHERE id = $5`

	ctx, end := database.TraceQuery(ctx, "SaveProductReviews", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, reviews, p.Ratings, p.NumOfReviews, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("save product reviews: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func encodeDocuments(p *domain.Product) (images, stock, reviews []byte, err error) {
	if images, err = json.Marshal(nonNilImages(p.Images)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	if stock, err = json.Marshal(p.Stock); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal stock: %w", err)
	}
	if reviews, err = json.Marshal(nonNilReviews(p.Reviews)); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return images, stock, reviews, nil
}

// scanProduct reads one product row. Extra destinations, such as a window
// count, are scanned after the product columns.
func scanProduct(row pgx.Row, extra ...any) (*domain.Product, error) {
	var p domain.Product
	var imagesJSON, stockJSON, revsJSON []byte

	dest := []any{
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Info,
		&p.Category,
		&p.Ratings,
		&imagesJSON,
		&stockJSON,
		&p.NumOfReviews,
		&revsJSON,
		&p.User,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.Images = []domain.Image{}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}

	// Decode into the plain map type so stored empty stock is tolerated.
	var stock map[domain.Size]int
	if len(stockJSON) > 0 {
		if err := json.Unmarshal(stockJSON, &stock); err != nil {
			return nil, fmt.Errorf("unmarshal stock: %w", err)
		}
	}
	p.Stock = domain.Stock(stock)

	p.Reviews = []domain.Review{}
	if len(revsJSON) > 0 {
		if err := json.Unmarshal(revsJSON, &p.Reviews); err != nil {
			return nil, fmt.Errorf("unmarshal reviews: %w", err)
		}
	}

	return &p, nil
}

func nonNilImages(in []domain.Image) []domain.Image {
	if in == nil {
		return []domain.Image{}
	}
	return in
}

func nonNilReviews(in []domain.Review) []domain.Review {
	if in == nil {
		return []domain.Review{}
	}
	return in
}

// escapeLike escapes ILIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
