// Package mongo stores products as documents with embedded reviews.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CollectionName is the collection holding product documents.
const CollectionName = "products"

// ProductRepository implements repository.ProductRepository on MongoDB.
type ProductRepository struct {
	collection *mongo.Collection
}

// NewProductRepository creates a repository on db's products collection.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{collection: db.Collection(CollectionName)}
}

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// Create inserts a new product document.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "CreateProduct", "insert products")
	defer func() { end(err) }()

	if p.Images == nil {
		p.Images = []domain.Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	if _, err = r.collection.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict(fmt.Sprintf("product %s already exists", p.ID))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "GetProduct", "find products")
	defer func() { end(err) }()

	var p domain.Product
	if err = r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

// List returns one page of matching products and the matching count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "ListProducts", "find products")
	defer func() { end(err) }()

	query := buildFilter(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	cursor, err := r.collection.Find(ctx, query, findOptions(filter))
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []domain.Product{}
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, int(total), nil
}

// ListAll returns every product, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "ListAllProducts", "find products")
	defer func() { end(err) }()

	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []domain.Product{}
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// Count returns the number of product documents.
func (r *ProductRepository) Count(ctx context.Context) (_ int, err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "CountProducts", "count products")
	defer func() { end(err) }()

	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return int(n), nil
}

// Update sets the editable fields and images.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	images := p.Images
	if images == nil {
		images = []domain.Image{}
	}
	return r.set(ctx, "UpdateProduct", p.ID, bson.M{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"info":        p.Info,
		"category":    p.Category,
		"images":      images,
		"stock":       p.Stock,
		"updated_at":  p.UpdatedAt,
	})
}

// UpdateStock sets only the stock field.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, stock domain.Stock) error {
	return r.set(ctx, "UpdateProductStock", id, bson.M{
		"stock":      stock,
		"updated_at": time.Now().UTC(),
	})
}

// SaveReviews sets the reviews and derived rating fields.
func (r *ProductRepository) SaveReviews(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	reviews := p.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return r.set(ctx, "SaveProductReviews", p.ID, bson.M{
		"reviews":        reviews,
		"ratings":        p.Ratings,
		"num_of_reviews": p.NumOfReviews,
		"updated_at":     p.UpdatedAt,
	})
}

// Delete removes a product document.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, "DeleteProduct", "delete products")
	defer func() { end(err) }()

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func (r *ProductRepository) set(ctx context.Context, op, id string, fields bson.M) (err error) {
	ctx, end := database.TraceOperation(ctx, database.SystemMongo, op, "update products")
	defer func() { end(err) }()

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// buildFilter translates a listing filter into a query document.
func buildFilter(f repository.ProductFilter) bson.M {
	query := bson.M{}
	if f.Keyword != "" {
		query["name"] = bson.M{"$regex": regexp.QuoteMeta(f.Keyword), "$options": "i"}
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	price := bson.M{}
	if f.PriceGTE != nil {
		price["$gte"] = *f.PriceGTE
	}
	if f.PriceLTE != nil {
		price["$lte"] = *f.PriceLTE
	}
	if len(price) > 0 {
		query["price"] = price
	}
	if f.RatingsGTE != nil {
		query["ratings"] = bson.M{"$gte": *f.RatingsGTE}
	}
	return query
}

func findOptions(f repository.ProductFilter) *options.FindOptions {
	limit := f.PerPage
	if limit <= 0 {
		limit = 6
	}
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(limit))
}
