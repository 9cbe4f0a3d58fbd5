package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// Kafka topics published by the catalog.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
	TopicReviewUpserted = pkgkafka.Topic("review", "upserted")
	TopicReviewDeleted  = pkgkafka.Topic("review", "deleted")
)

// Aggregate types.
const (
	AggregateTypeProduct = "product"
	AggregateTypeReview  = "review"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Price    float64        `json:"price"`
	Images   []domain.Image `json:"images"`
	Stock    domain.Stock   `json:"stock"`
	User     string         `json:"user"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewData is the payload for review events. Ratings and NumOfReviews are
// the product aggregates after the change.
type ReviewData struct {
	ProductID    string  `json:"product_id"`
	ReviewID     string  `json:"review_id"`
	UserID       string  `json:"user_id"`
	Rating       int     `json:"rating"`
	Ratings      float64 `json:"ratings"`
	NumOfReviews int     `json:"num_of_reviews"`
}

// Producer publishes catalog events to Kafka. A Producer without a Kafka
// producer drops every event, so services can run with Kafka disabled.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Price:    p.Price,
		Images:   p.Images,
		Stock:    p.Stock,
		User:     p.User,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct, ProductDeletedData{ID: id})
}

// PublishReviewUpserted publishes a review.upserted event.
func (p *Producer) PublishReviewUpserted(ctx context.Context, product *domain.Product, review domain.Review) error {
	return p.publish(ctx, TopicReviewUpserted, product.ID, AggregateTypeReview, reviewData(product, review))
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, product *domain.Product, review domain.Review) error {
	return p.publish(ctx, TopicReviewDeleted, product.ID, AggregateTypeReview, reviewData(product, review))
}

func reviewData(p *domain.Product, r domain.Review) ReviewData {
	return ReviewData{
		ProductID:    p.ID,
		ReviewID:     r.ID,
		UserID:       r.UserID,
		Rating:       int(r.Ratings),
		Ratings:      p.Ratings,
		NumOfReviews: p.NumOfReviews,
	}
}

// Review events are keyed by product so they stay ordered per product.
func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
