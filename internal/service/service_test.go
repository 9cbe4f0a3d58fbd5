package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/media"
	"github.com/utafrali/storefront/internal/media/memory"
	"github.com/utafrali/storefront/internal/repository"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// --- Mock Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) UpdateStock(ctx context.Context, id string, stock domain.Stock) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

func (m *mockProductRepository) SaveReviews(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Kafka writer that always fails ---

type brokenWriter struct{}

func (brokenWriter) WriteMessages(context.Context, ...kafka.Message) error {
	return errors.New("broker unavailable")
}

func (brokenWriter) Close() error { return nil }

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// disabledProducer drops every event.
func disabledProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}

// failingProducer fails every publish.
func failingProducer() *event.Producer {
	logger := newTestLogger()
	return event.NewProducer(pkgkafka.NewProducerWithWriter(brokenWriter{}, nil, logger), logger)
}

func newTestProductService(repo *mockProductRepository, host media.Host) *ProductService {
	logger := newTestLogger()
	return NewProductService(repo, media.NewIngestor(host, media.DefaultFolder, logger), disabledProducer(), logger)
}

func pngURI(body string) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte(body))
}

func strPtr(s string) *string {
	return &s
}

func float64Ptr(f float64) *float64 {
	return &f
}

func boolPtr(b bool) *bool {
	return &b
}

func sampleProduct() *domain.Product {
	return &domain.Product{
		ID:          "prod-1",
		Name:        "Runner",
		Description: "Light running shoe",
		Info:        "Mesh upper",
		Category:    "Shoes",
		Price:       120,
		Stock:       domain.Stock{40: 3, 42: 1},
		User:        "admin-1",
		Images:      []domain.Image{},
		Reviews:     []domain.Review{},
	}
}

// seededHost returns a memory host holding one uploaded image per name and
// the matching references.
func seededHost(t *testing.T, n int) (*memory.Host, []domain.Image) {
	t.Helper()
	host := memory.New("https://cdn.test")
	images := make([]domain.Image, 0, n)
	for i := 0; i < n; i++ {
		res, err := host.Upload(context.Background(), &media.UploadInput{Folder: media.DefaultFolder, ContentType: "image/png", Data: []byte{1}})
		if err != nil {
			t.Fatal(err)
		}
		images = append(images, domain.Image{ProductID: res.ID, URL: res.URL})
	}
	return host, images
}
