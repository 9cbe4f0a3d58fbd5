// Package seed generates a deterministic demo catalog and loads it through a
// product repository.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// namespace keeps seeded product ids stable across runs.
var namespace = uuid.MustParse("6f1c2a8e-3d4b-4c5a-9e7f-0a1b2c3d4e5f")

type categoryDef struct {
	Name   string
	Weight float64 // share of total products
	Nouns  []string
	Low    float64
	High   float64
}

var categories = []categoryDef{
	{"Sneakers", 0.30, []string{"Runner", "Court Low", "Trail", "Retro High", "Knit"}, 59, 189},
	{"Boots", 0.20, []string{"Chelsea", "Hiking", "Combat", "Ankle", "Winter"}, 89, 259},
	{"Sandals", 0.15, []string{"Slide", "Strap", "Platform", "Flip Flop"}, 19, 79},
	{"Formal", 0.15, []string{"Oxford", "Derby", "Loafer", "Monk Strap"}, 99, 299},
	{"Kids", 0.10, []string{"Velcro Runner", "School Shoe", "Rain Boot"}, 29, 69},
	{"Sport", 0.10, []string{"Football Boot", "Basketball", "Tennis", "Training"}, 49, 219},
}

var adjectives = []string{
	"Classic", "Urban", "Lightweight", "Premium", "Everyday", "Vintage", "Waterproof", "Essential",
}

var colors = []string{"Black", "White", "Navy", "Olive", "Sand", "Burgundy", "Grey"}

var reviewers = []struct {
	ID   string
	Name string
}{
	{"seed-user-01", "Maria Petrova"},
	{"seed-user-02", "Georgi Ivanov"},
	{"seed-user-03", "Elena Dimitrova"},
	{"seed-user-04", "Nikolay Stoyanov"},
	{"seed-user-05", "Ivana Koleva"},
	{"seed-user-06", "Petar Georgiev"},
}

var reviewTitles = map[domain.Rating]string{
	1: "Disappointed",
	2: "Not great",
	3: "Okay for the price",
	4: "Very comfortable",
	5: "Love them",
}

// Options controls catalog generation.
type Options struct {
	Count    int
	Owner    string
	ImageURL string // prefix for placeholder image URLs
	Seed     int64
}

// Generate builds opts.Count products. The same options always yield the same
// catalog.
func Generate(opts Options) []domain.Product {
	rng := rand.New(rand.NewSource(opts.Seed))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	products := make([]domain.Product, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		cat := pickCategory(rng)
		noun := cat.Nouns[rng.Intn(len(cat.Nouns))]
		color := colors[rng.Intn(len(colors))]
		name := fmt.Sprintf("%s %s %s", adjectives[rng.Intn(len(adjectives))], noun, color)
		createdAt := base.Add(time.Duration(i) * time.Hour)

		id := uuid.NewSHA1(namespace, []byte(fmt.Sprintf("product:%d", i))).String()
		p := domain.Product{
			ID:          id,
			Name:        name,
			Description: fmt.Sprintf("%s in %s. %s upper with a cushioned insole.", noun, color, adjectives[rng.Intn(len(adjectives))]),
			Price:       math.Round((cat.Low+rng.Float64()*(cat.High-cat.Low))*100) / 100,
			Info:        fmt.Sprintf("Category: %s. Colour: %s.", cat.Name, color),
			Category:    cat.Name,
			Images:      images(opts.ImageURL, i, 1+rng.Intn(4)),
			Stock:       stock(rng),
			Reviews:     []domain.Review{},
			User:        opts.Owner,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
		addReviews(rng, &p)
		products = append(products, p)
	}
	return products
}

func pickCategory(rng *rand.Rand) categoryDef {
	r := rng.Float64()
	var acc float64
	for _, c := range categories {
		acc += c.Weight
		if r < acc {
			return c
		}
	}
	return categories[len(categories)-1]
}

func images(prefix string, index, n int) []domain.Image {
	out := make([]domain.Image, 0, n)
	for j := 0; j < n; j++ {
		id := fmt.Sprintf("Products/seed-%05d-%d", index, j)
		out = append(out, domain.Image{ProductID: id, URL: fmt.Sprintf("%s/%s.jpg", prefix, id)})
	}
	return out
}

func stock(rng *rand.Rand) domain.Stock {
	s := domain.Stock{}
	// A contiguous run of sizes, like a real size curve.
	start := rng.Intn(len(domain.Sizes) - 4)
	width := 3 + rng.Intn(len(domain.Sizes)-start-3)
	for _, size := range domain.Sizes[start : start+width] {
		s[size] = rng.Intn(50)
	}
	return s
}

func addReviews(rng *rand.Rand, p *domain.Product) {
	n := rng.Intn(len(reviewers) + 1)
	for _, who := range rng.Perm(len(reviewers))[:n] {
		rating := domain.Rating(2 + rng.Intn(4))
		if rng.Intn(10) == 0 {
			rating = 1
		}
		p.UpsertReview(domain.Review{
			ID:        uuid.NewSHA1(namespace, []byte(p.ID+":"+reviewers[who].ID)).String(),
			UserID:    reviewers[who].ID,
			Name:      reviewers[who].Name,
			Ratings:   rating,
			Title:     reviewTitles[rating],
			Comment:   fmt.Sprintf("%s. Fits true to size.", reviewTitles[rating]),
			Recommend: rating >= 3,
			CreatedAt: p.CreatedAt.Add(time.Duration(1+who) * 24 * time.Hour),
		})
	}
}

// Result summarises a Load run.
type Result struct {
	Replaced int
	Inserted int
}

// Load writes products through repo. Products from a previous run are deleted
// first so re-running is idempotent.
func Load(ctx context.Context, repo repository.ProductRepository, products []domain.Product, logger *slog.Logger) (Result, error) {
	var res Result
	for i := range products {
		p := &products[i]

		err := repo.Delete(ctx, p.ID)
		switch {
		case err == nil:
			res.Replaced++
		case !errors.Is(err, apperrors.ErrNotFound):
			return res, fmt.Errorf("delete seeded product %s: %w", p.ID, err)
		}

		if err := repo.Create(ctx, p); err != nil {
			return res, fmt.Errorf("insert product %s: %w", p.ID, err)
		}
		res.Inserted++

		if res.Inserted%500 == 0 {
			logger.InfoContext(ctx, "seed progress",
				slog.Int("inserted", res.Inserted),
				slog.Int("total", len(products)),
			)
		}
	}
	return res, nil
}
