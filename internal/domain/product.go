package domain

import (
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MaxPrice bounds product prices to eight integer digits.
const MaxPrice = 99_999_999

// Image is a stored reference to an image on the media host.
type Image struct {
	// ProductID holds the media host's identifier for the image.
	ProductID string `json:"product_id" bson:"product_id"`
	URL       string `json:"url" bson:"url"`
}

// Product is the catalog aggregate root. It exclusively owns its reviews.
type Product struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description" bson:"description"`
	Price        float64   `json:"price" bson:"price"`
	Info         string    `json:"info" bson:"info"`
	Category     string    `json:"category" bson:"category"`
	Ratings      float64   `json:"ratings" bson:"ratings"`
	Images       []Image   `json:"images" bson:"images"`
	Stock        Stock     `json:"Stock" bson:"stock"`
	NumOfReviews int       `json:"numOfReviews" bson:"num_of_reviews"`
	Reviews      []Review  `json:"reviews" bson:"reviews"`
	User         string    `json:"user" bson:"user"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Validate checks the fields an administrator supplies.
func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return apperrors.InvalidInput("Please Enter product name")
	case p.Description == "":
		return apperrors.InvalidInput("Please Enter product description")
	case p.Info == "":
		return apperrors.InvalidInput("Please Enter product info")
	case p.Category == "":
		return apperrors.InvalidInput("Please enter Product Category")
	case p.Price < 0 || p.Price > MaxPrice:
		return apperrors.InvalidInput("Price cannot exceed 8 digits")
	case p.User == "":
		return apperrors.InvalidInput("product owner is required")
	}
	return p.Stock.Validate()
}

// ImageIDs returns the media host identifiers of the product's images.
func (p *Product) ImageIDs() []string {
	ids := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		ids = append(ids, img.ProductID)
	}
	return ids
}
