package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Rating is a review score. It decodes from a JSON number or a numeric string
// holding a whole number.
type Rating int

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return apperrors.InvalidInput("ratings must be a number")
	}
	if math.IsInf(f, 0) || f != math.Trunc(f) {
		return apperrors.InvalidInput("ratings must be a whole number")
	}
	*r = Rating(f)
	return nil
}

// Review is one user's review, embedded in its product.
type Review struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"userId" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	Avatar    string    `json:"avatar" bson:"avatar"`
	Ratings   Rating    `json:"ratings" bson:"ratings"`
	Title     string    `json:"title" bson:"title"`
	Comment   string    `json:"comment" bson:"comment"`
	Recommend bool      `json:"recommend" bson:"recommend"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// UpsertReview overwrites the caller's existing review or appends r as a new
// one, then recomputes Ratings and NumOfReviews. An existing review keeps its
// ID, author details and CreatedAt. It returns the stored review and whether
// it was newly added.
func (p *Product) UpsertReview(r Review) (Review, bool) {
	defer p.RecomputeRatings()

	for i := range p.Reviews {
		if p.Reviews[i].UserID != r.UserID {
			continue
		}
		existing := &p.Reviews[i]
		existing.Ratings = r.Ratings
		existing.Comment = r.Comment
		existing.Recommend = r.Recommend
		existing.Title = r.Title
		return *existing, false
	}

	p.Reviews = append(p.Reviews, r)
	return r, true
}

// DeleteReview removes the review with the given ID and recomputes the
// aggregates.
func (p *Product) DeleteReview(reviewID string) (Review, error) {
	for i, r := range p.Reviews {
		if r.ID != reviewID {
			continue
		}
		p.Reviews = append(p.Reviews[:i:i], p.Reviews[i+1:]...)
		p.RecomputeRatings()
		return r, nil
	}
	return Review{}, apperrors.NotFound("review", reviewID)
}

// RecomputeRatings sets NumOfReviews to the review count and Ratings to the
// plain mean of review ratings, or 0 when there are none.
func (p *Product) RecomputeRatings() {
	p.NumOfReviews = len(p.Reviews)
	if p.NumOfReviews == 0 {
		p.Ratings = 0
		return
	}
	total := 0.0
	for _, r := range p.Reviews {
		total += float64(r.Ratings)
	}
	p.Ratings = total / float64(p.NumOfReviews)
}
