package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func validProduct() Product {
	return Product{
		ID:          "prod-1",
		Name:        "Runner",
		Description: "Lightweight running shoe",
		Price:       129.9,
		Info:        "Mesh upper",
		Category:    "Running",
		Stock:       Stock{40: 3, 42: 1},
		User:        "admin-1",
	}
}

func TestSizes_CoverClosedRange(t *testing.T) {
	require.Len(t, Sizes, 17)
	assert.Equal(t, MinSize, Sizes[0])
	assert.Equal(t, MaxSize, Sizes[len(Sizes)-1])
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    Size
		wantErr bool
	}{
		{input: "32", want: 32},
		{input: "48", want: 48},
		{input: " 40 ", want: 40},
		{input: "31", wantErr: true},
		{input: "49", wantErr: true},
		{input: "41.5", wantErr: true},
		{input: "XL", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStock(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Stock
		wantErr bool
	}{
		{name: "object", input: `{"40":3,"42":1}`, want: Stock{40: 3, 42: 1}},
		{name: "encoded string", input: `"{\"40\":3,\"42\":1}"`, want: Stock{40: 3, 42: 1}},
		{name: "string counts", input: `{"36":"5"}`, want: Stock{36: 5}},
		{name: "zero count", input: `{"44":0}`, want: Stock{44: 0}},
		{name: "fractional size", input: `{"41.5":1}`, wantErr: true},
		{name: "size out of range", input: `{"50":1}`, wantErr: true},
		{name: "over cap", input: `{"40":10000}`, wantErr: true},
		{name: "negative", input: `{"40":-1}`, wantErr: true},
		{name: "empty", input: `{}`, wantErr: true},
		{name: "null", input: `null`, wantErr: true},
		{name: "malformed string", input: `"not json"`, wantErr: true},
		{name: "array", input: `[1,2]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStock([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, apperrors.HTTPStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStock_JSONRoundTripUsesSizeKeys(t *testing.T) {
	var body struct {
		Stock Stock `json:"Stock"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"Stock":"{\"38\":2}"}`), &body))
	assert.Equal(t, Stock{38: 2}, body.Stock)

	out, err := json.Marshal(body.Stock)
	require.NoError(t, err)
	assert.JSONEq(t, `{"38":2}`, string(out))
}

func TestStock_UnmarshalNullLeavesUnset(t *testing.T) {
	var body struct {
		Stock Stock `json:"Stock"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"Stock":null}`), &body))
	assert.Nil(t, body.Stock)

	// An empty object is still rejected.
	require.Error(t, json.Unmarshal([]byte(`{"Stock":{}}`), &body))
}

func TestStock_TotalAndSortedSizes(t *testing.T) {
	s := Stock{44: 1, 36: 2, 40: 3}
	assert.Equal(t, 6, s.Total())
	assert.Equal(t, []Size{36, 40, 44}, s.SortedSizes())
}

func TestProduct_Validate(t *testing.T) {
	p := validProduct()
	require.NoError(t, p.Validate())

	p.Name = "   "
	assert.Error(t, p.Validate())

	p = validProduct()
	p.Price = MaxPrice + 1
	assert.Error(t, p.Validate())

	p = validProduct()
	p.Stock = Stock{55: 1}
	assert.Error(t, p.Validate())
}

func TestProduct_ImageIDs(t *testing.T) {
	p := Product{Images: []Image{{ProductID: "a", URL: "u1"}, {ProductID: "b", URL: "u2"}}}
	assert.Equal(t, []string{"a", "b"}, p.ImageIDs())
}

func TestRating_UnmarshalCoercesStrings(t *testing.T) {
	var r Rating
	require.NoError(t, json.Unmarshal([]byte(`"4"`), &r))
	assert.Equal(t, Rating(4), r)

	require.NoError(t, json.Unmarshal([]byte(`5`), &r))
	assert.Equal(t, Rating(5), r)

	assert.Error(t, json.Unmarshal([]byte(`"five"`), &r))
}

func TestRating_RejectsFractions(t *testing.T) {
	for _, input := range []string{`"4.9"`, `4.5`, `"1e400"`} {
		var r Rating
		err := json.Unmarshal([]byte(input), &r)
		require.Error(t, err, input)
		assert.Equal(t, 400, apperrors.HTTPStatus(err), input)
		assert.Zero(t, r, input)
	}

	var r Rating
	require.NoError(t, json.Unmarshal([]byte(`"3.0"`), &r))
	assert.Equal(t, Rating(3), r)
}

func TestUpsertReview_AggregatesMean(t *testing.T) {
	p := validProduct()

	_, created := p.UpsertReview(Review{ID: "r-a", UserID: "A", Ratings: 4})
	assert.True(t, created)
	_, created = p.UpsertReview(Review{ID: "r-b", UserID: "B", Ratings: 2})
	assert.True(t, created)

	assert.Equal(t, 3.0, p.Ratings)
	assert.Equal(t, 2, p.NumOfReviews)

	_, err := p.DeleteReview("r-a")
	require.NoError(t, err)
	assert.Equal(t, 2.0, p.Ratings)
	assert.Equal(t, 1, p.NumOfReviews)
}

func TestUpsertReview_UpdatesInPlace(t *testing.T) {
	p := validProduct()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p.UpsertReview(Review{
		ID: "r-1", UserID: "A", Name: "Ana", Ratings: 5, Title: "Great",
		Comment: "Fits well", Recommend: true, CreatedAt: created,
	})

	got, isNew := p.UpsertReview(Review{
		ID: "r-2", UserID: "A", Name: "Other", Ratings: 1, Title: "Meh",
		Comment: "Fell apart", Recommend: false, CreatedAt: created.Add(time.Hour),
	})

	assert.False(t, isNew)
	require.Len(t, p.Reviews, 1)
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, Rating(1), got.Ratings)
	assert.Equal(t, "Meh", got.Title)
	assert.Equal(t, "Fell apart", got.Comment)
	assert.False(t, got.Recommend)
	assert.Equal(t, 1.0, p.Ratings)
}

func TestUpsertReview_RawMeanWithoutRounding(t *testing.T) {
	p := validProduct()
	p.UpsertReview(Review{ID: "1", UserID: "A", Ratings: 5})
	p.UpsertReview(Review{ID: "2", UserID: "B", Ratings: 4})
	p.UpsertReview(Review{ID: "3", UserID: "C", Ratings: 4})
	assert.InDelta(t, 13.0/3.0, p.Ratings, 1e-12)
}

func TestDeleteReview_LastReviewZeroesRatings(t *testing.T) {
	p := validProduct()
	p.UpsertReview(Review{ID: "only", UserID: "A", Ratings: 3})

	_, err := p.DeleteReview("only")
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Ratings)
	assert.Equal(t, 0, p.NumOfReviews)
	assert.Empty(t, p.Reviews)
}

func TestDeleteReview_NotFound(t *testing.T) {
	p := validProduct()
	p.UpsertReview(Review{ID: "r-1", UserID: "A", Ratings: 3})

	_, err := p.DeleteReview("missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, 1, p.NumOfReviews)
}
