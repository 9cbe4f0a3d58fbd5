package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MaxStockPerSize caps the count held for any single size.
const MaxStockPerSize = 9999

// Stock maps each size to the number of pairs on hand.
type Stock map[Size]int

// ParseStock reads stock from either a JSON object or a JSON string holding
// an encoded object, as multipart forms send it.
func ParseStock(raw []byte) (Stock, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, apperrors.InvalidInput("Stock is required")
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, apperrors.InvalidInput("invalid Stock format")
		}
		raw = []byte(inner)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperrors.InvalidInput("invalid Stock format")
	}

	stock := make(Stock, len(fields))
	for key, val := range fields {
		size, err := ParseSize(key)
		if err != nil {
			return nil, err
		}
		n, err := parseCount(val)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid quantity for size %s", key))
		}
		stock[size] = n
	}
	if err := stock.Validate(); err != nil {
		return nil, err
	}
	return stock, nil
}

// parseCount accepts 3 or "3".
func parseCount(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// Validate checks every key is a known size and every count is in range.
func (s Stock) Validate() error {
	if len(s) == 0 {
		return apperrors.InvalidInput("Please enter sizes and quantities")
	}
	for size, n := range s {
		if !size.Valid() {
			return apperrors.InvalidInput(fmt.Sprintf("size %d is not offered", size))
		}
		if n < 0 {
			return apperrors.InvalidInput(fmt.Sprintf("stock for size %d cannot be negative", size))
		}
		if n > MaxStockPerSize {
			return apperrors.InvalidInput(fmt.Sprintf("stock for size %d cannot exceed %d", size, MaxStockPerSize))
		}
	}
	return nil
}

// Total returns the number of pairs across all sizes.
func (s Stock) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// SortedSizes returns the stocked sizes in ascending order.
func (s Stock) SortedSizes() []Size {
	out := make([]Size, 0, len(s))
	for size := range s {
		out = append(out, size)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnmarshalJSON accepts both wire shapes handled by ParseStock. A JSON null
// leaves the stock unset so optional fields can be omitted that way.
func (s *Stock) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	parsed, err := ParseStock(data)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
