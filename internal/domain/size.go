package domain

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Size is a shoe size from the closed catalog range.
type Size int

const (
	MinSize Size = 32
	MaxSize Size = 48
)

// Sizes lists every valid size in ascending order.
var Sizes = func() []Size {
	out := make([]Size, 0, MaxSize-MinSize+1)
	for s := MinSize; s <= MaxSize; s++ {
		out = append(out, s)
	}
	return out
}()

// Valid reports whether s belongs to Sizes.
func (s Size) Valid() bool {
	return s >= MinSize && s <= MaxSize
}

func (s Size) String() string {
	return strconv.Itoa(int(s))
}

// ParseSize parses a stock key such as "42".
func ParseSize(raw string) (Size, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.InvalidInput(fmt.Sprintf("invalid size %q", raw))
	}
	s := Size(n)
	if !s.Valid() {
		return 0, apperrors.InvalidInput(fmt.Sprintf("size %d is not offered, sizes run %d-%d", n, MinSize, MaxSize))
	}
	return s, nil
}
