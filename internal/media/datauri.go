package media

import (
	"encoding/base64"
	"regexp"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var dataURIPattern = regexp.MustCompile(`^data:(image/\w+);base64,(.+)$`)

// ErrInvalidImage is returned for any payload that is not a base64 image data URI.
var ErrInvalidImage = apperrors.InvalidInput("invalid image")

// Payload is a decoded data URI.
type Payload struct {
	ContentType string
	Data        []byte
	Raw         string
}

// ParseDataURI decodes "data:image/<kind>;base64,<body>".
func ParseDataURI(uri string) (*Payload, error) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return nil, ErrInvalidImage
	}
	return &Payload{ContentType: m[1], Data: data, Raw: uri}, nil
}
