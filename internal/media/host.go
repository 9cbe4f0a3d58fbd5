// Package media turns inline data-URI images into references stored on a
// remote media host.
package media

import (
	"context"
	"fmt"
)

// DefaultFolder is the folder tag product images are stored under.
const DefaultFolder = "Products"

// Host defines the operations a remote media host must provide.
type Host interface {
	// Upload stores an image under the given folder and returns its remote
	// identifier and public URL.
	Upload(ctx context.Context, input *UploadInput) (*UploadResult, error)

	// Destroy removes the image with the given remote identifier.
	Destroy(ctx context.Context, id string) error
}

// UploadInput holds a decoded image ready for upload.
type UploadInput struct {
	Folder      string
	ContentType string
	Data        []byte
	// Raw is the original data URI, for hosts that accept it as-is.
	Raw string
}

// UploadResult is what the host returns for a stored image.
type UploadResult struct {
	ID  string
	URL string
}

// Extension maps an image MIME type to a file extension.
func Extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/avif":
		return ".avif"
	case "image/svg":
		return ".svg"
	default:
		return fmt.Sprintf(".%s", contentType[len("image/"):])
	}
}
