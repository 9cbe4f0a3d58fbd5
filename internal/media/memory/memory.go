package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/media"
)

type entry struct {
	Folder      string
	ContentType string
	Size        int
	URL         string
}

// Host implements media.Host in memory. It keeps metadata only, never bytes.
type Host struct {
	mu      sync.RWMutex
	files   map[string]*entry
	baseURL string
}

// New creates an in-memory host serving URLs under baseURL.
func New(baseURL string) *Host {
	return &Host{
		files:   make(map[string]*entry),
		baseURL: baseURL,
	}
}

// Upload records the image and returns a generated id and URL.
func (h *Host) Upload(_ context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	id := fmt.Sprintf("%s/%s", input.Folder, uuid.New().String())
	url := fmt.Sprintf("%s/%s%s", h.baseURL, id, media.Extension(input.ContentType))

	h.mu.Lock()
	h.files[id] = &entry{
		Folder:      input.Folder,
		ContentType: input.ContentType,
		Size:        len(input.Data),
		URL:         url,
	}
	h.mu.Unlock()

	return &media.UploadResult{ID: id, URL: url}, nil
}

// Destroy forgets the image.
func (h *Host) Destroy(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.files[id]; !ok {
		return fmt.Errorf("image not found: %s", id)
	}
	delete(h.files, id)
	return nil
}

// Has reports whether an image with id is stored.
func (h *Host) Has(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.files[id]
	return ok
}

// Len returns the number of stored images.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.files)
}
