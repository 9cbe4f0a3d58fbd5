package media

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ChunkSize bounds how many uploads run at once.
const ChunkSize = 3

// Ingestor validates data URIs and uploads them to a Host in chunks.
type Ingestor struct {
	host   Host
	folder string
	logger *slog.Logger
}

// NewIngestor creates an ingestor storing images under folder.
func NewIngestor(host Host, folder string, logger *slog.Logger) *Ingestor {
	if folder == "" {
		folder = DefaultFolder
	}
	return &Ingestor{host: host, folder: folder, logger: logger}
}

// Ingest uploads every data URI and returns one image reference per input,
// in input order. All payloads are validated before anything is uploaded.
// Chunks of ChunkSize upload concurrently; chunks run one after another and
// the first failure stops the call. Chunks already stored are kept.
func (i *Ingestor) Ingest(ctx context.Context, uris []string) ([]domain.Image, error) {
	payloads := make([]*Payload, len(uris))
	for idx, uri := range uris {
		p, err := ParseDataURI(uri)
		if err != nil {
			return nil, err
		}
		payloads[idx] = p
	}

	images := make([]domain.Image, len(payloads))
	for start := 0; start < len(payloads); start += ChunkSize {
		end := min(start+ChunkSize, len(payloads))

		g, gctx := errgroup.WithContext(ctx)
		for idx := start; idx < end; idx++ {
			p := payloads[idx]
			g.Go(func() error {
				res, err := i.host.Upload(gctx, &UploadInput{
					Folder:      i.folder,
					ContentType: p.ContentType,
					Data:        p.Data,
					Raw:         p.Raw,
				})
				if err != nil {
					return fmt.Errorf("upload image %d: %w", idx, err)
				}
				images[idx] = domain.Image{ProductID: res.ID, URL: res.URL}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			i.logger.ErrorContext(ctx, "image upload failed",
				slog.Int("chunk_start", start),
				slog.String("error", err.Error()),
			)
			return nil, apperrors.Upstream("media host", err)
		}
	}

	i.logger.DebugContext(ctx, "images ingested",
		slog.Int("count", len(images)),
		slog.String("folder", i.folder),
	)
	return images, nil
}

// DestroyAll removes the given remote images one at a time, stopping at the
// first failure.
func (i *Ingestor) DestroyAll(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := i.host.Destroy(ctx, id); err != nil {
			i.logger.ErrorContext(ctx, "image destroy failed",
				slog.String("image_id", id),
				slog.String("error", err.Error()),
			)
			return apperrors.Upstream("media host", fmt.Errorf("destroy image %s: %w", id, err))
		}
	}
	return nil
}
