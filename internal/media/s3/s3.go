// Package s3 stores product images in an S3-compatible bucket.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/media"
)

// API is the subset of the S3 client the host uses.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds bucket and endpoint settings.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, e.g. LocalStack or MinIO
	AccessKey string
	SecretKey string
	// PublicURL prefixes object keys to form image URLs.
	PublicURL string
}

// Host implements media.Host on an S3 bucket. Object keys double as remote ids.
type Host struct {
	client    API
	bucket    string
	publicURL string
}

// New builds an S3 client from cfg. Static credentials are used when set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config) (*Host, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithClient(client, cfg.Bucket, cfg.PublicURL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, bucket, publicURL string) *Host {
	return &Host{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Upload puts the image at <folder>/<uuid><ext>.
func (h *Host) Upload(ctx context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	key := fmt.Sprintf("%s/%s%s", input.Folder, uuid.New().String(), media.Extension(input.ContentType))

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(input.Data),
		ContentType:   aws.String(input.ContentType),
		ContentLength: aws.Int64(int64(len(input.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &media.UploadResult{
		ID:  key,
		URL: h.publicURL + "/" + key,
	}, nil
}

// Destroy deletes the object.
func (h *Host) Destroy(ctx context.Context, id string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", id, err)
	}
	return nil
}
