// Package cloud talks to a folder-tagged image hosting API over HTTP.
package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/media"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const serviceName = "media-host"

// Config holds the API location and credentials.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type uploadRequest struct {
	File   string `json:"file"`
	Folder string `json:"folder"`
}

type uploadResponse struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

type destroyRequest struct {
	PublicID string `json:"public_id"`
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Host implements media.Host against the remote API.
type Host struct {
	doer    httpclient.Doer
	baseURL string
	header  http.Header
}

// New creates a host behind a circuit breaker. Requests are never retried.
func New(cfg Config, logger *slog.Logger) *Host {
	clientCfg := httpclient.DefaultConfig()
	clientCfg.MaxRetries = 0
	if cfg.Timeout > 0 {
		clientCfg.Timeout = cfg.Timeout
	}
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(clientCfg),
		httpclient.DefaultCircuitBreakerConfig(serviceName),
		logger,
	)
	return NewWithDoer(breaker, cfg.BaseURL, cfg.APIKey)
}

// NewWithDoer builds a host on any request executor.
func NewWithDoer(doer httpclient.Doer, baseURL, apiKey string) *Host {
	header := http.Header{}
	if apiKey != "" {
		header.Set("Authorization", "Bearer "+apiKey)
	}
	return &Host{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  header,
	}
}

// Upload posts the data URI to /upload.
func (h *Host) Upload(ctx context.Context, input *media.UploadInput) (*media.UploadResult, error) {
	var resp uploadResponse
	err := httpclient.DoJSON(ctx, h.doer, http.MethodPost, h.baseURL+"/upload", h.header,
		uploadRequest{File: input.Raw, Folder: input.Folder}, &resp, serviceName)
	if err != nil {
		return nil, err
	}
	if resp.PublicID == "" || resp.SecureURL == "" {
		return nil, fmt.Errorf("%s returned an incomplete upload response", serviceName)
	}
	return &media.UploadResult{ID: resp.PublicID, URL: resp.SecureURL}, nil
}

// Destroy posts the id to /destroy.
func (h *Host) Destroy(ctx context.Context, id string) error {
	var resp destroyResponse
	err := httpclient.DoJSON(ctx, h.doer, http.MethodPost, h.baseURL+"/destroy", h.header,
		destroyRequest{PublicID: id}, &resp, serviceName)
	if err != nil {
		return err
	}
	if resp.Result != "" && resp.Result != "ok" {
		return fmt.Errorf("%s destroy %s: %s", serviceName, id, resp.Result)
	}
	return nil
}
