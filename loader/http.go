package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofhir/normalizer/service"
)

// ErrDocumentTooLarge is returned when a document exceeds the size limit.
var ErrDocumentTooLarge = errors.New("document too large")

// HTTP loads registry documents from a bucket exposed over HTTP.
// Documents are fetched from <baseURL>/<name>.
type HTTP struct {
	httpClient   *http.Client
	baseURL      string
	manifestFile string
	maxSize      int64
}

// NewHTTP creates a loader for baseURL.
func NewHTTP(baseURL string, opts ...Option) *HTTP {
	o := newOptions(opts)
	return &HTTP{
		httpClient:   o.httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		manifestFile: o.manifestFile,
		maxSize:      o.maxSize,
	}
}

// FetchManifest downloads the manifest document.
func (h *HTTP) FetchManifest(ctx context.Context) ([]byte, error) {
	return h.get(ctx, h.manifestFile)
}

// FetchPayload downloads a payload document.
func (h *HTTP) FetchPayload(ctx context.Context, name string) ([]byte, error) {
	return h.get(ctx, name)
}

func (h *HTTP) get(ctx context.Context, name string) ([]byte, error) {
	u := h.baseURL + "/" + escapePath(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", service.ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: HTTP %d", name, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if int64(len(data)) > h.maxSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrDocumentTooLarge, name, h.maxSize)
	}
	return data, nil
}

func escapePath(name string) string {
	parts := strings.Split(strings.TrimLeft(name, "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ service.DocumentLoader = (*HTTP)(nil)
