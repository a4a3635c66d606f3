package loader

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/normalizer/pkg/logger"
)

const (
	// DefaultManifestFile is the manifest document name.
	DefaultManifestFile = "manifest.json"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultTable is the Postgres table holding registry documents.
	DefaultTable = "normalization_documents"

	// DefaultMaxDocumentSize caps a single document fetched over HTTP.
	DefaultMaxDocumentSize = 64 << 20
)

type options struct {
	manifestFile string
	httpClient   *http.Client
	table        string
	maxSize      int64
	logger       zerolog.Logger
}

// Option configures a loader.
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{
		manifestFile: DefaultManifestFile,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		table:        DefaultTable,
		maxSize:      DefaultMaxDocumentSize,
		logger:       logger.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithManifestFile sets the manifest document name.
func WithManifestFile(name string) Option {
	return func(o *options) {
		if name != "" {
			o.manifestFile = name
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.httpClient.Timeout = timeout
	}
}

// WithTable sets the Postgres table name.
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithMaxDocumentSize sets the largest document the HTTP loader accepts.
func WithMaxDocumentSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}
