package normalizer

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/gofhir/normalizer/pkg/logger"
)

// DefaultCacheTTL is how long a loaded registry manifest is trusted before it
// is reloaded.
const DefaultCacheTTL = 12 * time.Hour

// DefaultManifestFile is the registry manifest filename used when none is configured.
const DefaultManifestFile = "manifest.json"

// Option configures the registry and the mapping engine.
type Option func(*Options)

// Options holds all configuration for the registry and the mapping engine.
type Options struct {
	// Registry
	ManifestFile string
	CacheTTL     time.Duration

	// Performance
	WorkerCount int

	// Clock returns the current time. Tests replace it to move time forward.
	Clock func() time.Time

	// Metrics receives registry and engine counters. Nil disables recording.
	Metrics *Metrics

	// Logger receives reload, payload and fallback events.
	Logger zerolog.Logger
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		ManifestFile: DefaultManifestFile,
		CacheTTL:     DefaultCacheTTL,
		WorkerCount:  runtime.NumCPU(),
		Clock:        time.Now,
		Logger:       logger.Default(),
	}
}

// ApplyOptions returns the default options with opts applied in order.
func ApplyOptions(opts ...Option) *Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithManifestFile sets the registry manifest filename.
func WithManifestFile(name string) Option {
	return func(o *Options) {
		if name != "" {
			o.ManifestFile = name
		}
	}
}

// WithCacheTTL sets how long a loaded manifest is considered fresh.
// Non-positive values keep the default.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl > 0 {
			o.CacheTTL = ttl
		}
	}
}

// WithCacheTTLHours is WithCacheTTL expressed in whole hours.
func WithCacheTTLHours(hours int) Option {
	return WithCacheTTL(time.Duration(hours) * time.Hour)
}

// WithWorkerCount sets the number of workers for batch normalization.
func WithWorkerCount(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.WorkerCount = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.Metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
