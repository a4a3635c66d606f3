package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/config"
	"github.com/gofhir/normalizer/loader"
	"github.com/gofhir/normalizer/registry"
	"github.com/gofhir/normalizer/rules"
	"github.com/gofhir/normalizer/service"
	"github.com/gofhir/normalizer/walker"
)

// app is the wired normalizer stack.
type app struct {
	registry *registry.Registry
	engine   *walker.Mapper
	metrics  *normalizer.Metrics
	workers  int
	closers  []func()
}

// Close releases the document sources.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp builds the loader chain, registry and mapping engine from cfg.
// profiles are element=profileURL pairs.
func newApp(ctx context.Context, cfg *config.Config, profiles []string, log zerolog.Logger) (*app, error) {
	ruleOpts, err := profileOptions(profiles)
	if err != nil {
		return nil, err
	}

	a := &app{metrics: normalizer.NewMetrics()}
	opts := []normalizer.Option{
		normalizer.WithLogger(log),
		normalizer.WithMetrics(a.metrics),
		normalizer.WithCacheTTL(cfg.CacheTTL()),
		normalizer.WithManifestFile(cfg.ManifestFile),
		normalizer.WithWorkerCount(cfg.WorkerCount),
	}
	resolved := normalizer.ApplyOptions(opts...)
	a.workers = resolved.WorkerCount

	docs, err := a.documentLoader(ctx, cfg, resolved.ManifestFile, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = registry.New(docs, opts...)

	r := rules.New(a.registry, ruleOpts...)
	a.engine = walker.New(r.ResourceMappers(), r.ElementMappers(), opts...)
	return a, nil
}

func (a *app) documentLoader(ctx context.Context, cfg *config.Config, manifestFile string, log zerolog.Logger) (service.DocumentLoader, error) {
	opts := []loader.Option{
		loader.WithManifestFile(manifestFile),
		loader.WithLogger(log),
	}

	var docs service.DocumentLoader
	switch cfg.Source {
	case config.SourceDir:
		docs = loader.NewDir(cfg.SourceDir, opts...)
	case config.SourceHTTP:
		docs = loader.NewHTTP(cfg.SourceURL, append(opts, loader.WithTimeout(cfg.HTTPTimeoutDuration()))...)
	case config.SourcePostgres:
		pool, err := loader.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		docs = loader.NewPostgres(pool, append(opts, loader.WithTable(cfg.SourceTable))...)
	default:
		return nil, fmt.Errorf("unknown registry source %q", cfg.Source)
	}

	// overlay documents shadow the source's
	if cfg.OverlayDir != "" {
		docs = service.NewDocumentChain(loader.NewDir(cfg.OverlayDir, opts...), docs)
	}

	if cfg.MirrorPath == "" {
		return docs, nil
	}
	mirror, err := loader.OpenMirror(docs, cfg.MirrorPath, opts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() {
		if err := mirror.Close(); err != nil {
			log.Warn().Err(err).Msg("closing registry mirror")
		}
	})
	return mirror, nil
}

// profileOptions parses element=profileURL pairs.
func profileOptions(pairs []string) ([]rules.Option, error) {
	opts := make([]rules.Option, 0, len(pairs))
	for _, p := range pairs {
		element, url, ok := strings.Cut(p, "=")
		element, url = strings.TrimSpace(element), strings.TrimSpace(url)
		if !ok || element == "" || url == "" {
			return nil, fmt.Errorf("profile %q: want element=profileURL", p)
		}
		opts = append(opts, rules.WithProfile(element, url))
	}
	return opts, nil
}
