// Package registry implements the concept normalization registry: a cached,
// versioned view of the concept maps and value sets published for each tenant
// and data element.
//
// The registry keeps an immutable snapshot of the manifest and its item
// caches. When a lookup finds the snapshot older than its freshness floor it
// reloads the manifest once, replacing every cache; a failed reload keeps the
// previous snapshot and retries on the next lookup.
package registry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/cache"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/service"
)

// CacheKey identifies one computed registry item.
type CacheKey struct {
	Kind        EntryKind
	DataElement string
	TenantID    string
	ProfileURL  string
}

func (k CacheKey) String() string {
	return string(k.Kind) + "|" + k.DataElement + "|" + k.TenantID + "|" + k.ProfileURL
}

type snapshot struct {
	entries    []ManifestEntry
	loadedAt   time.Time
	generation uint64
	degraded   bool
	// forcedTo is the future force floor this load was made for. It
	// satisfies that floor even though loadedAt lies before it.
	forcedTo time.Time

	conceptMaps *cache.Cache[CacheKey, *ConceptMapItem]
	valueSets   *cache.Cache[CacheKey, *ValueSetItem]
}

func (s *snapshot) freshAt(floor time.Time) bool {
	if s == nil || s.loadedAt.IsZero() {
		return false
	}
	return !s.loadedAt.Before(floor) || (!s.forcedTo.IsZero() && !s.forcedTo.Before(floor))
}

// itemFloor caps floor at the load time, so items computed from this
// snapshot count as fresh for a future force floor.
func (s *snapshot) itemFloor(floor time.Time) time.Time {
	if floor.After(s.loadedAt) {
		return s.loadedAt
	}
	return floor
}

// Registry resolves tenant codes to canonical concepts.
type Registry struct {
	loader  service.DocumentLoader
	opts    *normalizer.Options
	log     zerolog.Logger
	metrics *normalizer.Metrics

	snap       atomic.Pointer[snapshot]
	reloadMu   sync.Mutex
	generation atomic.Uint64
	group      singleflight.Group

	evalMu     sync.RWMutex
	evaluators service.Evaluators
}

// New creates a registry reading documents through loader. A FHIRPath
// depends-on evaluator is registered for every supported resource type.
// Nothing is loaded until the first lookup.
func New(loader service.DocumentLoader, opts ...normalizer.Option) *Registry {
	o := normalizer.ApplyOptions(opts...)
	r := &Registry{
		loader:     loader,
		opts:       o,
		log:        o.Logger.With().Str("component", "registry").Logger(),
		metrics:    o.Metrics,
		evaluators: make(service.Evaluators),
	}
	for _, rt := range fhir.SupportedResourceTypes() {
		r.evaluators[rt] = service.NewFHIRPathEvaluator(rt)
	}
	return r
}

// RegisterEvaluator replaces the depends-on evaluator for e's resource type.
func (r *Registry) RegisterEvaluator(e service.DependencyEvaluator) {
	r.evalMu.Lock()
	defer r.evalMu.Unlock()
	r.evaluators[e.ResourceType()] = e
}

func (r *Registry) evaluator(resourceType string) (service.DependencyEvaluator, bool) {
	r.evalMu.RLock()
	defer r.evalMu.RUnlock()
	return r.evaluators.For(resourceType)
}

func (r *Registry) now() time.Time {
	return r.opts.Clock()
}

// floor returns the oldest acceptable load time: force when given,
// otherwise now minus the TTL. A force floor in the future causes one reload,
// after which that snapshot satisfies it.
func (r *Registry) floor(force *time.Time) time.Time {
	if force != nil {
		return *force
	}
	return r.now().Add(-r.opts.CacheTTL)
}

// current returns a snapshot loaded no earlier than floor, reloading at most
// once per stale window. Reload failures are logged, not returned.
func (r *Registry) current(ctx context.Context, floor time.Time) *snapshot {
	if s := r.snap.Load(); s.freshAt(floor) {
		return s
	}

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	if s := r.snap.Load(); s.freshAt(floor) {
		return s
	}
	s, _ := r.reloadLocked(context.WithoutCancel(ctx), floor)
	return s
}

// Reload loads the manifest now, replacing every cache on success.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
	_, err := r.reloadLocked(ctx, time.Time{})
	return err
}

func (r *Registry) reloadLocked(ctx context.Context, floor time.Time) (*snapshot, error) {
	prev := r.snap.Load()
	start := r.now()

	data, err := r.loader.FetchManifest(ctx)
	var entries []ManifestEntry
	if err == nil {
		entries, err = ParseManifest(data, r.log)
	}
	if err != nil {
		r.metrics.RecordReload(false)
		next := &snapshot{degraded: true}
		if prev != nil {
			next.entries = prev.entries
			next.generation = prev.generation
			next.conceptMaps = prev.conceptMaps
			next.valueSets = prev.valueSets
		} else {
			next.generation = r.generation.Add(1)
			next.conceptMaps = cache.New[CacheKey, *ConceptMapItem](0)
			next.valueSets = cache.New[CacheKey, *ValueSetItem](0)
		}
		r.snap.Store(next)
		r.log.Error().Err(err).
			Int("entries_retained", len(next.entries)).
			Msg("registry reload failed, keeping previous manifest")
		return next, fmt.Errorf("reloading registry manifest: %w", err)
	}

	next := &snapshot{
		entries:     entries,
		loadedAt:    r.now(),
		generation:  r.generation.Add(1),
		conceptMaps: cache.New[CacheKey, *ConceptMapItem](0),
		valueSets:   cache.New[CacheKey, *ValueSetItem](0),
	}
	if floor.After(next.loadedAt) {
		next.forcedTo = floor
	}
	r.snap.Store(next)
	r.metrics.RecordReload(true)
	r.log.Info().
		Int("entries", len(entries)).
		Uint64("generation", next.generation).
		Dur("duration", r.now().Sub(start)).
		Msg("registry manifest loaded")
	return next, nil
}

// lookupItem serves key from c, computing it once when missing or stored
// before floor. A degraded snapshot serves whatever it still holds.
//
// The computation is shared by every caller waiting on key, so it runs
// detached from any one caller's cancellation. Each caller still stops
// waiting when its own ctx is done.
func lookupItem[V any](ctx context.Context, r *Registry, s *snapshot, c *cache.Cache[CacheKey, V], key CacheKey, floor time.Time, compute func(context.Context) (V, error)) (V, error) {
	var (
		v  V
		ok bool
	)
	if s.degraded {
		v, ok = c.Get(key)
	} else {
		v, ok = c.GetFresh(key, floor)
	}
	if ok {
		r.metrics.RecordCacheHit()
		return v, nil
	}
	r.metrics.RecordCacheMiss()

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.FormatUint(s.generation, 10)+"|"+key.String(), func() (any, error) {
		if item, ok := c.GetFresh(key, floor); ok {
			return item, nil
		}
		item, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.SetAt(key, item, r.now())
		r.metrics.RecordItemComputed()
		return item, nil
	})

	select {
	case <-ctx.Done():
		return v, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, res.Err
		}
		return res.Val.(V), nil
	}
}

func (r *Registry) conceptMapItem(ctx context.Context, tenant, element string, force *time.Time) (*ConceptMapItem, error) {
	floor := r.floor(force)
	s := r.current(ctx, floor)
	floor = s.itemFloor(floor)
	key := CacheKey{Kind: KindConceptMap, DataElement: element, TenantID: tenant}
	return lookupItem(ctx, r, s, s.conceptMaps, key, floor, func(ctx context.Context) (*ConceptMapItem, error) {
		return r.computeConceptMap(ctx, s.entries, key)
	})
}

func (r *Registry) valueSetItem(ctx context.Context, element, profileURL string, force *time.Time) (*ValueSetItem, error) {
	floor := r.floor(force)
	s := r.current(ctx, floor)
	floor = s.itemFloor(floor)
	key := CacheKey{Kind: KindValueSet, DataElement: element, ProfileURL: profileURL}
	return lookupItem(ctx, r, s, s.valueSets, key, floor, func(ctx context.Context) (*ValueSetItem, error) {
		return r.computeValueSet(ctx, s.entries, key)
	})
}

// computeConceptMap merges every concept-map entry for the element that
// serves the tenant, tenant-specific and global alike.
func (r *Registry) computeConceptMap(ctx context.Context, entries []ManifestEntry, key CacheKey) (*ConceptMapItem, error) {
	item := newConceptMapItem()
	var urls []string

	for _, e := range entries {
		if e.Kind != KindConceptMap || e.DataElement != key.DataElement || !e.appliesTo(key.TenantID) {
			continue
		}
		item.Metadata = append(item.Metadata, e.Metadata)
		if e.SourceExtensionURL != "" && !containsString(urls, e.SourceExtensionURL) {
			urls = append(urls, e.SourceExtensionURL)
		}

		part := newConceptMapItem()
		data, err := r.loader.FetchPayload(ctx, e.Filename)
		if err == nil {
			err = parseConceptMap(data, part)
		}
		if err != nil {
			r.payloadFailure(e, err)
			continue
		}
		item.merge(part)
	}

	if len(urls) > 1 {
		return nil, &InconsistentExtensionError{Tenant: key.TenantID, Element: key.DataElement, URLs: urls}
	}
	if len(urls) == 1 {
		item.SourceExtensionURL = urls[0]
	}
	return item, nil
}

// computeValueSet uses the first value-set entry for the element and profile.
func (r *Registry) computeValueSet(ctx context.Context, entries []ManifestEntry, key CacheKey) (*ValueSetItem, error) {
	item := &ValueSetItem{}
	var chosen *ManifestEntry

	for i := range entries {
		e := &entries[i]
		if e.Kind != KindValueSet || e.DataElement != key.DataElement || e.ProfileURL != key.ProfileURL {
			continue
		}
		if chosen != nil {
			r.log.Warn().
				Str("element", key.DataElement).
				Str("profile", key.ProfileURL).
				Str("ignored", e.Filename).
				Str("used", chosen.Filename).
				Msg("duplicate value set entry")
			continue
		}
		chosen = e
	}
	if chosen == nil {
		return item, nil
	}

	item.Metadata = []normalizer.Metadata{chosen.Metadata}
	data, err := r.loader.FetchPayload(ctx, chosen.Filename)
	if err == nil {
		item.Codes, err = parseValueSet(data)
	}
	if err != nil {
		r.payloadFailure(*chosen, err)
		item.Codes = nil
	}
	return item, nil
}

func (r *Registry) payloadFailure(e ManifestEntry, err error) {
	r.metrics.RecordPayloadFailure()
	r.log.Warn().Err(err).
		Str("filename", e.Filename).
		Str("element", e.DataElement).
		Str("kind", string(e.Kind)).
		Msg("no data for registry payload")
}

// Entries returns the current manifest entries, loading them if needed.
func (r *Registry) Entries(ctx context.Context) []ManifestEntry {
	s := r.current(ctx, r.floor(nil))
	out := make([]ManifestEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Stats describes the registry state.
type Stats struct {
	LoadedAt    time.Time           `json:"loadedAt"`
	Entries     int                 `json:"entries"`
	Generation  uint64              `json:"generation"`
	Degraded    bool                `json:"degraded"`
	ConceptMaps cache.Stats         `json:"conceptMaps"`
	ValueSets   cache.Stats         `json:"valueSets"`
	Metrics     normalizer.Snapshot `json:"metrics"`
}

// Stats returns the state of the current snapshot without loading.
func (r *Registry) Stats() Stats {
	st := Stats{Metrics: r.metrics.Snapshot()}
	if s := r.snap.Load(); s != nil {
		st.LoadedAt = s.loadedAt
		st.Entries = len(s.entries)
		st.Generation = s.generation
		st.Degraded = s.degraded
		st.ConceptMaps = s.conceptMaps.Stats()
		st.ValueSets = s.valueSets.Stats()
	}
	return st
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
