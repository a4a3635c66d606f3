package normalizer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks registry and mapping counters using lock-free atomic operations.
// All methods are safe for concurrent use and are no-ops on a nil receiver.
type Metrics struct {
	// Registry lookups
	lookupsTotal atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64

	// Registry loading
	reloadsTotal    atomic.Uint64
	reloadFailures  atomic.Uint64
	itemsComputed   atomic.Uint64
	payloadFailures atomic.Uint64

	// Resource mapping
	resourcesMapped atomic.Uint64
	resourcesFailed atomic.Uint64
	mappingTimeNs   atomic.Uint64
	mappingTimeMax  atomic.Uint64

	// Issue counts by severity
	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64

	// Per data element lookup counts
	elements sync.Map // map[string]*elementMetrics
}

type elementMetrics struct {
	lookups atomic.Uint64
	misses  atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// --- Recording Methods ---

// RecordLookup records one registry lookup for a data element and whether it
// produced a mapping.
func (m *Metrics) RecordLookup(element string, found bool) {
	if m == nil {
		return
	}
	m.lookupsTotal.Add(1)
	em := m.element(element)
	em.lookups.Add(1)
	if !found {
		em.misses.Add(1)
	}
}

// RecordCacheHit records a cached registry item being served.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a registry item that had to be computed.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Add(1)
}

// RecordReload records a manifest reload attempt.
func (m *Metrics) RecordReload(ok bool) {
	if m == nil {
		return
	}
	m.reloadsTotal.Add(1)
	if !ok {
		m.reloadFailures.Add(1)
	}
}

// RecordItemComputed records a concept-map or value-set item being built.
func (m *Metrics) RecordItemComputed() {
	if m == nil {
		return
	}
	m.itemsComputed.Add(1)
}

// RecordPayloadFailure records a payload document that could not be fetched or parsed.
func (m *Metrics) RecordPayloadFailure() {
	if m == nil {
		return
	}
	m.payloadFailures.Add(1)
}

// RecordResource records a completed resource mapping pass.
func (m *Metrics) RecordResource(duration time.Duration, mapped bool) {
	if m == nil {
		return
	}
	if mapped {
		m.resourcesMapped.Add(1)
	} else {
		m.resourcesFailed.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // durations are positive
	m.mappingTimeNs.Add(ns)
	for {
		old := m.mappingTimeMax.Load()
		if ns <= old {
			break
		}
		if m.mappingTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordIssue records an issue based on severity.
func (m *Metrics) RecordIssue(severity IssueSeverity) {
	if m == nil {
		return
	}
	switch severity {
	case SeverityError, SeverityFatal:
		m.errorsTotal.Add(1)
	case SeverityWarning:
		m.warningsTotal.Add(1)
	}
}

func (m *Metrics) element(name string) *elementMetrics {
	if v, ok := m.elements.Load(name); ok {
		return v.(*elementMetrics)
	}
	em := &elementMetrics{}
	actual, _ := m.elements.LoadOrStore(name, em)
	return actual.(*elementMetrics)
}

// --- Query Methods ---

// Reloads returns the number of manifest reload attempts.
func (m *Metrics) Reloads() uint64 {
	return m.reloadsTotal.Load()
}

// ReloadFailures returns the number of failed manifest reloads.
func (m *Metrics) ReloadFailures() uint64 {
	return m.reloadFailures.Load()
}

// CacheHitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// ElementStats holds lookup counts for one data element.
type ElementStats struct {
	Element string `json:"element"`
	Lookups uint64 `json:"lookups"`
	Misses  uint64 `json:"misses"`
}

// AllElementStats returns lookup counts for every data element seen.
func (m *Metrics) AllElementStats() []ElementStats {
	var stats []ElementStats
	m.elements.Range(func(key, value any) bool {
		em := value.(*elementMetrics)
		stats = append(stats, ElementStats{
			Element: key.(string),
			Lookups: em.lookups.Load(),
			Misses:  em.misses.Load(),
		})
		return true
	})
	return stats
}

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	LookupsTotal uint64  `json:"lookups_total"`
	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	ReloadsTotal    uint64 `json:"reloads_total"`
	ReloadFailures  uint64 `json:"reload_failures"`
	ItemsComputed   uint64 `json:"items_computed"`
	PayloadFailures uint64 `json:"payload_failures"`

	ResourcesMapped  uint64 `json:"resources_mapped"`
	ResourcesFailed  uint64 `json:"resources_failed"`
	AvgMappingTimeNs uint64 `json:"avg_mapping_time_ns"`
	MaxMappingTimeNs uint64 `json:"max_mapping_time_ns"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`

	Elements []ElementStats `json:"elements,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{Timestamp: time.Now()}
	}

	mapped := m.resourcesMapped.Load()
	failed := m.resourcesFailed.Load()
	var avg uint64
	if total := mapped + failed; total > 0 {
		avg = m.mappingTimeNs.Load() / total
	}

	return Snapshot{
		Timestamp:        time.Now(),
		LookupsTotal:     m.lookupsTotal.Load(),
		CacheHits:        m.cacheHits.Load(),
		CacheMisses:      m.cacheMisses.Load(),
		CacheHitRate:     m.CacheHitRate(),
		ReloadsTotal:     m.reloadsTotal.Load(),
		ReloadFailures:   m.reloadFailures.Load(),
		ItemsComputed:    m.itemsComputed.Load(),
		PayloadFailures:  m.payloadFailures.Load(),
		ResourcesMapped:  mapped,
		ResourcesFailed:  failed,
		AvgMappingTimeNs: avg,
		MaxMappingTimeNs: m.mappingTimeMax.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		WarningsTotal:    m.warningsTotal.Load(),
		Elements:         m.AllElementStats(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.lookupsTotal.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.reloadsTotal.Store(0)
	m.reloadFailures.Store(0)
	m.itemsComputed.Store(0)
	m.payloadFailures.Store(0)
	m.resourcesMapped.Store(0)
	m.resourcesFailed.Store(0)
	m.mappingTimeNs.Store(0)
	m.mappingTimeMax.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)

	m.elements.Range(func(key, _ any) bool {
		m.elements.Delete(key)
		return true
	})
}
