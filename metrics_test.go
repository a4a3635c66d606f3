package normalizer

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics_Lookups(t *testing.T) {
	m := NewMetrics()

	m.RecordLookup("Condition.code", true)
	m.RecordLookup("Condition.code", false)
	m.RecordLookup("Appointment.status", true)

	s := m.Snapshot()
	if s.LookupsTotal != 3 {
		t.Errorf("LookupsTotal = %d; want 3", s.LookupsTotal)
	}

	found := false
	for _, es := range s.Elements {
		if es.Element == "Condition.code" {
			found = true
			if es.Lookups != 2 || es.Misses != 1 {
				t.Errorf("Condition.code stats = %+v; want 2 lookups, 1 miss", es)
			}
		}
	}
	if !found {
		t.Error("Condition.code stats missing")
	}
}

func TestMetrics_CacheHitRate(t *testing.T) {
	m := NewMetrics()
	if rate := m.CacheHitRate(); rate != 0 {
		t.Errorf("CacheHitRate() = %f; want 0", rate)
	}

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if rate := m.CacheHitRate(); rate != 0.75 {
		t.Errorf("CacheHitRate() = %f; want 0.75", rate)
	}
}

func TestMetrics_Reloads(t *testing.T) {
	m := NewMetrics()
	m.RecordReload(true)
	m.RecordReload(false)

	if m.Reloads() != 2 || m.ReloadFailures() != 1 {
		t.Errorf("Reloads/ReloadFailures = %d/%d; want 2/1", m.Reloads(), m.ReloadFailures())
	}
}

func TestMetrics_Resources(t *testing.T) {
	m := NewMetrics()
	m.RecordResource(10*time.Millisecond, true)
	m.RecordResource(30*time.Millisecond, false)

	s := m.Snapshot()
	if s.ResourcesMapped != 1 || s.ResourcesFailed != 1 {
		t.Errorf("mapped/failed = %d/%d; want 1/1", s.ResourcesMapped, s.ResourcesFailed)
	}
	if s.AvgMappingTimeNs != uint64(20*time.Millisecond) {
		t.Errorf("AvgMappingTimeNs = %d; want %d", s.AvgMappingTimeNs, 20*time.Millisecond)
	}
	if s.MaxMappingTimeNs != uint64(30*time.Millisecond) {
		t.Errorf("MaxMappingTimeNs = %d; want %d", s.MaxMappingTimeNs, 30*time.Millisecond)
	}
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordLookup("x", true)
	m.RecordReload(false)
	m.RecordIssue(SeverityError)
	if s := m.Snapshot(); s.LookupsTotal != 0 {
		t.Errorf("nil metrics snapshot = %+v", s)
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordLookup("Observation.code", true)
			m.RecordIssue(SeverityWarning)
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	if s.LookupsTotal != 100 || s.WarningsTotal != 100 {
		t.Errorf("LookupsTotal/WarningsTotal = %d/%d; want 100/100", s.LookupsTotal, s.WarningsTotal)
	}

	m.Reset()
	if m.Snapshot().LookupsTotal != 0 {
		t.Error("Reset() did not clear counters")
	}
}
