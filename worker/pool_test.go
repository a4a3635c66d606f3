package worker

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
)

// stubNormalizer replaces Patient.gender with its upper-case form and
// flags any Patient with id "bad".
type stubNormalizer struct {
	callCount atomic.Int32
	delay     time.Duration
	err       error
}

func (s *stubNormalizer) MapResource(ctx context.Context, resource fhir.Resource, tenant string, force *time.Time) (fhir.Resource, *normalizer.Result, error) {
	s.callCount.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, nil, s.err
	}

	result := normalizer.NewResult()
	result.ResourceType = resource.ResourceType()
	result.ResourceID = resource.GetID()
	if resource.GetID() == "bad" {
		result.AddError(normalizer.IssueTypeCodeInvalid, "no mapping for tenant "+tenant, "Patient.gender")
	}
	return resource, result, nil
}

func patientJob(id string) Job {
	return Job{
		ID:       id,
		Tenant:   "tenantA",
		Resource: []byte(`{"resourceType":"Patient","id":"` + id + `","gender":"F"}`),
	}
}

func TestPool_DefaultWorkers(t *testing.T) {
	pool := NewPool(context.Background(), &stubNormalizer{}, 0)
	defer pool.Cancel()

	if pool.workers <= 0 {
		t.Errorf("workers = %d; want > 0", pool.workers)
	}
}

func TestPool_SubmitAndReceive(t *testing.T) {
	n := &stubNormalizer{}
	pool := NewPool(context.Background(), n, 2)

	if !pool.Submit(patientJob("p1")) {
		t.Fatal("expected job to be submitted")
	}
	pool.CloseInput()

	var got []*JobResult
	for r := range pool.Results() {
		got = append(got, r)
	}

	if len(got) != 1 {
		t.Fatalf("results = %d; want 1", len(got))
	}
	if got[0].ID != "p1" {
		t.Errorf("ID = %q; want p1", got[0].ID)
	}
	if got[0].Error != nil {
		t.Errorf("unexpected error: %v", got[0].Error)
	}
	if got[0].Resource == nil || got[0].Resource.GetID() != "p1" {
		t.Errorf("Resource = %v; want patient p1", got[0].Resource)
	}
	if got[0].Result == nil || !got[0].Result.Valid {
		t.Errorf("Result = %+v; want valid", got[0].Result)
	}
}

func TestPool_ProcessesEveryQueuedJob(t *testing.T) {
	n := &stubNormalizer{delay: time.Millisecond}
	pool := NewPool(context.Background(), n, 3)

	ids := []string{"a", "b", "c", "d", "e", "f", "g"}
	for _, id := range ids {
		if !pool.Submit(patientJob(id)) {
			t.Fatalf("submit %s failed", id)
		}
	}

	br := pool.CloseAndWait()
	if len(br.Results) != len(ids) {
		t.Fatalf("results = %d; want %d", len(br.Results), len(ids))
	}
	if br.TotalJobs != len(ids) || br.CompletedJobs != len(ids) || br.FailedJobs != 0 {
		t.Errorf("batch = %+v", br)
	}

	got := make([]string, 0, len(br.Results))
	for _, r := range br.Results {
		got = append(got, r.ID)
	}
	sort.Strings(got)
	for i := range ids {
		if got[i] != ids[i] {
			t.Errorf("ids = %v; want %v", got, ids)
			break
		}
	}

	stats := pool.Stats()
	if stats.JobsSubmitted != uint64(len(ids)) || stats.JobsCompleted != uint64(len(ids)) {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPool_ParseErrorIsJobError(t *testing.T) {
	n := &stubNormalizer{}
	pool := NewPool(context.Background(), n, 1)

	pool.Submit(Job{ID: "x", Resource: []byte(`{"resourceType":"Spaceship"}`)})
	br := pool.CloseAndWait()

	if len(br.Results) != 1 {
		t.Fatalf("results = %d; want 1", len(br.Results))
	}
	if !errors.Is(br.Results[0].Error, fhir.ErrUnknownResourceType) {
		t.Errorf("Error = %v; want ErrUnknownResourceType", br.Results[0].Error)
	}
	if br.FailedJobs != 1 {
		t.Errorf("FailedJobs = %d; want 1", br.FailedJobs)
	}
	if n.callCount.Load() != 0 {
		t.Errorf("normalizer called %d times; want 0", n.callCount.Load())
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	pool := NewPool(context.Background(), &stubNormalizer{}, 1)
	pool.CloseInput()

	if pool.Submit(patientJob("late")) {
		t.Error("Submit after CloseInput should fail")
	}
	if pool.SubmitAsync(patientJob("late")) {
		t.Error("SubmitAsync after CloseInput should fail")
	}
	for range pool.Results() {
	}
}

func TestPool_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(ctx, &stubNormalizer{delay: time.Second}, 1)
	pool.Submit(patientJob("slow"))

	cancel()

	done := make(chan struct{})
	go func() {
		for range pool.Results() {
		}
		close(done)
	}()
	pool.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("results channel not closed after cancel")
	}
	if pool.Submit(patientJob("after")) {
		t.Error("Submit after cancel should fail")
	}
}

func TestPool_NilNormalizer(t *testing.T) {
	pool := NewPool(context.Background(), nil, 1)
	pool.Submit(patientJob("p1"))
	br := pool.CloseAndWait()

	if len(br.Results) != 1 || !errors.Is(br.Results[0].Error, ErrNoNormalizer) {
		t.Fatalf("results = %+v; want ErrNoNormalizer", br.Results)
	}
}
