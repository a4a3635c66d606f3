package worker

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestBatch_PreservesOrder(t *testing.T) {
	n := &stubNormalizer{delay: time.Millisecond}
	b := NewBatch(n, 4)

	jobs := make([]Job, 10)
	for i := range jobs {
		jobs[i] = patientJob("p" + strconv.Itoa(i))
	}
	jobs[3] = patientJob("bad")

	br := b.Normalize(context.Background(), jobs)

	if br.TotalJobs != 10 || br.CompletedJobs != 10 || br.FailedJobs != 0 {
		t.Fatalf("batch = %+v", br)
	}
	for i, r := range br.Results {
		if r.ID != jobs[i].ID {
			t.Errorf("Results[%d].ID = %q; want %q", i, r.ID, jobs[i].ID)
		}
	}
	if !br.HasErrors() {
		t.Error("HasErrors() = false; want true")
	}
	if br.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d; want 1", br.ErrorCount())
	}
	if int(n.callCount.Load()) != 10 {
		t.Errorf("calls = %d; want 10", n.callCount.Load())
	}
}

func TestBatch_AssignsIndexIDs(t *testing.T) {
	b := NewBatch(&stubNormalizer{}, 2)
	jobs := []Job{patientJob(""), patientJob("")}
	jobs[0].ID, jobs[1].ID = "", ""

	br := b.Normalize(context.Background(), jobs)
	for i, r := range br.Results {
		if r.ID != strconv.Itoa(i) {
			t.Errorf("Results[%d].ID = %q; want %q", i, r.ID, strconv.Itoa(i))
		}
	}
}

func TestBatch_Empty(t *testing.T) {
	br := NewBatch(&stubNormalizer{}, 0).Normalize(context.Background(), nil)
	if br.TotalJobs != 0 || len(br.Results) != 0 || br.HasErrors() {
		t.Errorf("batch = %+v; want empty", br)
	}
}

func TestBatch_NormalizerError(t *testing.T) {
	boom := errors.New("registry unavailable")
	b := NewBatch(&stubNormalizer{err: boom}, 2)

	jobs := []Job{patientJob("a"), patientJob("b"), patientJob("c")}
	br := b.Normalize(context.Background(), jobs)

	if br.FailedJobs != 3 {
		t.Errorf("FailedJobs = %d; want 3", br.FailedJobs)
	}
	for _, r := range br.Results {
		if !errors.Is(r.Error, boom) {
			t.Errorf("%s: Error = %v; want %v", r.ID, r.Error, boom)
		}
		if r.ErrorMessage() != boom.Error() {
			t.Errorf("ErrorMessage() = %q", r.ErrorMessage())
		}
	}
	if !br.HasErrors() {
		t.Error("HasErrors() = false; want true")
	}
}

func TestBatch_CancelledContext(t *testing.T) {
	n := &stubNormalizer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{patientJob("a"), patientJob("b"), patientJob("c"), patientJob("d")}
	br := NewBatch(n, 2).Normalize(ctx, jobs)

	if len(br.Results) != len(jobs) {
		t.Fatalf("results = %d; want %d", len(br.Results), len(jobs))
	}
	for _, r := range br.Results {
		if !errors.Is(r.Error, context.Canceled) {
			t.Errorf("%s: Error = %v; want context.Canceled", r.ID, r.Error)
		}
	}
	if n.callCount.Load() != 0 {
		t.Errorf("calls = %d; want 0", n.callCount.Load())
	}
}
