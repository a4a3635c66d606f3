package worker

import (
	"context"
	"encoding/json"
	"time"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
)

// Normalizer maps one resource. *walker.Mapper implements it.
type Normalizer interface {
	MapResource(ctx context.Context, resource fhir.Resource, tenant string, force *time.Time) (fhir.Resource, *normalizer.Result, error)
}

// Job is one resource to normalize.
type Job struct {
	// ID is echoed in the result.
	ID string

	// Tenant whose concept maps apply.
	Tenant string

	// Resource is the FHIR JSON of the resource.
	Resource json.RawMessage

	// Force is the optional registry freshness floor.
	Force *time.Time
}

// JobResult is the outcome of one job.
type JobResult struct {
	ID string `json:"id"`

	// Resource is the normalized resource, nil when mapping failed or the
	// resource was rejected.
	Resource fhir.Resource `json:"resource,omitempty"`

	// Result holds the issues raised.
	Result *normalizer.Result `json:"result,omitempty"`

	// Error is set when the job could not be processed.
	Error error `json:"-"`

	// Duration is the time taken in nanoseconds.
	Duration int64 `json:"durationNs"`
}

// ErrorMessage returns the job error text, or "".
func (r *JobResult) ErrorMessage() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Error()
}

// BatchResult aggregates the results of several jobs.
type BatchResult struct {
	Results       []*JobResult `json:"results"`
	TotalJobs     int          `json:"totalJobs"`
	CompletedJobs int          `json:"completedJobs"`
	FailedJobs    int          `json:"failedJobs"`
	TotalDuration int64        `json:"totalDurationNs"`
}

// HasErrors reports whether any job failed or raised an error issue.
func (br *BatchResult) HasErrors() bool {
	for _, r := range br.Results {
		if r == nil {
			continue
		}
		if r.Error != nil {
			return true
		}
		if r.Result != nil && !r.Result.Valid {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error issues across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result != nil {
			count += r.Result.ErrorCount()
		}
	}
	return count
}

// run executes one job.
func run(ctx context.Context, n Normalizer, job Job) *JobResult {
	start := time.Now()
	result := &JobResult{ID: job.ID}

	resource, err := fhir.ParseResource(job.Resource)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start).Nanoseconds()
		return result
	}

	result.Resource, result.Result, result.Error = n.MapResource(ctx, resource, job.Tenant, job.Force)
	result.Duration = time.Since(start).Nanoseconds()
	return result
}
