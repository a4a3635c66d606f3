package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"time"
)

// Batch normalizes a fixed set of jobs and returns results in input order.
type Batch struct {
	normalizer Normalizer
	workers    int
}

// NewBatch creates a batch runner. workers <= 0 uses runtime.NumCPU().
func NewBatch(n Normalizer, workers int) *Batch {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Batch{
		normalizer: n,
		workers:    workers,
	}
}

// Normalize runs every job. Results[i] belongs to jobs[i]; a job skipped
// because ctx was cancelled has a result carrying ctx.Err().
// Jobs without an ID are given their index.
func (b *Batch) Normalize(ctx context.Context, jobs []Job) *BatchResult {
	start := time.Now()
	for i := range jobs {
		if jobs[i].ID == "" {
			jobs[i].ID = strconv.Itoa(i)
		}
	}

	var results []*JobResult
	switch {
	case len(jobs) == 0:
		results = make([]*JobResult, 0)
	case len(jobs) <= 2:
		results = b.sequential(ctx, jobs)
	default:
		results = b.parallel(ctx, jobs)
	}

	br := &BatchResult{
		Results:       results,
		TotalJobs:     len(jobs),
		TotalDuration: time.Since(start).Nanoseconds(),
	}
	for _, r := range results {
		if r.Error != nil {
			br.FailedJobs++
			continue
		}
		br.CompletedJobs++
	}
	return br
}

func (b *Batch) sequential(ctx context.Context, jobs []Job) []*JobResult {
	results := make([]*JobResult, len(jobs))
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = &JobResult{ID: job.ID, Error: err}
			continue
		}
		results[i] = run(ctx, b.normalizer, job)
	}
	return results
}

func (b *Batch) parallel(ctx context.Context, jobs []Job) []*JobResult {
	numWorkers := b.workers
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	results := make([]*JobResult, len(jobs))
	indices := make(chan int, len(jobs))
	for i := range jobs {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				if err := ctx.Err(); err != nil {
					results[i] = &JobResult{ID: jobs[i].ID, Error: err}
					continue
				}
				results[i] = run(ctx, b.normalizer, jobs[i])
			}
		}()
	}
	wg.Wait()

	return results
}
