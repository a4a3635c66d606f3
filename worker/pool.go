package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Pool normalizes a stream of jobs with a fixed number of goroutines.
// Results arrive in completion order.
type Pool struct {
	normalizer Normalizer
	workers    int
	queue      chan Job
	out        chan *JobResult

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	busyNs    atomic.Uint64
}

// NewPool starts a pool. workers <= 0 uses runtime.NumCPU(). Cancelling ctx
// stops the workers after their current job.
func NewPool(ctx context.Context, n Normalizer, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		normalizer: n,
		workers:    workers,
		queue:      make(chan Job, workers*2),
		out:        make(chan *JobResult, workers*2),
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.out)
	}()

	return p
}

// Submit queues a job, blocking while the queue is full.
// It returns false once the pool is closed or cancelled.
func (p *Pool) Submit(job Job) bool {
	return p.enqueue(job, true)
}

// SubmitAsync queues a job without blocking.
// It returns false if the queue is full or the pool is closed.
func (p *Pool) SubmitAsync(job Job) bool {
	return p.enqueue(job, false)
}

func (p *Pool) enqueue(job Job, wait bool) bool {
	if p.closed.Load() || p.ctx.Err() != nil {
		return false
	}

	if wait {
		select {
		case <-p.ctx.Done():
			return false
		case p.queue <- job:
		}
	} else {
		select {
		case p.queue <- job:
		default:
			return false
		}
	}
	p.submitted.Add(1)
	return true
}

// Results returns the result channel. It is closed after CloseInput once
// every queued job has been processed, or after Cancel.
func (p *Pool) Results() <-chan *JobResult {
	return p.out
}

// CloseInput stops accepting jobs. Queued jobs are still processed.
// Submit must not be called concurrently with CloseInput.
func (p *Pool) CloseInput() {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.queue)
	})
}

// Cancel aborts the pool. Jobs still queued are dropped.
func (p *Pool) Cancel() {
	p.cancel()
	p.CloseInput()
}

// CloseAndWait closes the input and collects every remaining result.
// It must not be combined with a concurrent reader of Results().
func (p *Pool) CloseAndWait() *BatchResult {
	p.CloseInput()

	results := make([]*JobResult, 0)
	for result := range p.out {
		results = append(results, result)
	}
	p.cancel()

	return &BatchResult{
		Results:       results,
		TotalJobs:     int(p.submitted.Load()),
		CompletedJobs: int(p.completed.Load() - p.failed.Load()),
		FailedJobs:    int(p.failed.Load()),
		TotalDuration: int64(p.busyNs.Load()),
	}
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Workers:       p.workers,
		JobsSubmitted: p.submitted.Load(),
		JobsCompleted: p.completed.Load(),
		JobsFailed:    p.failed.Load(),
		AvgDuration:   p.averageDuration(),
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.queue {
		if p.ctx.Err() != nil {
			return
		}

		result := p.processJob(job)
		p.completed.Add(1)
		if result.Error != nil {
			p.failed.Add(1)
		}
		p.busyNs.Add(uint64(result.Duration))

		select {
		case <-p.ctx.Done():
			return
		case p.out <- result:
		}
	}
}

func (p *Pool) processJob(job Job) *JobResult {
	if p.normalizer == nil {
		return &JobResult{ID: job.ID, Error: ErrNoNormalizer}
	}
	return run(p.ctx, p.normalizer, job)
}

func (p *Pool) averageDuration() time.Duration {
	completed := p.completed.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(p.busyNs.Load() / completed)
}

// ErrNoNormalizer is returned when the pool has no normalizer configured.
var ErrNoNormalizer = errors.New("no normalizer configured")
