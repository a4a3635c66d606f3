// Package worker normalizes independent resources in parallel.
//
// Mapping passes share nothing but the registry, which is safe for
// concurrent use, so resources can be spread over any number of goroutines.
//
// Batch maps a fixed slice and returns results in input order:
//
//	b := worker.NewBatch(engine, 8)
//	res := b.Normalize(ctx, jobs)
//
// Pool accepts jobs as they arrive and streams results back:
//
//	pool := worker.NewPool(engine, 4)
//	go func() {
//	    for _, job := range jobs {
//	        pool.Submit(job)
//	    }
//	    pool.CloseInput()
//	}()
//	for result := range pool.Results() {
//	    // result.Resource, result.Result, result.Error
//	}
package worker
