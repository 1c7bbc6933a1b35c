/*
Package workers sizes and runs the dedicated pool that executes CPU-bound
thumbnail rendering.

# Sizing

Worker counts are derived from GOMAXPROCS rather than runtime.NumCPU, so a
container limited to 2 CPUs on a 64-core node gets 2 render workers:

	n := workers.ForCPU(8) // one worker per available CPU, at most 8

The THUMBNAIL_WORKERS environment variable overrides the calculation.

# Pool

A Pool owns a fixed set of goroutines fed through a buffered job queue. Each
submitted job gets its own completion channel, so the submitting goroutine
only blocks on the result and never on the computation itself:

	pool := workers.NewPool(workers.ForCPU(0), 64)
	defer pool.Close()

	data, err := pool.Submit(ctx, func() ([]byte, error) {
		return render(path)
	})

A job that panics is recovered by the worker and reported as ErrTaskFailed,
as is a job submitted after Close.
*/
package workers
