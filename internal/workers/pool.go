package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"thumbnail-service/internal/logging"
)

// ErrTaskFailed is returned when a job could not run to completion: it
// panicked, or the pool was closed before it was picked up.
var ErrTaskFailed = errors.New("worker task failed")

// Task is a unit of CPU-bound work producing encoded bytes.
type Task func() ([]byte, error)

type result struct {
	data []byte
	err  error
}

type job struct {
	task Task
	done chan result
}

// Pool runs tasks on a fixed number of goroutines.
type Pool struct {
	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	size   int
	active atomic.Int64
}

// NewPool starts size workers reading from a queue of the given capacity.
func NewPool(size, queue int) *Pool {
	if size < 1 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}

	p := &Pool{
		jobs: make(chan job, queue),
		size: size,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	logging.Debug("Worker pool started with %d workers (queue %d)", size, queue)
	return p
}

// Size returns the number of worker goroutines.
func (p *Pool) Size() int {
	return p.size
}

// Active returns the number of tasks currently executing.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Submit queues task and waits for its result. ctx only bounds the wait for a
// free queue slot and for the result; a task that has started keeps running.
func (p *Pool) Submit(ctx context.Context, task Task) ([]byte, error) {
	j := job{task: task, done: make(chan result, 1)}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, fmt.Errorf("%w: pool closed", ErrTaskFailed)
	}
	select {
	case p.jobs <- j:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return nil, ctx.Err()
	}

	select {
	case r, ok := <-j.done:
		if !ok {
			return nil, fmt.Errorf("%w: no result", ErrTaskFailed)
		}
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Debug("Worker pool stopped")
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		j.done <- p.run(id, j.task)
	}
}

func (p *Pool) run(id int, task Task) (r result) {
	p.active.Add(1)
	defer p.active.Add(-1)

	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("Worker %d: task panicked: %v\n%s", id, rec, debug.Stack())
			r = result{err: fmt.Errorf("%w: panic: %v", ErrTaskFailed, rec)}
		}
	}()

	data, err := task()
	return result{data: data, err: err}
}
