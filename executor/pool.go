package executor

import (
	"context"
	"fmt"
	"sync"
)

// Pool runs tasks on a fixed set of long-lived worker goroutines that are
// started on Acquire and stopped on Release.
type Pool struct {
	workers int
}

// NewPool creates a Pool with the given number of workers.
func NewPool(workers int) *Pool {
	return &Pool{workers: workers}
}

// Name returns "pool".
func (p *Pool) Name() string { return KindPool }

// WorkerCount returns the number of workers.
func (p *Pool) WorkerCount() int { return p.workers }

// Acquire starts the workers.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	if p.workers <= 0 {
		return nil, fmt.Errorf("pool with %d workers: %w", p.workers, ErrUnavailable)
	}

	s := &poolSession{
		workers: p.workers,
		jobs:    make(chan job),
	}
	s.start(ctx)

	return s, nil
}

type job struct {
	ctx   context.Context
	task  Task
	fn    TaskFunc
	reply chan<- reply
}

type reply struct {
	id   int
	hits int64
	err  error
}

type poolSession struct {
	workers int
	jobs    chan job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc

	// mu is held for reading by every MapReduce call so Release waits for
	// in-flight calls before stopping the workers.
	mu       sync.RWMutex
	released bool
}

func (s *poolSession) start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
}

// workerLoop is the main loop for each worker.
func (s *poolSession) workerLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.jobs:
			hits, err := call(j.ctx, j.fn, j.task)
			j.reply <- reply{id: j.task.ID, hits: hits, err: err}
		}
	}
}

func (s *poolSession) MapReduce(ctx context.Context, tasks []Task, fn TaskFunc) ([]TaskResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.released {
		return nil, ErrReleased
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Buffered so workers never block on a caller that already returned.
	replies := make(chan reply, len(tasks))

	for _, t := range tasks {
		select {
		case s.jobs <- job{ctx: ctx, task: t, fn: fn, reply: replies}:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.ctx.Done():
			return nil, fmt.Errorf("pool stopped: %w", s.ctx.Err())
		}
	}

	results := make([]TaskResult, 0, len(tasks))
	var firstErr error

	for range tasks {
		select {
		case r := <-replies:
			if r.err != nil {
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			results = append(results, TaskResult{ID: r.id, Hits: r.hits})
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}

	sortByID(results)

	return results, nil
}

// Release stops the workers and waits for them to exit.
func (s *poolSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	s.released = true

	s.cancel()
	s.wg.Wait()

	return nil
}
