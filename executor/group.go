package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Group runs each MapReduce call on fresh goroutines, at most Workers at
// a time. It holds no goroutines between calls.
type Group struct {
	workers int
}

// NewGroup creates a Group limited to workers concurrent tasks.
func NewGroup(workers int) *Group {
	return &Group{workers: workers}
}

// Name returns "group".
func (g *Group) Name() string { return KindGroup }

// Acquire returns a session bound to the worker limit.
func (g *Group) Acquire(context.Context) (Session, error) {
	if g.workers <= 0 {
		return nil, fmt.Errorf("group with %d workers: %w", g.workers, ErrUnavailable)
	}

	return &groupSession{workers: g.workers}, nil
}

type groupSession struct {
	workers  int
	released atomic.Bool
}

func (s *groupSession) MapReduce(ctx context.Context, tasks []Task, fn TaskFunc) ([]TaskResult, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	results := make([]TaskResult, len(tasks))

	for i, t := range tasks {
		i, t := i, t

		g.Go(func() error {
			// Skip work queued behind a failed task.
			if err := gctx.Err(); err != nil {
				return err
			}

			hits, err := call(gctx, fn, t)
			if err != nil {
				return err
			}

			results[i] = TaskResult{ID: t.ID, Hits: hits}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortByID(results)

	return results, nil
}

func (s *groupSession) Release() error {
	s.released.Store(true)

	return nil
}
