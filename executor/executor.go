// Package executor runs independent sampling tasks in parallel and hands
// back exactly one result per task.
//
// An Executor is acquired once per benchmark run. The returned Session
// accepts any number of MapReduce calls and must be released when the run
// ends; Release is idempotent.
package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnavailable means the backend could not be acquired. Callers may
	// skip parallel work and continue.
	ErrUnavailable = errors.New("executor unavailable")

	// ErrTaskFailure means a submitted task returned an error or panicked.
	ErrTaskFailure = errors.New("executor task failed")

	// ErrReleased is returned by MapReduce after Release.
	ErrReleased = errors.New("executor session released")
)

// Task is one unit of submitted work.
type Task struct {
	ID   int
	Size int64
	Seed int64
}

// TaskFunc samples a task and returns its hit count.
type TaskFunc func(ctx context.Context, t Task) (int64, error)

// TaskResult pairs a task ID with its hit count.
type TaskResult struct {
	ID   int
	Hits int64
}

// Executor is a parallel backend.
type Executor interface {
	Name() string
	Acquire(ctx context.Context) (Session, error)
}

// Session is an acquired backend. MapReduce blocks until every task has
// produced a result or one of them failed. Results are ordered by task ID.
type Session interface {
	MapReduce(ctx context.Context, tasks []Task, fn TaskFunc) ([]TaskResult, error)
	Release() error
}

// Backend names accepted by New.
const (
	KindPool  = "pool"
	KindGroup = "group"
	KindNone  = "none"
)

// KnownKinds returns the list of supported backend names.
func KnownKinds() []string {
	return []string{KindPool, KindGroup, KindNone}
}

// New returns the named backend sized to workers.
func New(kind string, workers int) (Executor, error) {
	switch kind {
	case KindPool:
		return NewPool(workers), nil
	case KindGroup:
		return NewGroup(workers), nil
	case KindNone:
		return Unavailable{Reason: "parallel execution disabled"}, nil
	default:
		return nil, fmt.Errorf("unknown executor %q (known: %v)", kind, KnownKinds())
	}
}

// Unavailable is a backend that can never be acquired.
type Unavailable struct {
	Reason string
}

// Name returns "none".
func (Unavailable) Name() string { return KindNone }

// Acquire always fails with ErrUnavailable.
func (u Unavailable) Acquire(context.Context) (Session, error) {
	reason := u.Reason
	if reason == "" {
		reason = "no backend configured"
	}

	return nil, fmt.Errorf("%s: %w", reason, ErrUnavailable)
}

// call runs fn for t, turning errors and panics into ErrTaskFailure.
func call(ctx context.Context, fn TaskFunc, t Task) (hits int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			hits = 0
			err = fmt.Errorf("%w: chunk %d panicked: %v", ErrTaskFailure, t.ID, r)
		}
	}()

	hits, err = fn(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("%w: chunk %d: %w", ErrTaskFailure, t.ID, err)
	}

	return hits, nil
}

func sortByID(results []TaskResult) {
	slices.SortFunc(results, func(a, b TaskResult) int {
		return a.ID - b.ID
	})
}
