package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/weiihann/pibench/executor"
	"github.com/weiihann/pibench/metrics"
	"github.com/weiihann/pibench/workload"
)

// Harness runs both runners over the same configuration.
type Harness struct {
	exec       executor.Executor
	logger     *slog.Logger
	recorder   metrics.Recorder
	observer   Observer
	sampleFunc executor.TaskFunc
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(h *Harness) { h.recorder = rec }
}

// WithObserver sets the progress observer.
func WithObserver(obs Observer) Option {
	return func(h *Harness) { h.observer = obs }
}

// New creates a Harness that runs parallel work on exec. A nil exec is
// treated as unavailable.
func New(exec executor.Executor, opts ...Option) *Harness {
	if exec == nil {
		exec = executor.Unavailable{}
	}

	h := &Harness{
		exec:   exec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run validates cfg, runs the sequential runner and then tries the
// parallel one. An unavailable executor or a failed chunk is recorded in
// the Outcome instead of failing the run; only invalid configuration and
// context cancellation return an error. The executor session is released
// before Run returns.
func (h *Harness) Run(ctx context.Context, cfg workload.Config) (*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	h.logger.InfoContext(ctx, "starting benchmark",
		slog.Int("iterations", cfg.Iterations),
		slog.Int64("points", cfg.PointsPerIteration),
		slog.Int("partitions", cfg.PartitionFactor),
		slog.Int64("seed", cfg.Seed),
		slog.String("executor", h.exec.Name()),
	)

	seq := NewRunner(SequentialName, h.logger, h.recorder, h.observer)

	seqResult, err := seq.RunSequential(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sequential run: %w", err)
	}

	outcome := &Outcome{Sequential: *seqResult}

	if err := h.runParallel(ctx, cfg, outcome); err != nil {
		return nil, err
	}

	h.logger.InfoContext(ctx, "benchmark complete",
		slog.String("parallel_status", string(outcome.ParallelStatus)),
	)

	return outcome, nil
}

func (h *Harness) runParallel(ctx context.Context, cfg workload.Config, outcome *Outcome) error {
	sess, err := h.exec.Acquire(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("acquire %s: %w", h.exec.Name(), ctxErr)
		}

		h.logger.WarnContext(ctx, "parallel runner skipped",
			slog.String("executor", h.exec.Name()),
			slog.String("error", err.Error()),
		)

		outcome.ParallelStatus = StatusSkipped
		outcome.ParallelReason = err.Error()

		return nil
	}

	defer func() {
		if err := sess.Release(); err != nil {
			h.logger.Warn("failed to release executor",
				slog.String("executor", h.exec.Name()),
				slog.String("error", err.Error()),
			)
		}
	}()

	par := NewRunner(ParallelName, h.logger, h.recorder, h.observer)
	par.Executor = h.exec.Name()
	par.SampleFunc = h.sampleFunc

	result, err := par.RunParallel(ctx, cfg, sess)
	if err != nil {
		if !errors.Is(err, executor.ErrTaskFailure) {
			return fmt.Errorf("parallel run: %w", err)
		}

		h.logger.ErrorContext(ctx, "parallel runner failed",
			slog.String("executor", h.exec.Name()),
			slog.String("error", err.Error()),
		)

		outcome.ParallelStatus = StatusFailed
		outcome.ParallelReason = err.Error()

		return nil
	}

	outcome.Parallel = result
	outcome.ParallelStatus = StatusCompleted

	return nil
}
