package harness

import (
	"context"
	"fmt"
	"log/slog"
	mrand "math/rand"
	"time"

	"github.com/weiihann/pibench/executor"
	"github.com/weiihann/pibench/metrics"
	"github.com/weiihann/pibench/montecarlo"
	"github.com/weiihann/pibench/workload"
)

// Runner names.
const (
	SequentialName = "sequential"
	ParallelName   = "parallel"
)

// Observer is told when a runner finishes an iteration. Calls come from
// the goroutine running the benchmark loop.
type Observer interface {
	IterationDone(runner string, done, total int)
}

type nopObserver struct{}

func (nopObserver) IterationDone(string, int, int) {}

// Runner times repeated estimation passes.
type Runner struct {
	Name     string
	Executor string
	Logger   *slog.Logger
	Recorder metrics.Recorder
	Observer Observer

	// SampleFunc samples one chunk. Defaults to SampleChunk.
	SampleFunc executor.TaskFunc
}

// NewRunner creates a Runner. A nil recorder or observer disables it.
func NewRunner(
	name string,
	logger *slog.Logger,
	recorder metrics.Recorder,
	observer Observer,
) *Runner {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &Runner{
		Name:     name,
		Logger:   logger.With(slog.String("runner", name)),
		Recorder: recorder,
		Observer: observer,
	}
}

// SampleChunk samples t.Size points from a generator seeded with t.Seed.
func SampleChunk(_ context.Context, t executor.Task) (int64, error) {
	rng := mrand.New(mrand.NewSource(t.Seed))

	return montecarlo.Sample(t.Size, rng), nil
}

// RunSequential estimates π cfg.Iterations times on the calling goroutine.
func (r *Runner) RunSequential(ctx context.Context, cfg workload.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	planner := workload.NewPlanner(cfg)
	var acc estimates

	r.Logger.InfoContext(ctx, "starting runner",
		slog.Int("iterations", cfg.Iterations),
		slog.Int64("points", cfg.PointsPerIteration),
	)

	wallStart := time.Now()

	for i := 0; i < cfg.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		iterStart := time.Now()

		rng := mrand.New(mrand.NewSource(planner.Seed()))
		hits := montecarlo.Sample(cfg.PointsPerIteration, rng)

		est, err := montecarlo.Estimate(hits, cfg.PointsPerIteration)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		acc.add(est)
		r.Recorder.RecordIteration(r.Name, time.Since(iterStart))
		r.Observer.IterationDone(r.Name, i+1, cfg.Iterations)
	}

	wallElapsed := time.Since(wallStart)

	result := r.result(cfg, wallElapsed, acc, 0)

	r.Logger.InfoContext(ctx, "runner finished",
		slog.Duration("wall_time", wallElapsed),
		slog.Float64("estimate", result.FinalEstimate),
	)

	return result, nil
}

// RunParallel estimates π cfg.Iterations times, splitting every iteration
// into chunks that sess samples concurrently. Each iteration waits for all
// of its chunks before summing.
func (r *Runner) RunParallel(
	ctx context.Context,
	cfg workload.Config,
	sess executor.Session,
) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	planner := workload.NewPlanner(cfg)
	sample := r.chunkFunc()
	var acc estimates
	chunks := 0

	r.Logger.InfoContext(ctx, "starting runner",
		slog.String("executor", r.Executor),
		slog.Int("iterations", cfg.Iterations),
		slog.Int64("points", cfg.PointsPerIteration),
		slog.Int("partitions", cfg.PartitionFactor),
	)

	wallStart := time.Now()

	for i := 0; i < cfg.Iterations; i++ {
		iterStart := time.Now()

		tasks := toTasks(planner.Chunks())
		chunks = len(tasks)

		results, err := sess.MapReduce(ctx, tasks, sample)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		hits, err := sumHits(tasks, results)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		est, err := montecarlo.Estimate(hits, cfg.PointsPerIteration)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}

		acc.add(est)
		r.Recorder.RecordIteration(r.Name, time.Since(iterStart))
		r.Observer.IterationDone(r.Name, i+1, cfg.Iterations)
	}

	wallElapsed := time.Since(wallStart)

	result := r.result(cfg, wallElapsed, acc, chunks)

	r.Logger.InfoContext(ctx, "runner finished",
		slog.Duration("wall_time", wallElapsed),
		slog.Float64("estimate", result.FinalEstimate),
		slog.Int("chunks", chunks),
	)

	return result, nil
}

func (r *Runner) chunkFunc() executor.TaskFunc {
	sample := r.SampleFunc
	if sample == nil {
		sample = SampleChunk
	}

	return func(ctx context.Context, t executor.Task) (int64, error) {
		start := time.Now()
		hits, err := sample(ctx, t)
		r.Recorder.RecordChunk(r.Executor, t.Size, time.Since(start), err)

		return hits, err
	}
}

func (r *Runner) result(
	cfg workload.Config,
	elapsed time.Duration,
	acc estimates,
	chunks int,
) *Result {
	total := elapsed.Seconds()

	var throughput float64
	if total > 0 {
		throughput = float64(cfg.PointsPerIteration) * float64(cfg.Iterations) / total
	}

	absErr := montecarlo.AbsError(acc.last)
	r.Recorder.RecordEstimate(r.Name, absErr)

	return &Result{
		Runner:                 r.Name,
		Executor:               r.Executor,
		Iterations:             cfg.Iterations,
		PointsPerIteration:     cfg.PointsPerIteration,
		Chunks:                 chunks,
		TotalDurationSeconds:   total,
		AverageDurationSeconds: total / float64(cfg.Iterations),
		FinalEstimate:          acc.last,
		MeanEstimate:           acc.mean(),
		AbsoluteError:          absErr,
		PointsPerSecond:        throughput,
	}
}

// estimates keeps the last estimate and a running sum.
type estimates struct {
	last  float64
	sum   float64
	count int
}

func (e *estimates) add(v float64) {
	e.last = v
	e.sum += v
	e.count++
}

func (e *estimates) mean() float64 {
	if e.count == 0 {
		return 0
	}
	return e.sum / float64(e.count)
}

func toTasks(chunks []workload.Chunk) []executor.Task {
	tasks := make([]executor.Task, len(chunks))
	for i, c := range chunks {
		tasks[i] = executor.Task{ID: c.ID, Size: c.Size, Seed: c.Seed}
	}

	return tasks
}

// sumHits adds up results, requiring exactly one result per task.
func sumHits(tasks []executor.Task, results []executor.TaskResult) (int64, error) {
	if len(results) != len(tasks) {
		return 0, fmt.Errorf("%w: got %d results for %d chunks",
			executor.ErrTaskFailure, len(results), len(tasks))
	}

	want := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		want[t.ID] = true
	}

	var hits int64
	for _, res := range results {
		if !want[res.ID] {
			return 0, fmt.Errorf("%w: unexpected or duplicate result for chunk %d",
				executor.ErrTaskFailure, res.ID)
		}
		delete(want, res.ID)
		hits += res.Hits
	}

	return hits, nil
}
