// Package main provides the CLI entry point for pibench, a Monte Carlo π
// benchmark comparing sequential and parallel sampling.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/weiihann/pibench/executor"
	"github.com/weiihann/pibench/harness"
	"github.com/weiihann/pibench/metrics"
	"github.com/weiihann/pibench/report"
	"github.com/weiihann/pibench/workload"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("pibench failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "pibench",
		Short: "Monte Carlo π estimation benchmark",
		Long: `Pibench estimates π by sampling random points in the unit square and
compares the wall-clock time of a single-goroutine sampler against a
parallel sampler that splits every iteration into independent chunks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))
	root.AddCommand(newPlanCmd(logger))

	return root
}

// workloadFlags are shared by every command that builds a workload.Config.
type workloadFlags struct {
	iterations int
	points     int64
	partitions int
	seed       int64
}

func (f *workloadFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.iterations, "iterations", workload.DefaultIterations,
		"Number of timed estimation iterations")
	flags.Int64Var(&f.points, "points", workload.DefaultPointsPerIteration,
		"Points sampled per iteration")
	flags.IntVar(&f.partitions, "partitions", workload.DefaultPartitionFactor,
		"Number of chunks each parallel iteration is split into")
	flags.Int64Var(&f.seed, "seed", 0,
		"Random seed (0 = use current time)")
}

func (f *workloadFlags) config() workload.Config {
	seed := f.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return workload.Config{
		Iterations:         f.iterations,
		PointsPerIteration: f.points,
		PartitionFactor:    f.partitions,
		Seed:               seed,
	}
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		wf          workloadFlags
		executorArg string
		workers     int
		outputJSON  bool
		progress    bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sequential and parallel benchmarks",
		Long: `Run the sequential estimator and then the parallel estimator over the
same configuration and print a comparison. When the parallel executor is
unavailable the parallel section is reported as skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), runConfig{
				workload:    wf.config(),
				executor:    executorArg,
				workers:     workers,
				outputJSON:  outputJSON,
				progress:    progress,
				metricsAddr: metricsAddr,
			})
		},
	}

	wf.register(cmd)

	flags := cmd.Flags()
	flags.StringVar(&executorArg, "executor", executor.KindPool,
		fmt.Sprintf("Parallel executor: %v", executor.KnownKinds()))
	flags.IntVar(&workers, "workers", runtime.NumCPU(),
		"Number of concurrent parallel workers")
	flags.BoolVar(&outputJSON, "json", false,
		"Output results as JSON instead of table")
	flags.BoolVar(&progress, "progress", false,
		"Show a progress bar per runner on stderr")
	flags.StringVar(&metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

type runConfig struct {
	workload    workload.Config
	executor    string
	workers     int
	outputJSON  bool
	progress    bool
	metricsAddr string
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	out io.Writer,
	cfg runConfig,
) error {
	exec, err := executor.New(cfg.executor, cfg.workers)
	if err != nil {
		return err
	}

	opts := []harness.Option{harness.WithLogger(logger)}

	if cfg.metricsAddr != "" {
		reg := prometheus.NewRegistry()

		exporter, err := metrics.NewExporter("pibench", reg, metrics.ExporterOptions{})
		if err != nil {
			return fmt.Errorf("create metrics exporter: %w", err)
		}

		srv, err := metrics.Listen(cfg.metricsAddr, reg, logger)
		if err != nil {
			return fmt.Errorf("start metrics endpoint: %w", err)
		}
		srv.Start()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to stop metrics endpoint",
					slog.String("error", err.Error()),
				)
			}
		}()

		opts = append(opts, harness.WithRecorder(exporter))
	}

	if cfg.progress {
		bars := newProgressBars(os.Stderr)
		defer bars.Finish()

		opts = append(opts, harness.WithObserver(bars))
	}

	outcome, err := harness.New(exec, opts...).Run(ctx, cfg.workload)
	if err != nil {
		return err
	}

	if cfg.outputJSON {
		if err := report.GenerateJSON(out, outcome); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(out, outcome); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	if outcome.ParallelStatus == harness.StatusFailed {
		return fmt.Errorf("parallel runner failed: %s", outcome.ParallelReason)
	}

	return nil
}

func newPlanCmd(logger *slog.Logger) *cobra.Command {
	var wf workloadFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the chunk plan as JSONL",
		Long: `Print how every parallel iteration is split into chunks, one JSON
object per chunk, using the same seed derivation as the run command.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := wf.config()
			if err := cfg.Validate(); err != nil {
				return err
			}

			summary, err := workload.NewPlanner(cfg).Write(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("write plan: %w", err)
			}

			logger.InfoContext(cmd.Context(), "plan written",
				slog.Int("iterations", summary.Iterations),
				slog.Int("chunks", summary.Chunks),
				slog.Int64("points", summary.TotalPoints),
				slog.Int64("seed", cfg.Seed),
			)

			return nil
		},
	}

	wf.register(cmd)

	return cmd
}
