// Package report formats benchmark outcomes into comparison tables.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/weiihann/pibench/harness"
)

// Generate writes a markdown comparison table for the given outcome.
func Generate(w io.Writer, outcome *harness.Outcome) error {
	if outcome == nil {
		return fmt.Errorf("no results to report")
	}

	results := []harness.Result{outcome.Sequential}
	if outcome.Parallel != nil {
		results = append(results, *outcome.Parallel)
	}

	baseline := outcome.Sequential.TotalDurationSeconds

	// Header.
	fmt.Fprintln(w, "## Benchmark Results")
	fmt.Fprintln(w)

	// Table header.
	fmt.Fprintln(w, "| Runner | Executor | Total | Per Iteration "+
		"| Estimate | Error | Throughput | Speedup |")
	fmt.Fprintln(w, "|--------|----------|-------|---------------"+
		"|----------|-------|------------|---------|")

	for _, r := range results {
		speedup := 1.0
		if baseline > 0 && r.TotalDurationSeconds > 0 {
			speedup = baseline / r.TotalDurationSeconds
		}

		fmt.Fprintf(w, "| %s | %s | %s | %s | %.10f | %.6f | %s | %.2fx |\n",
			r.Runner,
			orDash(r.Executor),
			formatSeconds(r.TotalDurationSeconds),
			formatSeconds(r.AverageDurationSeconds),
			r.FinalEstimate,
			r.AbsoluteError,
			formatRate(r.PointsPerSecond),
			speedup,
		)
	}

	fmt.Fprintln(w)

	// Detail rows.
	fmt.Fprintln(w, "| Runner | Iterations | Points/Iteration | Chunks | Mean Estimate |")
	fmt.Fprintln(w, "|--------|------------|------------------|--------|---------------|")

	for _, r := range results {
		chunks := "-"
		if r.Chunks > 0 {
			chunks = fmt.Sprintf("%d", r.Chunks)
		}

		fmt.Fprintf(w, "| %s | %d | %d | %s | %.10f |\n",
			r.Runner,
			r.Iterations,
			r.PointsPerIteration,
			chunks,
			r.MeanEstimate,
		)
	}

	// Parallel status.
	if outcome.Parallel == nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Parallel runner: **%s**", orDefault(string(outcome.ParallelStatus), "skipped"))

		if outcome.ParallelReason != "" {
			fmt.Fprintf(w, " (%s)", outcome.ParallelReason)
		}

		fmt.Fprintln(w)
	}

	return nil
}

// GenerateJSON writes the outcome as JSON to w.
func GenerateJSON(w io.Writer, outcome *harness.Outcome) error {
	if outcome == nil {
		return fmt.Errorf("no results to report")
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(outcome)
}

func orDash(s string) string {
	return orDefault(s, "-")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}

func formatSeconds(s float64) string {
	if s < 1 {
		return fmt.Sprintf("%dms", int64(s*1000))
	}

	return fmt.Sprintf("%.2fs", s)
}

func formatRate(perSecond float64) string {
	if perSecond <= 0 {
		return "-"
	}

	units := []string{"", "K", "M", "G", "T"}
	size := perSecond
	unit := 0

	for size >= 1000 && unit < len(units)-1 {
		size /= 1000
		unit++
	}

	formatted := fmt.Sprintf("%.2f", size)
	if strings.Contains(formatted, ".") {
		formatted = strings.TrimRight(formatted, "0")
		formatted = strings.TrimRight(formatted, ".")
	}

	return formatted + units[unit] + " pts/s"
}
