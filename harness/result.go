// Package harness runs the sequential and parallel π estimators under
// repetition and collects their timings.
package harness

// Result holds the timing and accuracy of one runner invocation.
type Result struct {
	Runner                 string  `json:"runner"`
	Executor               string  `json:"executor,omitempty"`
	Iterations             int     `json:"iterations"`
	PointsPerIteration     int64   `json:"points_per_iteration"`
	Chunks                 int     `json:"chunks,omitempty"`
	TotalDurationSeconds   float64 `json:"total_duration_seconds"`
	AverageDurationSeconds float64 `json:"average_duration_seconds"`
	FinalEstimate          float64 `json:"final_estimate"`
	MeanEstimate           float64 `json:"mean_estimate"`
	AbsoluteError          float64 `json:"absolute_error"`
	PointsPerSecond        float64 `json:"points_per_second"`
}

// Status describes what happened to the parallel runner.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome is everything a benchmark run produces. Parallel is nil unless
// ParallelStatus is StatusCompleted, in which case ParallelReason is empty.
type Outcome struct {
	Sequential     Result  `json:"sequential"`
	Parallel       *Result `json:"parallel,omitempty"`
	ParallelStatus Status  `json:"parallel_status"`
	ParallelReason string  `json:"parallel_reason,omitempty"`
}
