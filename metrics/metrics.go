// Package metrics exposes benchmark timings as Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder receives timing events from the runners. Implementations must
// be safe for concurrent use; chunk events arrive from executor workers.
type Recorder interface {
	RecordChunk(executor string, points int64, duration time.Duration, err error)
	RecordIteration(runner string, duration time.Duration)
	RecordEstimate(runner string, absError float64)
}

// Nop discards every event.
type Nop struct{}

func (Nop) RecordChunk(string, int64, time.Duration, error) {}
func (Nop) RecordIteration(string, time.Duration)           {}
func (Nop) RecordEstimate(string, float64)                  {}

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	ChunkBuckets     []float64
	IterationBuckets []float64
}

// Exporter records events into Prometheus collectors.
type Exporter struct {
	chunkDurationSeconds     *prom.HistogramVec
	chunkPointsTotal         *prom.CounterVec
	chunkFailuresTotal       *prom.CounterVec
	iterationDurationSeconds *prom.HistogramVec
	estimateAbsError         *prom.GaugeVec
}

var _ Recorder = (*Exporter)(nil)

// NewExporter creates and registers the collectors on reg.
// Registering twice on the same registry reuses the existing collectors.
func NewExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*Exporter, error) {
	if namespace == "" {
		namespace = "pibench"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}

	chunkBuckets := opts.ChunkBuckets
	if len(chunkBuckets) == 0 {
		chunkBuckets = prom.ExponentialBuckets(0.001, 2, 14)
	}
	iterationBuckets := opts.IterationBuckets
	if len(iterationBuckets) == 0 {
		iterationBuckets = prom.ExponentialBuckets(0.01, 2, 14)
	}

	chunkDuration := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "chunk_duration_seconds",
		Help:      "Time spent sampling a single chunk.",
		Buckets:   chunkBuckets,
	}, []string{"executor"})
	chunkPoints := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_points_total",
		Help:      "Total points sampled by completed chunks.",
	}, []string{"executor"})
	chunkFailures := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "chunk_failures_total",
		Help:      "Total number of chunks that returned an error.",
	}, []string{"executor"})
	iterationDuration := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "iteration_duration_seconds",
		Help:      "Wall-clock time of one estimation iteration.",
		Buckets:   iterationBuckets,
	}, []string{"runner"})
	absError := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "estimate_abs_error",
		Help:      "Absolute error of the latest estimate against math.Pi.",
	}, []string{"runner"})

	var err error
	if chunkDuration, err = registerCollector(reg, chunkDuration); err != nil {
		return nil, err
	}
	if chunkPoints, err = registerCollector(reg, chunkPoints); err != nil {
		return nil, err
	}
	if chunkFailures, err = registerCollector(reg, chunkFailures); err != nil {
		return nil, err
	}
	if iterationDuration, err = registerCollector(reg, iterationDuration); err != nil {
		return nil, err
	}
	if absError, err = registerCollector(reg, absError); err != nil {
		return nil, err
	}

	return &Exporter{
		chunkDurationSeconds:     chunkDuration,
		chunkPointsTotal:         chunkPoints,
		chunkFailuresTotal:       chunkFailures,
		iterationDurationSeconds: iterationDuration,
		estimateAbsError:         absError,
	}, nil
}

// RecordChunk records one finished chunk. Failed chunks only count as
// failures.
func (e *Exporter) RecordChunk(executor string, points int64, duration time.Duration, err error) {
	if e == nil {
		return
	}

	label := normalizeLabel(executor)
	if err != nil {
		e.chunkFailuresTotal.WithLabelValues(label).Inc()

		return
	}

	e.chunkDurationSeconds.WithLabelValues(label).Observe(duration.Seconds())
	e.chunkPointsTotal.WithLabelValues(label).Add(float64(points))
}

// RecordIteration records the duration of one iteration.
func (e *Exporter) RecordIteration(runner string, duration time.Duration) {
	if e == nil {
		return
	}
	e.iterationDurationSeconds.WithLabelValues(normalizeLabel(runner)).Observe(duration.Seconds())
}

// RecordEstimate stores the absolute error of the latest estimate.
func (e *Exporter) RecordEstimate(runner string, absError float64) {
	if e == nil {
		return
	}
	e.estimateAbsError.WithLabelValues(normalizeLabel(runner)).Set(absError)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
