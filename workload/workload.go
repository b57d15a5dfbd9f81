// Package workload describes how much sampling a benchmark performs and
// how each iteration is split into independently seeded chunks.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
	mrand "math/rand"

	"github.com/weiihann/pibench/montecarlo"
)

// Default configuration values.
const (
	DefaultIterations         = 10
	DefaultPointsPerIteration = 100_000_000
	DefaultPartitionFactor    = 100
)

// Config controls a benchmark run. It is not modified once a run starts.
type Config struct {
	Iterations         int
	PointsPerIteration int64
	PartitionFactor    int
	Seed               int64
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		Iterations:         DefaultIterations,
		PointsPerIteration: DefaultPointsPerIteration,
		PartitionFactor:    DefaultPartitionFactor,
	}
}

// Validate rejects non-positive counts.
func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d: %w",
			c.Iterations, montecarlo.ErrInvalidInput)
	}

	if c.PointsPerIteration <= 0 {
		return fmt.Errorf("points per iteration must be positive, got %d: %w",
			c.PointsPerIteration, montecarlo.ErrInvalidInput)
	}

	if c.PartitionFactor <= 0 {
		return fmt.Errorf("partition factor must be positive, got %d: %w",
			c.PartitionFactor, montecarlo.ErrInvalidInput)
	}

	return nil
}

// Chunk is one independently sampled share of an iteration.
type Chunk struct {
	ID   int   `json:"id"`
	Size int64 `json:"size"`
	Seed int64 `json:"seed"`
}

// Partition splits n into at most k sizes that differ by at most one and
// sum to exactly n. The first n%k sizes carry the extra point. Fewer than
// k sizes are returned when n < k so that no chunk is empty.
func Partition(n int64, k int) []int64 {
	if n <= 0 || k <= 0 {
		return nil
	}

	parts := int64(k)
	if n < parts {
		parts = n
	}

	base := n / parts
	remainder := n % parts

	sizes := make([]int64, parts)
	for i := range sizes {
		sizes[i] = base
		if int64(i) < remainder {
			sizes[i]++
		}
	}

	return sizes
}

// Planner hands out per-iteration seeds and chunk plans derived from a
// single base seed. Two planners built from the same Config produce the
// same sequence. A Planner is not safe for concurrent use.
type Planner struct {
	cfg Config
	rng *mrand.Rand
}

// NewPlanner creates a Planner from cfg.
func NewPlanner(cfg Config) *Planner {
	return &Planner{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Seed returns the seed for the next single-stream iteration.
func (p *Planner) Seed() int64 {
	return p.rng.Int63()
}

// Chunks returns the chunk plan for the next parallel iteration.
func (p *Planner) Chunks() []Chunk {
	sizes := Partition(p.cfg.PointsPerIteration, p.cfg.PartitionFactor)

	chunks := make([]Chunk, len(sizes))
	for i, size := range sizes {
		chunks[i] = Chunk{
			ID:   i,
			Size: size,
			Seed: p.rng.Int63(),
		}
	}

	return chunks
}

// Record is one line of a written plan.
type Record struct {
	Iteration int   `json:"iteration"`
	Chunk     int   `json:"chunk"`
	Size      int64 `json:"size"`
	Seed      int64 `json:"seed"`
}

// Summary contains statistics about a written plan.
type Summary struct {
	Iterations  int
	Chunks      int
	TotalPoints int64
}

// Write emits the chunk plan of every iteration as JSONL.
func (p *Planner) Write(w io.Writer) (Summary, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var summary Summary

	for i := 0; i < p.cfg.Iterations; i++ {
		for _, c := range p.Chunks() {
			if err := enc.Encode(Record{
				Iteration: i,
				Chunk:     c.ID,
				Size:      c.Size,
				Seed:      c.Seed,
			}); err != nil {
				return summary, fmt.Errorf("encode chunk %d/%d: %w", i, c.ID, err)
			}

			summary.Chunks++
			summary.TotalPoints += c.Size
		}

		summary.Iterations++
	}

	return summary, nil
}
