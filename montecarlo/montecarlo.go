// Package montecarlo draws uniform points on the square [-1,1]x[-1,1] and
// turns the fraction that lands inside the unit disk into an estimate of π.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for sample counts or configuration values
// that cannot produce an estimate.
var ErrInvalidInput = errors.New("invalid input")

// Source supplies uniform values in [0, 1). *math/rand.Rand satisfies it.
// A Source is owned by exactly one sampling task and is never shared
// between goroutines.
type Source interface {
	Float64() float64
}

// Sample draws n points from src and returns how many fall inside the
// closed unit disk. n <= 0 returns 0 without consuming src.
func Sample(n int64, src Source) int64 {
	var hits int64

	for i := int64(0); i < n; i++ {
		x := 2*src.Float64() - 1
		y := 2*src.Float64() - 1

		if x*x+y*y <= 1 {
			hits++
		}
	}

	return hits
}

// Estimate converts a hit count over n samples into 4*hits/n.
func Estimate(hits, n int64) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("estimate over %d samples: %w", n, ErrInvalidInput)
	}

	if hits < 0 || hits > n {
		return 0, fmt.Errorf(
			"estimate with %d hits over %d samples: %w", hits, n, ErrInvalidInput,
		)
	}

	return 4 * float64(hits) / float64(n), nil
}

// AbsError returns the distance between estimate and math.Pi.
func AbsError(estimate float64) float64 {
	return math.Abs(estimate - math.Pi)
}
