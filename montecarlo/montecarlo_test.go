package montecarlo

import (
	"errors"
	"math"
	mrand "math/rand"
	"testing"
)

// replaySource yields a fixed sequence of values, then repeats it.
type replaySource struct {
	values []float64
	pos    int
}

func (s *replaySource) Float64() float64 {
	v := s.values[s.pos%len(s.values)]
	s.pos++

	return v
}

// coords converts points on [-1,1]^2 into the [0,1) values Sample maps
// back onto them.
func coords(points ...[2]float64) []float64 {
	out := make([]float64, 0, 2*len(points))
	for _, p := range points {
		out = append(out, (p[0]+1)/2, (p[1]+1)/2)
	}

	return out
}

func TestSampleKnownPoints(t *testing.T) {
	src := &replaySource{values: coords(
		[2]float64{0, 0},
		[2]float64{1, 1},
		[2]float64{0.5, 0.5},
		[2]float64{-1, 0},
	)}

	got := Sample(4, src)
	if got != 3 {
		t.Errorf("hits = %d, want 3", got)
	}
}

func TestSampleOutsidePoint(t *testing.T) {
	src := &replaySource{values: coords([2]float64{-1, 0.1})}

	if got := Sample(1, src); got != 0 {
		t.Errorf("hits = %d, want 0 for x²+y² = 1.01", got)
	}
}

func TestSampleZero(t *testing.T) {
	src := &replaySource{values: []float64{0.5}}

	if got := Sample(0, src); got != 0 {
		t.Errorf("hits = %d, want 0", got)
	}
	if src.pos != 0 {
		t.Errorf("consumed %d values for n=0, want 0", src.pos)
	}
}

func TestSampleBounded(t *testing.T) {
	rng := mrand.New(mrand.NewSource(7))

	for _, n := range []int64{1, 10, 1000} {
		hits := Sample(n, rng)
		if hits < 0 || hits > n {
			t.Errorf("Sample(%d) = %d, out of [0, %d]", n, hits, n)
		}
	}
}

func TestSampleChunkingInvariant(t *testing.T) {
	const n = 1000

	rng := mrand.New(mrand.NewSource(42))
	stream := make([]float64, 2*n)
	for i := range stream {
		stream[i] = rng.Float64()
	}

	whole := Sample(n, &replaySource{values: stream})

	for _, sizes := range [][]int64{
		{1000},
		{500, 500},
		{334, 333, 333},
		{1, 999},
		{100, 100, 100, 100, 100, 100, 100, 100, 100, 100},
	} {
		var total int64
		offset := 0

		for _, size := range sizes {
			seg := stream[offset : offset+2*int(size)]
			total += Sample(size, &replaySource{values: seg})
			offset += 2 * int(size)
		}

		if total != whole {
			t.Errorf("chunks %v: hits = %d, want %d", sizes, total, whole)
		}
	}
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		hits, n int64
		want    float64
	}{
		{0, 10, 0},
		{10, 10, 4},
		{1, 4, 1},
		{785, 1000, 3.14},
		{3, 4, 3},
	}

	for _, tt := range tests {
		got, err := Estimate(tt.hits, tt.n)
		if err != nil {
			t.Fatalf("Estimate(%d, %d) failed: %v", tt.hits, tt.n, err)
		}
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Estimate(%d, %d) = %v, want %v", tt.hits, tt.n, got, tt.want)
		}
	}
}

func TestEstimateRange(t *testing.T) {
	for n := int64(1); n <= 50; n++ {
		for hits := int64(0); hits <= n; hits++ {
			got, err := Estimate(hits, n)
			if err != nil {
				t.Fatalf("Estimate(%d, %d) failed: %v", hits, n, err)
			}
			if got < 0 || got > 4 {
				t.Errorf("Estimate(%d, %d) = %v, out of [0, 4]", hits, n, got)
			}
		}
	}
}

func TestEstimateInvalid(t *testing.T) {
	tests := []struct {
		name    string
		hits, n int64
	}{
		{"zero samples", 0, 0},
		{"zero samples with hits", 5, 0},
		{"negative samples", 0, -3},
		{"hits above samples", 11, 10},
		{"negative hits", -1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(tt.hits, tt.n)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestEstimateConverges(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test skipped in short mode")
	}

	const (
		n      = 1_000_000
		trials = 100
	)

	rng := mrand.New(mrand.NewSource(2024))
	within := 0

	for i := 0; i < trials; i++ {
		est, err := Estimate(Sample(n, rng), n)
		if err != nil {
			t.Fatalf("Estimate failed: %v", err)
		}
		if AbsError(est) <= 0.01 {
			within++
		}
	}

	if within < 95 {
		t.Errorf("%d/%d trials within 0.01 of π, want >= 95", within, trials)
	}
}

func TestAbsError(t *testing.T) {
	if got := AbsError(math.Pi); got != 0 {
		t.Errorf("AbsError(π) = %v, want 0", got)
	}
	if got := AbsError(3); math.Abs(got-(math.Pi-3)) > 1e-15 {
		t.Errorf("AbsError(3) = %v, want %v", got, math.Pi-3)
	}
}
