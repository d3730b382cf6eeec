package time

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats holds time-domain block statistics.
type Stats struct {
	Length   int
	Mean     float64
	Variance float64 // population variance
	StdDev   float64
	RMS      float64
	Peak     float64 // max |x|
	PeakPos  int
}

// Calculate computes Stats in a single pass using Welford's update for the
// second moment.
func Calculate(signal []float64) Stats {
	n := len(signal)
	if n == 0 {
		return Stats{}
	}

	var mean, m2, sumSq, peak float64
	peakPos := 0

	for i, x := range signal {
		ni := float64(i + 1)
		delta := x - mean
		mean += delta / ni
		m2 += delta * (x - mean)

		sumSq += x * x

		if a := math.Abs(x); a > peak {
			peak = a
			peakPos = i
		}
	}

	nf := float64(n)
	variance := m2 / nf

	return Stats{
		Length:   n,
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
		RMS:      math.Sqrt(sumSq / nf),
		Peak:     peak,
		PeakPos:  peakPos,
	}
}

// RMS returns the root mean square of signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	sum := 0.0
	for _, x := range signal {
		sum += x * x
	}

	return math.Sqrt(sum / float64(len(signal)))
}

// WeightedMoments returns the weighted mean and weighted population standard
// deviation of x. Non-positive and non-finite weights are skipped. ok is
// false when no weight remains.
func WeightedMoments(x, w []float64) (mean, stddev float64, ok bool) {
	xs, ws := positiveWeights(x, w)
	if len(ws) == 0 {
		return 0, 0, false
	}

	mean, stddev = stat.PopMeanStdDev(xs, ws)
	return mean, stddev, true
}

// EffectiveSampleSize returns Kish's (sum w)^2 / sum w^2 over positive
// weights.
func EffectiveSampleSize(w []float64) float64 {
	_, ws := positiveWeights(w, w)
	s2 := floats.Dot(ws, ws)
	if s2 == 0 {
		return 0
	}

	s1 := floats.Sum(ws)
	return s1 * s1 / s2
}

func positiveWeights(x, w []float64) (xs, ws []float64) {
	n := min(len(x), len(w))
	xs = make([]float64, 0, n)
	ws = make([]float64, 0, n)
	for i := range n {
		if w[i] > 0 && !math.IsInf(w[i], 0) {
			xs = append(xs, x[i])
			ws = append(ws, w[i])
		}
	}
	return xs, ws
}
