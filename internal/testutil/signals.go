// Package testutil holds deterministic signal builders and tolerance
// helpers shared by package tests.
package testutil

import (
	"math"
	"math/rand/v2"
)

// Cosine generates amplitude*cos(2*pi*f*n/fs + phase).
func Cosine(freqHz, sampleRate, amplitude, phase float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Cos(step*float64(i)+phase)
	}
	return out
}

// SteppedTone generates a phase-continuous unit tone at f1 that switches to
// f2 at sample step.
func SteppedTone(f1, f2, sampleRate float64, step, length int) []float64 {
	out := make([]float64, length)
	phase := 0.0
	for i := range out {
		out[i] = math.Cos(phase)
		f := f1
		if i >= step {
			f = f2
		}
		phase += 2 * math.Pi * f / sampleRate
	}
	return out
}

// GaussianNoise generates zero-mean Gaussian noise with a fixed seed.
func GaussianNoise(seed uint64, sigma float64, length int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
	out := make([]float64, length)
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}
	return out
}

// Add adds b into a element-wise over the shorter length and returns a.
func Add(a, b []float64) []float64 {
	for i := range min(len(a), len(b)) {
		a[i] += b[i]
	}
	return a
}
