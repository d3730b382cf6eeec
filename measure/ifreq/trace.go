package ifreq

import (
	timestats "github.com/cwbudde/algo-ringdown/stats/time"
)

// Band is a pass band in Hz.
type Band struct {
	Low  float64
	High float64
}

// Center returns the arithmetic band centre.
func (b Band) Center() float64 { return 0.5 * (b.Low + b.High) }

// BandAround returns [lowFactor*f, highFactor*f].
func BandAround(f, lowFactor, highFactor float64) Band {
	return Band{Low: lowFactor * f, High: highFactor * f}
}

// Point is one instantaneous estimate. Time is in seconds relative to the
// reference sample.
type Point struct {
	Time      float64
	Frequency float64
	Amplitude float64
}

// Trace is a time-ordered sequence of estimates.
type Trace []Point

// Times returns the time column.
func (tr Trace) Times() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.Time
	}
	return out
}

// Frequencies returns the frequency column.
func (tr Trace) Frequencies() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.Frequency
	}
	return out
}

// Amplitudes returns the amplitude column.
func (tr Trace) Amplitudes() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.Amplitude
	}
	return out
}

// WeightedMeanFrequency returns the amplitude-weighted mean frequency and
// its weighted scatter. ok is false for an empty or silent trace.
func (tr Trace) WeightedMeanFrequency() (mean, scatter float64, ok bool) {
	return timestats.WeightedMoments(tr.Frequencies(), tr.Amplitudes())
}
