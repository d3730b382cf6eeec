package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/window"
)

// Periodogram returns the one-sided power spectrum of x after a Hann
// window, zero padded to the next power of two of at least minSize points.
// freqs holds the bin centres in Hz.
func Periodogram(x []float64, sampleRate float64, minSize int) (freqs, power []float64, err error) {
	if len(x) < 2 {
		return nil, nil, fmt.Errorf("spectrum: periodogram needs at least 2 samples, got %d: %w", len(x), core.ErrInvalidParameter)
	}
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, nil, fmt.Errorf("spectrum: sample rate %v: %w", sampleRate, core.ErrInvalidParameter)
	}

	fftSize := core.NextPowerOf2(max(minSize, len(x)))

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	tapered := make([]float64, len(x))
	copy(tapered, x)
	window.Apply(window.TypeHann, tapered)

	in := make([]complex128, fftSize)
	for i, v := range tapered {
		in[i] = complex(v, 0)
	}

	bins := make([]complex128, fftSize)
	if err := plan.Forward(bins, in); err != nil {
		return nil, nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	half := fftSize/2 + 1
	power = Power(bins[:half])
	freqs = make([]float64, half)
	df := sampleRate / float64(fftSize)
	for k := range freqs {
		freqs[k] = float64(k) * df
	}

	return freqs, power, nil
}

// PeakInBand returns the frequency of the largest power bin within
// [low, high], refined by a parabola through the log power of the peak and
// its neighbours. Peaks on the band edge are returned unrefined.
func PeakInBand(freqs, power []float64, low, high float64) (float64, error) {
	if len(freqs) != len(power) {
		return 0, fmt.Errorf("spectrum: %d frequencies for %d bins: %w", len(freqs), len(power), core.ErrInvalidParameter)
	}

	best, first, last := -1, -1, -1
	for k, f := range freqs {
		if f < low || f > high {
			continue
		}
		if first < 0 {
			first = k
		}
		last = k
		if best < 0 || power[k] > power[best] {
			best = k
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("spectrum: no bins in [%v, %v] Hz: %w", low, high, core.ErrInvalidParameter)
	}
	if best == first || best == last || power[best] <= 0 {
		return freqs[best], nil
	}

	a := math.Log(math.Max(power[best-1], math.SmallestNonzeroFloat64))
	b := math.Log(power[best])
	c := math.Log(math.Max(power[best+1], math.SmallestNonzeroFloat64))

	den := a - 2*b + c
	if den >= 0 {
		return freqs[best], nil
	}

	delta := 0.5 * (a - c) / den
	df := freqs[best+1] - freqs[best]

	return freqs[best] + delta*df, nil
}
