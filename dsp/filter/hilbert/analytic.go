package hilbert

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/spectrum"
)

// Analytic returns the analytic signal of x.
func Analytic(x []float64) ([]complex128, error) {
	n := len(x)
	if n == 0 {
		return nil, fmt.Errorf("hilbert: empty input: %w", core.ErrInvalidParameter)
	}

	fftSize := core.NextPowerOf2(2 * n)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("hilbert: failed to create FFT plan: %w", err)
	}

	padded := make([]complex128, fftSize)
	for i, v := range x {
		padded[i] = complex(v, 0)
	}

	freq := make([]complex128, fftSize)
	if err := plan.Forward(freq, padded); err != nil {
		return nil, fmt.Errorf("hilbert: forward FFT failed: %w", err)
	}

	// DC and Nyquist keep unit weight.
	half := fftSize / 2
	for k := 1; k < half; k++ {
		freq[k] *= 2
	}
	for k := half + 1; k < fftSize; k++ {
		freq[k] = 0
	}

	if err := plan.Inverse(padded, freq); err != nil {
		return nil, fmt.Errorf("hilbert: inverse FFT failed: %w", err)
	}

	out := make([]complex128, n)
	copy(out, padded[:n])

	return out, nil
}

// Envelope returns the instantaneous amplitude |x + jH{x}|.
func Envelope(x []float64) ([]float64, error) {
	z, err := Analytic(x)
	if err != nil {
		return nil, err
	}

	return spectrum.Magnitude(z), nil
}
