package pass

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/filter/biquad"
)

// ButterworthLP designs a low-pass Butterworth cascade of the given order.
func ButterworthLP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, LowpassRBJ(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}

	return sections
}

// ButterworthHP designs a high-pass Butterworth cascade of the given order.
func ButterworthHP(freq float64, order int, sampleRate float64) []biquad.Coefficients {
	if order <= 0 {
		return nil
	}

	sections := make([]biquad.Coefficients, 0, (order+1)/2)
	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, HighpassRBJ(freq, butterworthQ(order, i), sampleRate))
	}
	if order%2 != 0 {
		sections = append(sections, firstOrderHP(freq, sampleRate))
	}

	return sections
}

// ButterworthBandpass cascades a high-pass at low with a low-pass at high,
// each of the given order. Unlike the single-section constant-skirt band-pass
// this keeps a flat pass band across wide bands such as 150-400 Hz.
func ButterworthBandpass(low, high float64, order int, sampleRate float64) ([]biquad.Coefficients, error) {
	if err := ValidateBand(low, high, sampleRate); err != nil {
		return nil, err
	}
	if order <= 0 {
		return nil, fmt.Errorf("pass: filter order %d: %w", order, core.ErrInvalidParameter)
	}

	hp := ButterworthHP(low, order, sampleRate)
	lp := ButterworthLP(high, order, sampleRate)

	return append(hp, lp...), nil
}

// ValidateBand checks 0 < low < high < Nyquist for a finite sample rate.
func ValidateBand(low, high, sampleRate float64) error {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return fmt.Errorf("pass: sample rate %v: %w", sampleRate, core.ErrInvalidParameter)
	}
	if !core.IsFinite(low) || !core.IsFinite(high) || low <= 0 || high <= low || high >= sampleRate/2 {
		return fmt.Errorf("pass: band [%v, %v] Hz at %v Hz: %w", low, high, sampleRate, core.ErrInvalidParameter)
	}

	return nil
}

// butterworthQ returns the quality factor of biquad section index
// (0 <= index < order/2).
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return defaultQ
	}

	return 1 / (2 * s)
}

func firstOrderLP(freq, sampleRate float64) biquad.Coefficients {
	k, ok := bilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: k * norm, B1: k * norm, A1: (k - 1) * norm}
}

func firstOrderHP(freq, sampleRate float64) biquad.Coefficients {
	k, ok := bilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{B0: norm, B1: -norm, A1: (k - 1) * norm}
}

// bilinearK returns the prewarped tan(pi*freq/sampleRate).
func bilinearK(freq, sampleRate float64) (float64, bool) {
	if sampleRate <= 0 || freq <= 0 || freq >= sampleRate/2 {
		return 0, false
	}

	return math.Tan(math.Pi * freq / sampleRate), true
}
