package signal

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-ringdown/dsp/core"
)

// Mode is one exponentially damped cosine
// A*exp(-t/tau)*cos(2*pi*f*t + phi).
type Mode struct {
	Amplitude   float64
	Frequency   float64 // Hz
	DampingTime float64 // s
	Phase       float64 // rad
}

// At evaluates the mode t seconds after its start.
func (m Mode) At(t float64) float64 {
	return m.Amplitude * math.Exp(-t/m.DampingTime) * math.Cos(2*math.Pi*m.Frequency*t+m.Phase)
}

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg core.ProcessorConfig
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return &Generator{cfg: core.ApplyProcessorOptions(opts...)}
}

// Config returns the generator configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Tone generates amplitude*cos(2*pi*f*n/fs + phase).
func (g *Generator) Tone(freqHz, amplitude, phase float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: tone samples must be > 0: %d", samples)
	}

	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Cos(step*float64(i)+phase)
	}

	return out, nil
}

// Ringdown generates samples that are zero before refIndex and the sum of
// the given modes from refIndex on, with time measured from refIndex.
func (g *Generator) Ringdown(samples, refIndex int, modes ...Mode) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: ringdown samples must be > 0: %d", samples)
	}
	if refIndex < 0 || refIndex >= samples {
		return nil, fmt.Errorf("signal: reference index %d outside [0, %d)", refIndex, samples)
	}
	for i, m := range modes {
		if !(m.DampingTime > 0) || !core.IsFinite(m.Frequency) || !core.IsFinite(m.Amplitude) {
			return nil, fmt.Errorf("signal: mode %d: damping time must be > 0 and values finite: %+v", i, m)
		}
	}

	out := make([]float64, samples)
	dt := 1 / g.cfg.SampleRate
	for n := refIndex; n < samples; n++ {
		t := float64(n-refIndex) * dt
		for _, m := range modes {
			out[n] += m.At(t)
		}
	}

	return out, nil
}

// GaussianNoise generates zero-mean Gaussian noise with standard deviation
// sigma from the configured seed. Equal seeds give equal sequences.
func (g *Generator) GaussianNoise(sigma float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("signal: noise samples must be > 0: %d", samples)
	}
	if sigma < 0 || !core.IsFinite(sigma) {
		return nil, fmt.Errorf("signal: noise sigma must be >= 0: %f", sigma)
	}

	rng := rand.New(rand.NewPCG(g.cfg.Seed, 0x9e3779b97f4a7c15))
	out := make([]float64, samples)
	for i := range out {
		out[i] = sigma * rng.NormFloat64()
	}

	return out, nil
}

// Add returns the element-wise sum of a and b, truncated to the shorter.
func Add(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range out {
		out[i] = a[i] + b[i]
	}

	return out
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("signal: normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("signal: normalize input must not be empty")
	}

	out := make([]float64, len(data))
	peak := core.MaxAbs(data)
	if peak == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / peak
	for i, v := range data {
		out[i] = v * scale
	}

	return out, nil
}
