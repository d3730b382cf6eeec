package qnm

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/interp"
)

// Re-exported error values.
var (
	ErrInvalidParameter = core.ErrInvalidParameter
	ErrOutOfRange       = core.ErrOutOfRange
)

const (
	// DefaultOvertoneFrequencyRatio is the overtone-to-fundamental frequency
	// ratio used to seed two-mode fits.
	DefaultOvertoneFrequencyRatio = 1.58
	// DefaultOvertoneDampingRatio is the overtone-to-fundamental damping
	// time ratio.
	DefaultOvertoneDampingRatio = 0.35
)

// Prediction is the ring-down frequency and damping time expected for a
// remnant. Mass and Spin echo the inputs.
type Prediction struct {
	Mass        float64 // solar masses, source frame
	Spin        float64 // dimensionless
	Frequency   float64 // Hz
	DampingTime float64 // s
}

// QualityFactor returns pi*f*tau, the number of radians of oscillation per
// e-fold of decay.
func (p Prediction) QualityFactor() float64 {
	return math.Pi * p.Frequency * p.DampingTime
}

// Model predicts ring-down modes from a tabulated mode. It is immutable
// after construction and safe for concurrent use.
type Model struct {
	redshift      float64
	overtoneFreq  float64
	overtoneDamp  float64
	overtoneTable *interp.MonotoneCubic // spin -> frequency ratio, optional
	spinLo        float64
	spinHi        float64
	re            *interp.MonotoneCubic
	im            *interp.MonotoneCubic
	schwarzschild float64
}

// Option configures a Model.
type Option func(*Model) error

// WithRedshift converts source-frame masses to the detector frame by the
// factor (1+z). Predictions then describe the signal as observed.
func WithRedshift(z float64) Option {
	return func(m *Model) error {
		if !core.IsFinite(z) || z < 0 {
			return fmt.Errorf("qnm: redshift %v: %w", z, ErrInvalidParameter)
		}
		m.redshift = z
		return nil
	}
}

// WithOvertoneRatios overrides the overtone frequency and damping-time
// ratios relative to the fundamental.
func WithOvertoneRatios(frequency, damping float64) Option {
	return func(m *Model) error {
		if !(frequency > 0) || !(damping > 0) || !core.IsFinite(frequency) || !core.IsFinite(damping) {
			return fmt.Errorf("qnm: overtone ratios (%v, %v): %w", frequency, damping, ErrInvalidParameter)
		}
		m.overtoneFreq = frequency
		m.overtoneDamp = damping
		return nil
	}
}

// WithOvertoneRatioTable makes the overtone frequency ratio depend on spin,
// interpolated through (spins[i], ratios[i]) and clamped outside the table.
// It takes precedence over the constant ratio of WithOvertoneRatios.
func WithOvertoneRatioTable(spins, ratios []float64) Option {
	return func(m *Model) error {
		for _, r := range ratios {
			if !(r > 0) {
				return fmt.Errorf("qnm: overtone ratio %v: %w", r, ErrInvalidParameter)
			}
		}
		t, err := interp.NewMonotoneCubic(spins, ratios)
		if err != nil {
			return fmt.Errorf("qnm: overtone ratio table: %w", err)
		}
		m.overtoneTable = t
		return nil
	}
}

// New builds a Model over the Kerr220 table.
func New(opts ...Option) (*Model, error) {
	spin, re, im := columns(Kerr220)

	reInterp, err := interp.NewMonotoneCubic(spin, re)
	if err != nil {
		return nil, fmt.Errorf("qnm: real table: %w", err)
	}
	imInterp, err := interp.NewMonotoneCubic(spin, im)
	if err != nil {
		return nil, fmt.Errorf("qnm: imaginary table: %w", err)
	}

	m := &Model{
		overtoneFreq:  DefaultOvertoneFrequencyRatio,
		overtoneDamp:  DefaultOvertoneDampingRatio,
		re:            reInterp,
		im:            imInterp,
		schwarzschild: re[0],
	}
	m.spinLo, m.spinHi = reInterp.Domain()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Default returns a source-frame Model with the default overtone ratios.
func Default() *Model {
	m, err := New()
	if err != nil {
		panic(err)
	}

	return m
}

// Redshift returns the configured redshift.
func (m *Model) Redshift() float64 { return m.redshift }

// SpinRange returns the tabulated spin interval.
func (m *Model) SpinRange() (lo, hi float64) { return m.spinLo, m.spinHi }

// Predict returns the fundamental mode for a remnant of the given mass in
// solar masses and dimensionless spin.
func (m *Model) Predict(mass, spin float64) (Prediction, error) {
	if err := m.validate(mass, spin); err != nil {
		return Prediction{}, err
	}

	t := m.timeScale(mass)

	return Prediction{
		Mass:        mass,
		Spin:        spin,
		Frequency:   m.re.At(spin) / (2 * math.Pi * t),
		DampingTime: t / m.im.At(spin),
	}, nil
}

// PredictOvertone returns the first-overtone prediction obtained by scaling
// the fundamental with the model's overtone ratios.
func (m *Model) PredictOvertone(mass, spin float64) (Prediction, error) {
	p, err := m.Predict(mass, spin)
	if err != nil {
		return Prediction{}, err
	}

	p.Frequency *= m.OvertoneRatio(spin)
	p.DampingTime *= m.overtoneDamp

	return p, nil
}

// OvertoneRatio returns the expected overtone-to-fundamental frequency ratio
// at the given spin. Without WithOvertoneRatioTable the ratio is the same
// constant for every spin.
func (m *Model) OvertoneRatio(spin float64) float64 {
	if m.overtoneTable != nil {
		return m.overtoneTable.At(spin)
	}
	return m.overtoneFreq
}

// OvertoneDampingRatio returns the expected overtone-to-fundamental
// damping-time ratio.
func (m *Model) OvertoneDampingRatio() float64 { return m.overtoneDamp }

// FrequencyFactor returns the Kerr frequency relative to a non-rotating
// remnant of the same mass. Spins outside the table are clamped.
func (m *Model) FrequencyFactor(spin float64) float64 {
	return m.re.At(spin) / m.schwarzschild
}

// InferSpin returns the spin at which a remnant of the given mass rings at
// frequency. It fails with ErrOutOfRange when no tabulated spin produces it.
func (m *Model) InferSpin(mass, frequency float64) (float64, error) {
	if !core.IsFinite(mass) || mass <= 0 {
		return 0, fmt.Errorf("qnm: mass %v: %w", mass, ErrInvalidParameter)
	}
	if !core.IsFinite(frequency) || frequency <= 0 {
		return 0, fmt.Errorf("qnm: frequency %v: %w", frequency, ErrInvalidParameter)
	}

	target := frequency * 2 * math.Pi * m.timeScale(mass)

	lo, hi := m.spinLo, m.spinHi
	reLo, reHi := m.re.At(lo), m.re.At(hi)
	if target < reLo || target > reHi {
		return 0, fmt.Errorf("qnm: %.2f Hz outside spin table for mass %v: %w", frequency, mass, ErrOutOfRange)
	}

	for i := 0; i < 100 && hi-lo > 1e-12; i++ {
		mid := 0.5 * (lo + hi)
		if m.re.At(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}

	return 0.5 * (lo + hi), nil
}

func (m *Model) validate(mass, spin float64) error {
	if !core.IsFinite(mass) || mass <= 0 {
		return fmt.Errorf("qnm: mass %v: %w", mass, ErrInvalidParameter)
	}
	if !core.IsFinite(spin) || spin < 0 || spin >= 1 {
		return fmt.Errorf("qnm: spin %v not in [0, 1): %w", spin, ErrInvalidParameter)
	}
	if spin < m.spinLo || spin > m.spinHi {
		return fmt.Errorf("qnm: spin %v beyond table [%v, %v]: %w", spin, m.spinLo, m.spinHi, ErrOutOfRange)
	}

	return nil
}

// timeScale returns the detector-frame mass in seconds.
func (m *Model) timeScale(mass float64) float64 {
	return mass * (1 + m.redshift) * SolarMassSeconds
}
