package anomaly

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/measure/ifreq"
	timestats "github.com/cwbudde/algo-ringdown/stats/time"
)

// Re-exported error values.
var (
	ErrInvalidParameter    = core.ErrInvalidParameter
	ErrInsufficientSamples = core.ErrInsufficientSamples
)

// DiscoveryFloor is the significance a deviation must exceed to count as
// detected.
const DiscoveryFloor = 2.0

const (
	defaultControlFraction    = 0.25
	defaultMinControlPoints   = 5
	defaultAmplitudeGate      = 0.1
	defaultMinNoiseFloor      = 1e-4
	defaultMaxPlausibleOffset = 1.0
)

// Result describes the largest deviation of a trace.
type Result struct {
	MaxDeviation  float64 // signed fractional deviation at the peak
	TimeOfMax     float64 // s relative to the reference sample
	Significance  float64 // |MaxDeviation| / NoiseFloor
	NoiseFloor    float64
	ControlPoints int
	Detected      bool

	// LowConfidence is set when the control region is too small to
	// estimate a noise floor; Significance is then zero.
	LowConfidence bool
	// Implausible is set when the deviation is too large to be physical.
	// Implausible results are never Detected.
	Implausible bool
}

type config struct {
	controlFraction  float64
	minControlPoints int
	amplitudeGate    float64
	minNoiseFloor    float64
	maxPlausible     float64
}

// Option configures a Detector.
type Option func(*config)

// WithControlFraction sets the trailing fraction of the trace used as the
// noise reference.
func WithControlFraction(f float64) Option {
	return func(c *config) {
		if f > 0 && f < 1 {
			c.controlFraction = f
		}
	}
}

// WithMinControlPoints sets how many control points a noise floor needs.
func WithMinControlPoints(n int) Option {
	return func(c *config) {
		if n >= 2 {
			c.minControlPoints = n
		}
	}
}

// WithAmplitudeGate excludes points below gate times the peak amplitude from
// the peak search.
func WithAmplitudeGate(gate float64) Option {
	return func(c *config) {
		if gate >= 0 && gate < 1 {
			c.amplitudeGate = gate
		}
	}
}

// WithMinNoiseFloor bounds the noise floor from below.
func WithMinNoiseFloor(floor float64) Option {
	return func(c *config) {
		if floor > 0 {
			c.minNoiseFloor = floor
		}
	}
}

// WithMaxPlausibleDeviation sets the fractional deviation above which a
// peak is flagged Implausible.
func WithMaxPlausibleDeviation(x float64) Option {
	return func(c *config) {
		if x > 0 {
			c.maxPlausible = x
		}
	}
}

// Detector evaluates deviation traces. It is safe for concurrent use.
type Detector struct {
	cfg config
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	cfg := config{
		controlFraction:  defaultControlFraction,
		minControlPoints: defaultMinControlPoints,
		amplitudeGate:    defaultAmplitudeGate,
		minNoiseFloor:    defaultMinNoiseFloor,
		maxPlausible:     defaultMaxPlausibleOffset,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Detector{cfg: cfg}
}

// Deviations returns (f - ref)/ref for every point.
func Deviations(trace ifreq.Trace, ref float64) []float64 {
	out := make([]float64, len(trace))
	for i, p := range trace {
		out[i] = (p.Frequency - ref) / ref
	}
	return out
}

// Detect finds the point of largest fractional deviation from
// referenceFrequency and scores it against the amplitude-weighted scatter of
// the trailing control region.
func (d *Detector) Detect(trace ifreq.Trace, referenceFrequency, tolerance float64) (Result, error) {
	if len(trace) == 0 {
		return Result{}, fmt.Errorf("anomaly: empty trace: %w", ErrInsufficientSamples)
	}
	if !core.IsFinite(referenceFrequency) || referenceFrequency <= 0 {
		return Result{}, fmt.Errorf("anomaly: reference frequency %v: %w", referenceFrequency, ErrInvalidParameter)
	}
	if !core.IsFinite(tolerance) || tolerance < 0 {
		return Result{}, fmt.Errorf("anomaly: tolerance %v: %w", tolerance, ErrInvalidParameter)
	}

	dev := Deviations(trace, referenceFrequency)
	amp := trace.Amplitudes()

	peakAmp := core.MaxAbs(amp)
	gate := d.cfg.amplitudeGate * peakAmp

	peak := -1
	for i, v := range dev {
		if !core.IsFinite(v) || (peakAmp > 0 && amp[i] < gate) {
			continue
		}
		if peak < 0 || math.Abs(v) > math.Abs(dev[peak]) {
			peak = i
		}
	}
	if peak < 0 {
		return Result{}, fmt.Errorf("anomaly: no finite point above the amplitude gate: %w", ErrInsufficientSamples)
	}

	res := Result{
		MaxDeviation: dev[peak],
		TimeOfMax:    trace[peak].Time,
	}

	n := len(trace)
	from := max(n-int(math.Ceil(d.cfg.controlFraction*float64(n))), peak+1)
	res.ControlPoints = max(n-from, 0)

	if res.ControlPoints < d.cfg.minControlPoints {
		res.LowConfidence = true
	} else {
		weights := amp[from:]
		if peakAmp == 0 {
			weights = ones(len(weights))
		}
		_, scatter, ok := timestats.WeightedMoments(dev[from:], weights)
		if !ok {
			res.LowConfidence = true
		} else {
			res.NoiseFloor = math.Max(scatter, d.cfg.minNoiseFloor)
			res.Significance = math.Abs(res.MaxDeviation) / res.NoiseFloor
		}
	}

	absDev := math.Abs(res.MaxDeviation)
	res.Implausible = absDev > d.cfg.maxPlausible
	res.Detected = !res.Implausible && absDev > tolerance && res.Significance > DiscoveryFloor

	return res, nil
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}
