package modefit

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/spectrum"
	"github.com/cwbudde/algo-ringdown/internal/lsq"
	"github.com/cwbudde/algo-ringdown/qnm"
)

// Re-exported error values.
var (
	ErrInvalidParameter    = core.ErrInvalidParameter
	ErrInsufficientSamples = core.ErrInsufficientSamples
	ErrFitDivergence       = core.ErrFitDivergence
)

const (
	defaultWindowStart    = 0.0
	defaultWindowDuration = 0.03
	defaultMaxIterations  = 200
	defaultFrequencyBand  = 0.2
	defaultMinSamples     = 50
	minSamplesFloor       = 2 * numModes * paramsPerMode

	// periodogramSize zero-pads short windows so the seed peak is resolved
	// finer than the band.
	periodogramSize = 8192
)

// Mode is one fitted damped cosine with 1-sigma uncertainties. The *Err
// fields are NaN when the fit covariance is unusable.
type Mode struct {
	Amplitude   float64
	Frequency   float64 // Hz
	DampingTime float64 // s
	Phase       float64 // rad, wrapped to (-pi, pi]

	AmplitudeErr   float64
	FrequencyErr   float64
	DampingTimeErr float64
	PhaseErr       float64
}

// QualityFactor returns pi*f*tau.
func (m Mode) QualityFactor() float64 { return math.Pi * m.Frequency * m.DampingTime }

// Result is a two-mode fit and its comparison against the expected
// overtone ratio.
type Result struct {
	Fundamental Mode
	Overtone    Mode

	ObservedRatio    float64 // overtone over fundamental frequency
	PredictedRatio   float64
	RatioDeviation   float64 // (observed - predicted) / predicted
	RatioUncertainty float64 // 1-sigma of ObservedRatio

	// UnreliableUncertainty is set when the covariance is singular or has a
	// non-positive diagonal entry.
	UnreliableUncertainty bool
	// AtBound is set when a frequency or damping time ended on its bound.
	AtBound bool

	Iterations  int
	ResidualRMS float64 // in signal units
	Samples     int
}

type config struct {
	start, duration float64
	maxIterations   int
	band            float64
	minSamples      int
	spectralSeed    bool
}

// Option configures a Fitter.
type Option func(*config)

// WithWindow sets the fit window relative to the reference sample.
func WithWindow(start, duration float64) Option {
	return func(c *config) {
		if core.IsFinite(start) && core.IsFinite(duration) && duration > 0 {
			c.start, c.duration = start, duration
		}
	}
}

// WithMaxIterations sets the optimizer budget.
func WithMaxIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithFrequencyBand sets the fractional band each frequency may move away
// from its predicted value.
func WithFrequencyBand(frac float64) Option {
	return func(c *config) {
		if frac > 0 && frac < 1 {
			c.band = frac
		}
	}
}

// WithMinSamples sets the shortest window the fitter accepts.
func WithMinSamples(n int) Option {
	return func(c *config) {
		c.minSamples = max(n, minSamplesFloor)
	}
}

// WithSpectralSeed toggles refining the fundamental seed to the periodogram
// peak.
func WithSpectralSeed(enabled bool) Option {
	return func(c *config) {
		c.spectralSeed = enabled
	}
}

// Fitter performs two-mode fits. It is immutable and safe for concurrent use.
type Fitter struct {
	model *qnm.Model
	cfg   config
}

// New creates a Fitter that takes overtone ratios from model. A nil model
// uses qnm.Default.
func New(model *qnm.Model, opts ...Option) *Fitter {
	if model == nil {
		model = qnm.Default()
	}

	cfg := config{
		start:         defaultWindowStart,
		duration:      defaultWindowDuration,
		maxIterations: defaultMaxIterations,
		band:          defaultFrequencyBand,
		minSamples:    defaultMinSamples,
		spectralSeed:  true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Fitter{model: model, cfg: cfg}
}

// Fit fits the two-mode model to the window of signal that starts at
// refIndex plus the configured offset.
func (f *Fitter) Fit(signal []float64, sampleRate float64, refIndex int, pred qnm.Prediction) (Result, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return Result{}, fmt.Errorf("modefit: sample rate %v: %w", sampleRate, ErrInvalidParameter)
	}
	if !core.IsFinite(pred.Frequency) || pred.Frequency <= 0 ||
		!core.IsFinite(pred.DampingTime) || pred.DampingTime <= 0 {
		return Result{}, fmt.Errorf("modefit: prediction f=%v tau=%v: %w", pred.Frequency, pred.DampingTime, ErrInvalidParameter)
	}
	if refIndex < 0 || refIndex >= len(signal) {
		return Result{}, fmt.Errorf("modefit: reference index %d outside %d samples: %w", refIndex, len(signal), ErrInvalidParameter)
	}

	from := refIndex + int(math.Round(f.cfg.start*sampleRate))
	to := min(from+int(math.Round(f.cfg.duration*sampleRate)), len(signal))
	if from < 0 {
		return Result{}, fmt.Errorf("modefit: window starts %d samples before the signal: %w", -from, ErrInvalidParameter)
	}
	if to-from < f.cfg.minSamples {
		return Result{}, fmt.Errorf("modefit: %d samples in window, need %d: %w", max(to-from, 0), f.cfg.minSamples, ErrInsufficientSamples)
	}

	segment := signal[from:to]
	if !core.AllFinite(segment) {
		return Result{}, fmt.Errorf("modefit: non-finite samples in window: %w", ErrInvalidParameter)
	}
	scale := core.MaxAbs(segment)
	if scale == 0 {
		return Result{}, fmt.Errorf("modefit: silent window: %w", ErrInvalidParameter)
	}

	n := len(segment)
	y := make([]float64, n)
	for i, v := range segment {
		y[i] = v / scale
	}

	ratio := f.model.OvertoneRatio(pred.Spin)
	f0 := pred.Frequency
	if f.cfg.spectralSeed {
		f0 = f.spectralPeak(y, sampleRate, f0)
	}
	f1 := ratio * f0

	// Boxes are centred on the prediction; the spectral seed only moves the
	// starting point inside them.
	centres := []float64{pred.Frequency, ratio * pred.Frequency}
	if (1-f.cfg.band)*centres[1] >= sampleRate/2 {
		return Result{}, fmt.Errorf("modefit: overtone band from %.1f Hz above Nyquist: %w", (1-f.cfg.band)*centres[1], ErrInvalidParameter)
	}

	windowLen := float64(n) / sampleRate
	tauMin := 1 / sampleRate
	tau0 := core.Clamp(pred.DampingTime, tauMin, windowLen)
	tau1 := core.Clamp(pred.DampingTime*f.model.OvertoneDampingRatio(), tauMin, windowLen)

	sum := newDampedSum(n, sampleRate)
	freqs := []float64{f0, f1}
	taus := []float64{tau0, tau1}
	amps, phases, ok := sum.linearSeed(y, freqs, taus)
	if !ok {
		amps, phases = []float64{1, 0.5}, []float64{0, 0}
	}

	x0 := make([]float64, numModes*paramsPerMode)
	lower := make([]float64, len(x0))
	upper := make([]float64, len(x0))
	for k := range numModes {
		off := k * paramsPerMode
		x0[off+idxAmp] = amps[k]
		x0[off+idxFreq] = freqs[k]
		x0[off+idxTau] = taus[k]
		x0[off+idxPhase] = phases[k]

		lower[off+idxAmp], upper[off+idxAmp] = 0, math.Inf(1)
		lower[off+idxFreq] = (1 - f.cfg.band) * centres[k]
		upper[off+idxFreq] = math.Min((1+f.cfg.band)*centres[k], sampleRate/2)
		x0[off+idxFreq] = core.Clamp(freqs[k], lower[off+idxFreq], upper[off+idxFreq])
		lower[off+idxTau], upper[off+idxTau] = tauMin, windowLen
		lower[off+idxPhase], upper[off+idxPhase] = math.Inf(-1), math.Inf(1)
	}

	sol, err := lsq.Solve(lsq.Problem{
		M:        n,
		Residual: sum.residual(y),
		Jacobian: sum.jacobian,
		Lower:    lower,
		Upper:    upper,
	}, x0, lsq.WithMaxIterations(f.cfg.maxIterations))
	if err != nil {
		return Result{}, fmt.Errorf("modefit: %w", err)
	}

	res := Result{
		Iterations:     sol.Iterations,
		ResidualRMS:    scale * math.Sqrt(sol.Cost/float64(n)),
		Samples:        n,
		PredictedRatio: ratio,
	}

	res.UnreliableUncertainty = sol.Covariance == nil
	for i := range x0 {
		if !(sol.StdErr(i) > 0) {
			res.UnreliableUncertainty = true
		}
	}
	for k := range numModes {
		off := k * paramsPerMode
		if sol.AtBound[off+idxFreq] || sol.AtBound[off+idxTau] {
			res.AtBound = true
		}
	}

	res.Fundamental = extractMode(sol, 0, scale, res.UnreliableUncertainty)
	res.Overtone = extractMode(sol, 1, scale, res.UnreliableUncertainty)

	res.ObservedRatio = res.Overtone.Frequency / res.Fundamental.Frequency
	res.RatioDeviation = (res.ObservedRatio - ratio) / ratio
	res.RatioUncertainty = math.NaN()
	if !res.UnreliableUncertainty {
		res.RatioUncertainty = ratioStdErr(sol, res.ObservedRatio)
	}

	return res, nil
}

// spectralPeak returns the periodogram peak within the fundamental band, or
// seed when the window has no usable peak there.
func (f *Fitter) spectralPeak(y []float64, sampleRate, seed float64) float64 {
	freqs, power, err := spectrum.Periodogram(y, sampleRate, periodogramSize)
	if err != nil {
		return seed
	}
	peak, err := spectrum.PeakInBand(freqs, power, (1-f.cfg.band)*seed, (1+f.cfg.band)*seed)
	if err != nil || peak <= 0 {
		return seed
	}
	return peak
}

func extractMode(sol lsq.Result, k int, scale float64, unreliable bool) Mode {
	off := k * paramsPerMode
	p := sol.Params[off:]

	m := Mode{
		Amplitude:   scale * p[idxAmp],
		Frequency:   p[idxFreq],
		DampingTime: p[idxTau],
		Phase:       core.WrapPhase(p[idxPhase]),
	}

	if unreliable {
		m.AmplitudeErr = math.NaN()
		m.FrequencyErr = math.NaN()
		m.DampingTimeErr = math.NaN()
		m.PhaseErr = math.NaN()
		return m
	}

	m.AmplitudeErr = scale * sol.StdErr(off+idxAmp)
	m.FrequencyErr = sol.StdErr(off + idxFreq)
	m.DampingTimeErr = sol.StdErr(off + idxTau)
	m.PhaseErr = sol.StdErr(off + idxPhase)

	return m
}

// ratioStdErr propagates the frequency covariance into f1/f0.
func ratioStdErr(sol lsq.Result, ratio float64) float64 {
	i0 := idxFreq
	i1 := paramsPerMode + idxFreq
	f0, f1 := sol.Params[i0], sol.Params[i1]

	v0 := sol.Covariance.At(i0, i0) / (f0 * f0)
	v1 := sol.Covariance.At(i1, i1) / (f1 * f1)
	c01 := sol.Covariance.At(i0, i1) / (f0 * f1)

	return math.Abs(ratio) * math.Sqrt(math.Max(v0+v1-2*c01, 0))
}
