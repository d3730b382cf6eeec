package ifreq

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/filter/biquad"
	"github.com/cwbudde/algo-ringdown/dsp/filter/design/pass"
	"github.com/cwbudde/algo-ringdown/dsp/filter/hilbert"
	"github.com/cwbudde/algo-ringdown/dsp/spectrum"
	"github.com/cwbudde/algo-ringdown/dsp/window"
)

// Re-exported error values.
var (
	ErrInvalidParameter    = core.ErrInvalidParameter
	ErrInsufficientSamples = core.ErrInsufficientSamples
)

const (
	defaultFilterOrder        = 4
	defaultMinSamples         = 50
	minSamplesFloor           = 16
	defaultSettlingThreshold  = 1e-3
	settlingSearchPeriods     = 64
	contextSettlingMultiplier = 2
)

type config struct {
	order      int
	minSamples int
	settleEps  float64
	context    bool
}

// Option configures a Tracker.
type Option func(*config)

// WithFilterOrder sets the order of each Butterworth half of the band-pass.
func WithFilterOrder(order int) Option {
	return func(c *config) {
		if order > 0 {
			c.order = order
		}
	}
}

// WithMinSamples sets the minimum number of estimates a trace must hold.
// Values below 16 are raised to 16.
func WithMinSamples(n int) Option {
	return func(c *config) {
		c.minSamples = max(n, minSamplesFloor)
	}
}

// WithSettlingThreshold sets the fraction of the peak impulse response below
// which the band-pass counts as settled.
func WithSettlingThreshold(eps float64) Option {
	return func(c *config) {
		if eps > 0 && eps < 1 {
			c.settleEps = eps
		}
	}
}

// WithContext controls whether samples outside the window are used as
// filter run-in. Disabled, the window is analysed in isolation and loses a
// settling length at each end.
func WithContext(enabled bool) Option {
	return func(c *config) {
		c.context = enabled
	}
}

// Tracker estimates instantaneous frequency. It holds only configuration
// and is safe for concurrent use.
type Tracker struct {
	cfg config
}

// New creates a Tracker.
func New(opts ...Option) *Tracker {
	cfg := config{
		order:      defaultFilterOrder,
		minSamples: defaultMinSamples,
		settleEps:  defaultSettlingThreshold,
		context:    true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Tracker{cfg: cfg}
}

// MinSamples returns the configured minimum trace length.
func (t *Tracker) MinSamples() int { return t.cfg.minSamples }

// Track estimates frequency and amplitude over [tStart, tEnd) seconds
// relative to signal[refIndex], after limiting the signal to band. A band so
// narrow that the band-pass is below -3 dB at its geometric centre is
// rejected.
func (t *Tracker) Track(signal []float64, sampleRate float64, refIndex int, tStart, tEnd float64, band Band) (Trace, error) {
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return nil, fmt.Errorf("ifreq: sample rate %v: %w", sampleRate, ErrInvalidParameter)
	}
	if refIndex < 0 || refIndex >= len(signal) {
		return nil, fmt.Errorf("ifreq: reference index %d outside signal of %d samples: %w", refIndex, len(signal), ErrInvalidParameter)
	}
	if !core.IsFinite(tStart) || !core.IsFinite(tEnd) || tEnd <= tStart {
		return nil, fmt.Errorf("ifreq: window [%v, %v) s: %w", tStart, tEnd, ErrInvalidParameter)
	}

	coeffs, err := pass.ButterworthBandpass(band.Low, band.High, t.cfg.order, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("ifreq: %w", err)
	}

	start := max(refIndex+int(math.Round(tStart*sampleRate)), 0)
	end := min(refIndex+int(math.Round(tEnd*sampleRate)), len(signal))
	if end-start < t.cfg.minSamples {
		return nil, fmt.Errorf("ifreq: window holds %d samples, need %d: %w", max(end-start, 0), t.cfg.minSamples, ErrInsufficientSamples)
	}

	chain := biquad.NewChain(coeffs)
	if g := chain.Magnitude(math.Sqrt(band.Low*band.High), sampleRate); g < math.Sqrt2/2 {
		return nil, fmt.Errorf("ifreq: band [%v, %v] Hz passes only %.2f at its centre with order %d: %w",
			band.Low, band.High, g, t.cfg.order, ErrInvalidParameter)
	}
	maxLen := int(settlingSearchPeriods*sampleRate/band.Low) + 1
	settle := max(chain.SettlingLength(t.cfg.settleEps, maxLen), 1)

	bufStart, bufEnd := start, end
	if t.cfg.context {
		pad := contextSettlingMultiplier * settle
		bufStart = max(start-pad, 0)
		bufEnd = min(end+pad, len(signal))
	}

	buf := make([]float64, bufEnd-bufStart)
	copy(buf, signal[bufStart:bufEnd])
	if !core.AllFinite(buf) {
		return nil, fmt.Errorf("ifreq: non-finite samples in window: %w", ErrInvalidParameter)
	}

	window.Taper(buf, settle)
	filtered := chain.FiltFilt(buf)

	z, err := hilbert.Analytic(filtered)
	if err != nil {
		return nil, fmt.Errorf("ifreq: %w", err)
	}

	amplitude := spectrum.Magnitude(z)
	phase := spectrum.UnwrapPhase(spectrum.Phase(z))

	// Keep buffer indices at least settle from either edge, inside the
	// window, and with both derivative neighbours available.
	lo := max(settle, start-bufStart, 1)
	hi := min(len(buf)-settle, end-bufStart, len(buf)-1)

	trace := make(Trace, 0, max(hi-lo, 0))
	scale := sampleRate / (4 * math.Pi)
	for i := lo; i < hi; i++ {
		trace = append(trace, Point{
			Time:      float64(bufStart+i-refIndex) / sampleRate,
			Frequency: (phase[i+1] - phase[i-1]) * scale,
			Amplitude: amplitude[i],
		})
	}

	if len(trace) < t.cfg.minSamples {
		return nil, fmt.Errorf("ifreq: %d samples left after discarding %d-sample filter edges, need %d: %w",
			len(trace), settle, t.cfg.minSamples, ErrInsufficientSamples)
	}

	return trace, nil
}

// LocatePeak returns the index of the largest |signal| sample in
// [start, end), the usual choice of reference sample for a merger.
func LocatePeak(signal []float64, start, end int) (int, error) {
	start = max(start, 0)
	end = min(end, len(signal))
	if end <= start {
		return 0, fmt.Errorf("ifreq: empty peak search range [%d, %d): %w", start, end, ErrInvalidParameter)
	}

	best := start
	for i := start + 1; i < end; i++ {
		if math.Abs(signal[i]) > math.Abs(signal[best]) {
			best = i
		}
	}

	return best, nil
}
