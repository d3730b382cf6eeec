package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeTukey
)

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha float64
}

func defaultConfig() config {
	return config{alpha: 0.5}
}

// WithAlpha sets the tapered fraction of a Tukey window, in [0, 1].
func WithAlpha(v float64) Option {
	return func(c *config) {
		if v >= 0 && v <= 1 {
			c.alpha = v
		}
	}
}

// Generate returns length symmetric coefficients of window t. Both halves
// are evaluated from the leading edge, so w[i] == w[length-1-i] exactly.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		x := samplePosition(min(i, length-1-i), length)
		switch t {
		case TypeHann:
			out[i] = hannAt(x)
		case TypeTukey:
			out[i] = tukeyAt(x, cfg.alpha)
		default:
			out[i] = 1
		}
	}

	return out
}

// Apply multiplies buf in place by window t.
func Apply(t Type, buf []float64, opts ...Option) {
	if len(buf) == 0 {
		return
	}

	vecmath.MulBlockInPlace(buf, Generate(t, len(buf), opts...))
}

// Taper applies raised-cosine ramps of ramp samples to both ends of buf,
// leaving the interior untouched: a Tukey window whose tapered fraction
// covers exactly ramp samples per side. The first and last samples are
// zeroed. ramp is limited to (len(buf)-1)/2.
func Taper(buf []float64, ramp int) {
	n := len(buf)
	ramp = min(ramp, (n-1)/2)
	if ramp <= 0 {
		return
	}

	Apply(TypeTukey, buf, WithAlpha(2*float64(ramp)/float64(n-1)))
}

func samplePosition(n, size int) float64 {
	if size <= 1 {
		return 0
	}

	return float64(n) / float64(size-1)
}

func hannAt(x float64) float64 {
	return 0.5 - 0.5*math.Cos(2*math.Pi*x)
}

// tukeyAt evaluates the leading half (x <= 0.5) of a Tukey window.
func tukeyAt(x, alpha float64) float64 {
	if alpha <= 0 {
		return 1
	}
	if alpha >= 1 {
		return hannAt(x)
	}

	if x < alpha/2 {
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	}
	return 1
}
