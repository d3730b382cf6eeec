package interp

import (
	"fmt"
	"math"
	"sort"

	"github.com/cwbudde/algo-ringdown/dsp/core"
)

// MonotoneCubic interpolates a table of samples y(x) with strictly
// increasing x. It is immutable after construction and safe for concurrent
// use.
type MonotoneCubic struct {
	x     []float64
	y     []float64
	slope []float64
}

// NewMonotoneCubic builds an interpolant through (x[i], y[i]). x must be
// strictly increasing and both slices must hold at least two finite values.
// The inputs are copied.
func NewMonotoneCubic(x, y []float64) (*MonotoneCubic, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("interp: %d abscissae for %d ordinates: %w", len(x), len(y), core.ErrInvalidParameter)
	}
	if len(x) < 2 {
		return nil, fmt.Errorf("interp: need at least 2 knots, got %d: %w", len(x), core.ErrInvalidParameter)
	}
	if !core.AllFinite(x) || !core.AllFinite(y) {
		return nil, fmt.Errorf("interp: non-finite knot: %w", core.ErrInvalidParameter)
	}
	for i := 1; i < len(x); i++ {
		if x[i] <= x[i-1] {
			return nil, fmt.Errorf("interp: abscissae not strictly increasing at %d: %w", i, core.ErrInvalidParameter)
		}
	}

	m := &MonotoneCubic{
		x: append([]float64(nil), x...),
		y: append([]float64(nil), y...),
	}
	m.slope = fritschCarlson(m.x, m.y)

	return m, nil
}

// Domain returns the first and last knot.
func (m *MonotoneCubic) Domain() (lo, hi float64) {
	return m.x[0], m.x[len(m.x)-1]
}

// At evaluates the interpolant. Arguments outside the domain are clamped to
// the nearest end knot; callers that must reject them check Domain first.
func (m *MonotoneCubic) At(x float64) float64 {
	lo, hi := m.Domain()
	x = core.Clamp(x, lo, hi)

	// Index of the segment [x[k], x[k+1]] containing x.
	k := sort.SearchFloat64s(m.x, x) - 1
	if k < 0 {
		k = 0
	}
	if k > len(m.x)-2 {
		k = len(m.x) - 2
	}

	h := m.x[k+1] - m.x[k]
	t := (x - m.x[k]) / h

	return CubicHermite(t, m.y[k], m.y[k+1], m.slope[k]*h, m.slope[k+1]*h)
}

// CubicHermite evaluates the cubic Hermite segment at t in [0,1] with end
// values y0, y1 and end tangents d0, d1 already scaled to the segment width.
func CubicHermite(t, y0, y1, d0, d1 float64) float64 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2

	return h00*y0 + h10*d0 + h01*y1 + h11*d1
}

// fritschCarlson returns knot slopes using the weighted harmonic mean of
// adjacent secants, zero at local extrema, and shape-preserving
// three-point end slopes.
func fritschCarlson(x, y []float64) []float64 {
	n := len(x)
	h := make([]float64, n-1)
	delta := make([]float64, n-1)
	for k := 0; k < n-1; k++ {
		h[k] = x[k+1] - x[k]
		delta[k] = (y[k+1] - y[k]) / h[k]
	}

	slope := make([]float64, n)
	if n == 2 {
		slope[0], slope[1] = delta[0], delta[0]
		return slope
	}

	for k := 1; k < n-1; k++ {
		if delta[k-1]*delta[k] <= 0 {
			continue
		}
		w1 := 2*h[k] + h[k-1]
		w2 := h[k] + 2*h[k-1]
		slope[k] = (w1 + w2) / (w1/delta[k-1] + w2/delta[k])
	}

	slope[0] = endSlope(h[0], h[1], delta[0], delta[1])
	slope[n-1] = endSlope(h[n-2], h[n-3], delta[n-2], delta[n-3])

	return slope
}

func endSlope(h0, h1, d0, d1 float64) float64 {
	s := ((2*h0+h1)*d0 - h0*d1) / (h0 + h1)
	switch {
	case math.Signbit(s) != math.Signbit(d0) || d0 == 0:
		return 0
	case math.Signbit(d0) != math.Signbit(d1) && math.Abs(s) > 3*math.Abs(d0):
		return 3 * d0
	default:
		return s
	}
}
