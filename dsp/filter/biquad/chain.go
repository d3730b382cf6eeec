package biquad

import "math"

// Chain is an ordered cascade of biquad sections processed in series.
// A Chain carries delay-line state and must not be shared between
// goroutines while filtering.
type Chain struct {
	sections []Section
	gain     float64
}

type chainConfig struct {
	gain float64
}

// ChainOption configures a Chain.
type ChainOption func(*chainConfig)

// WithGain sets an overall gain applied to the input before cascading.
// Default is 1.
func WithGain(g float64) ChainOption {
	return func(cfg *chainConfig) { cfg.gain = g }
}

// NewChain creates a cascade with one Section per coefficient set.
func NewChain(coeffs []Coefficients, opts ...ChainOption) *Chain {
	cfg := chainConfig{gain: 1}
	for _, o := range opts {
		o(&cfg)
	}

	c := &Chain{
		sections: make([]Section, len(coeffs)),
		gain:     cfg.gain,
	}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}

	return c
}

// ProcessSample cascades x through all sections in order.
func (c *Chain) ProcessSample(x float64) float64 {
	x *= c.gain
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// ProcessBlock filters buf in place through the full cascade.
func (c *Chain) ProcessBlock(buf []float64) {
	if c.gain != 1 {
		for i, x := range buf {
			buf[i] = x * c.gain
		}
	}

	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// FiltFilt returns x filtered forward and then backward through the
// cascade. The result has zero phase and the squared magnitude response.
// The chain state is saved and restored.
func (c *Chain) FiltFilt(x []float64) []float64 {
	saved := c.State()
	defer c.SetState(saved)

	y := make([]float64, len(x))
	copy(y, x)

	c.Reset()
	c.ProcessBlock(y)
	reverse(y)

	c.Reset()
	c.ProcessBlock(y)
	reverse(y)

	return y
}

// SettlingLength returns the number of samples after which the cascade's
// impulse response stays below eps times its peak magnitude, searching at
// most maxLen samples. Transients of FiltFilt extend about this far in
// from each end of the block.
func (c *Chain) SettlingLength(eps float64, maxLen int) int {
	ir := c.ImpulseResponse(maxLen)
	if len(ir) == 0 {
		return 0
	}

	peak := 0.0
	for _, v := range ir {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return 0
	}

	threshold := eps * peak
	for i := len(ir) - 1; i >= 0; i-- {
		if math.Abs(ir[i]) > threshold {
			return i + 1
		}
	}

	return 0
}

// Reset clears all section states.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// State returns a copy of every section's delay-line state.
func (c *Chain) State() [][2]float64 {
	st := make([][2]float64, len(c.sections))
	for i := range c.sections {
		st[i] = c.sections[i].State()
	}

	return st
}

// SetState restores states captured by State. Extra or missing entries are
// ignored.
func (c *Chain) SetState(st [][2]float64) {
	for i := range c.sections {
		if i >= len(st) {
			return
		}
		c.sections[i].SetState(st[i])
	}
}

// Order returns the nominal filter order (2 per section).
func (c *Chain) Order() int {
	return 2 * len(c.sections)
}

// NumSections returns the number of biquad sections.
func (c *Chain) NumSections() int {
	return len(c.sections)
}

// Gain returns the input gain applied before cascading.
func (c *Chain) Gain() float64 { return c.gain }

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}
