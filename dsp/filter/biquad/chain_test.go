package biquad

import (
	"math"
	"testing"
)

func twoSectionCoeffs() []Coefficients {
	return []Coefficients{
		{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04},
		{B0: 0.1, B1: 0.2, B2: 0.1, A1: -0.5, A2: 0.1},
	}
}

func TestNewChain(t *testing.T) {
	c := NewChain(twoSectionCoeffs(), WithGain(0.5))
	if c.NumSections() != 2 || c.Order() != 4 {
		t.Fatalf("sections=%d order=%d, want 2 and 4", c.NumSections(), c.Order())
	}
	if c.Gain() != 0.5 {
		t.Fatalf("Gain() = %v, want 0.5", c.Gain())
	}
}

func TestChainMatchesManualCascade(t *testing.T) {
	coeffs := twoSectionCoeffs()
	s1 := NewSection(coeffs[0])
	s2 := NewSection(coeffs[1])
	chain := NewChain(coeffs)

	block := []float64{1, 0.5, -0.25, 0, 0.8, -1}
	buf := append([]float64(nil), block...)
	chain.ProcessBlock(buf)

	for i, x := range block {
		want := s2.ProcessSample(s1.ProcessSample(x))
		if !almostEqual(buf[i], want, eps) {
			t.Fatalf("sample %d: got %v, want %v", i, buf[i], want)
		}
	}
}

func TestFiltFiltHasZeroPhase(t *testing.T) {
	c := NewChain([]Coefficients{smoothing()})
	const (
		n  = 2000
		fs = 1000.0
		f  = 10.0
	)

	x := make([]float64, n)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * f * float64(i) / fs)
	}

	y := c.FiltFilt(x)
	gain := c.Magnitude(f, fs)
	gain *= gain

	for i := 500; i < 1500; i++ {
		if !almostEqual(y[i], gain*x[i], 1e-9) {
			t.Fatalf("y[%d] = %v, want %v", i, y[i], gain*x[i])
		}
	}
	if x[1] != math.Sin(2*math.Pi*f/fs) {
		t.Fatal("FiltFilt modified its input")
	}
}

func TestFiltFiltPreservesState(t *testing.T) {
	c := NewChain(twoSectionCoeffs())
	c.ProcessSample(1)
	before := c.State()

	c.FiltFilt([]float64{1, 2, 3})

	after := c.State()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("section %d state = %v, want %v", i, after[i], before[i])
		}
	}
}

func TestSettlingLength(t *testing.T) {
	// h[n] = 0.5^n drops below 1e-3 at n = 10.
	c := NewChain([]Coefficients{{B0: 1, A1: -0.5}})
	if got := c.SettlingLength(1e-3, 100); got != 10 {
		t.Fatalf("SettlingLength() = %d, want 10", got)
	}
	if got := c.SettlingLength(1e-3, 5); got != 5 {
		t.Fatalf("SettlingLength() capped = %d, want 5", got)
	}
	if got := NewChain(nil, WithGain(0)).SettlingLength(1e-3, 10); got != 0 {
		t.Fatalf("SettlingLength() of silent chain = %d, want 0", got)
	}
}
