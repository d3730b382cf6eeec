package biquad

import (
	"math"
	"math/cmplx"
	"testing"
)

// response evaluates H(e^jw) directly from the transfer function.
func response(c Coefficients, f, fs float64) complex128 {
	z1 := cmplx.Exp(complex(0, -2*math.Pi*f/fs))
	z2 := z1 * z1
	num := complex(c.B0, 0) + complex(c.B1, 0)*z1 + complex(c.B2, 0)*z2
	den := 1 + complex(c.A1, 0)*z1 + complex(c.A2, 0)*z2
	return num / den
}

func TestMagnitudeSquaredMatchesTransferFunction(t *testing.T) {
	c := Coefficients{B0: 1, B1: -0.6, B2: 0.25, A1: -1.4, A2: 0.53}
	for _, f := range []float64{0, 50, 400, 1200, 2047} {
		h := response(c, f, 4096)
		want := real(h)*real(h) + imag(h)*imag(h)
		if got := c.MagnitudeSquared(f, 4096); !almostEqual(got, want, 1e-9*want+1e-12) {
			t.Fatalf("MagnitudeSquared(%v) = %v, want %v", f, got, want)
		}
	}
}

func TestChainMagnitudeIsProduct(t *testing.T) {
	coeffs := twoSectionCoeffs()
	chain := NewChain(coeffs, WithGain(-2))

	want := 2 * cmplx.Abs(response(coeffs[0], 300, 4096)*response(coeffs[1], 300, 4096))
	if got := chain.Magnitude(300, 4096); !almostEqual(got, want, 1e-12*want) {
		t.Fatalf("Magnitude() = %v, want %v", got, want)
	}
}

func TestImpulseResponseRestoresState(t *testing.T) {
	chain := NewChain(twoSectionCoeffs())
	chain.ProcessSample(0.3)
	before := chain.State()

	ir := chain.ImpulseResponse(8)
	if len(ir) != 8 || ir[0] != 0.025 {
		t.Fatalf("ImpulseResponse()[0] = %v, want 0.025", ir[0])
	}
	after := chain.State()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("state changed: %v -> %v", before[i], after[i])
		}
	}
	if chain.ImpulseResponse(0) != nil {
		t.Fatal("ImpulseResponse(0) != nil")
	}
}
