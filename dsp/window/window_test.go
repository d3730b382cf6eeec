package window

import (
	"math"
	"testing"
)

func TestHannEndpointsAndPeak(t *testing.T) {
	w := Generate(TypeHann, 9)
	if w[0] != 0 || w[8] != 0 {
		t.Fatalf("endpoints = %v, %v, want 0", w[0], w[8])
	}
	if math.Abs(w[4]-1) > 1e-15 {
		t.Fatalf("center = %v, want 1", w[4])
	}
	for i := 0; i < 4; i++ {
		if w[i] != w[8-i] {
			t.Fatalf("not symmetric at %d: %v vs %v", i, w[i], w[8-i])
		}
	}
}

func TestTukeyLimits(t *testing.T) {
	for i, v := range Generate(TypeTukey, 16, WithAlpha(0)) {
		if v != 1 {
			t.Fatalf("alpha=0: w[%d] = %v, want 1", i, v)
		}
	}

	hann := Generate(TypeHann, 16)
	full := Generate(TypeTukey, 16, WithAlpha(1))
	for i := range hann {
		if math.Abs(hann[i]-full[i]) > 1e-12 {
			t.Fatalf("alpha=1: w[%d] = %v, want %v", i, full[i], hann[i])
		}
	}

	// Out-of-range alpha keeps the default.
	def := Generate(TypeTukey, 16)
	bad := Generate(TypeTukey, 16, WithAlpha(1.5))
	for i := range def {
		if def[i] != bad[i] {
			t.Fatalf("alpha=1.5: w[%d] = %v, want %v", i, bad[i], def[i])
		}
	}

	if Generate(TypeHann, 0) != nil {
		t.Fatal("Generate(0) != nil")
	}
}

func TestTaper(t *testing.T) {
	buf := make([]float64, 20)
	for i := range buf {
		buf[i] = 2
	}

	Taper(buf, 4)

	if buf[0] != 0 || buf[19] != 0 {
		t.Fatalf("ends = %v, %v, want 0", buf[0], buf[19])
	}
	if math.Abs(buf[2]-1) > 1e-12 {
		t.Fatalf("buf[2] = %v, want 1 (half way up the ramp)", buf[2])
	}
	for i := 4; i < 16; i++ {
		if buf[i] != 2 {
			t.Fatalf("interior buf[%d] = %v, want 2", i, buf[i])
		}
	}
	for i := 1; i < 4; i++ {
		if buf[i] <= buf[i-1] {
			t.Fatalf("ramp not rising at %d", i)
		}
	}
}

func TestTaperLimitsRamp(t *testing.T) {
	buf := []float64{1, 1, 1, 1, 1, 1}
	Taper(buf, 10)

	// ramp is cut to 2: zero ends, half-height second samples, flat middle.
	want := []float64{0, 0.5, 1, 1, 0.5, 0}
	for i := range want {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("buf = %v, want %v", buf, want)
		}
	}
}

func TestTaperNoop(t *testing.T) {
	buf := []float64{1, 1, 1}
	Taper(buf, 0)
	Taper(nil, 3)
	for _, v := range buf {
		if v != 1 {
			t.Fatalf("Taper(ramp=0) modified buffer: %v", buf)
		}
	}
}

func TestApplyRectangular(t *testing.T) {
	buf := []float64{1, 2, 3}
	Apply(TypeRectangular, buf)
	if buf[0] != 1 || buf[1] != 2 || buf[2] != 3 {
		t.Fatalf("rectangular Apply changed buffer: %v", buf)
	}
}
