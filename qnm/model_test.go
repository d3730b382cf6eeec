package qnm

import (
	"errors"
	"math"
	"testing"
)

func TestPredictReproducesTable(t *testing.T) {
	m := Default()
	const mass = 50.0

	for _, c := range Kerr220 {
		p, err := m.Predict(mass, c.Spin)
		if err != nil {
			t.Fatalf("Predict(%v, %v) error = %v", mass, c.Spin, err)
		}

		ts := mass * SolarMassSeconds
		gotRe := p.Frequency * 2 * math.Pi * ts
		gotIm := ts / p.DampingTime
		if math.Abs(gotRe-c.Re) > 1e-12 || math.Abs(gotIm-c.Im) > 1e-12 {
			t.Fatalf("spin %v: (Re, Im) = (%v, %v), want (%v, %v)", c.Spin, gotRe, gotIm, c.Re, c.Im)
		}
	}
}

func TestPredictMonotoneBetweenKnots(t *testing.T) {
	m := Default()
	prev := 0.0

	for i := 0; i <= 990; i++ {
		spin := float64(i) / 1000
		p, err := m.Predict(30, spin)
		if err != nil {
			t.Fatalf("Predict(30, %v) error = %v", spin, err)
		}
		if p.Frequency < prev {
			t.Fatalf("frequency decreased at spin %v: %v < %v", spin, p.Frequency, prev)
		}
		prev = p.Frequency
	}
}

func TestPredictDampingTimeMonotone(t *testing.T) {
	m := Default()
	prev := 0.0

	for i := 0; i <= 99; i++ {
		spin := float64(i) / 100
		p, err := m.Predict(30, spin)
		if err != nil {
			t.Fatalf("Predict(30, %v) error = %v", spin, err)
		}
		if p.DampingTime < prev {
			t.Fatalf("damping time decreased at spin %v: %v < %v", spin, p.DampingTime, prev)
		}
		prev = p.DampingTime
	}
}

func TestPredictMassScaling(t *testing.T) {
	m := Default()

	a, err := m.Predict(20, 0.7)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Predict(40, 0.7)
	if err != nil {
		t.Fatal(err)
	}

	if r := a.Frequency / b.Frequency; math.Abs(r-2) > 1e-12 {
		t.Fatalf("frequency ratio = %v, want 2", r)
	}
	if r := b.DampingTime / a.DampingTime; math.Abs(r-2) > 1e-12 {
		t.Fatalf("damping ratio = %v, want 2", r)
	}
	if math.Abs(a.QualityFactor()-b.QualityFactor()) > 1e-12 {
		t.Fatalf("quality factor depends on mass: %v vs %v", a.QualityFactor(), b.QualityFactor())
	}
}

func TestPredictKnownValues(t *testing.T) {
	tests := []struct {
		name     string
		mass     float64
		spin     float64
		redshift float64
		freq     float64
		tau      float64
	}{
		{name: "schwarzschild", mass: 60, spin: 0, freq: 201.237963, tau: 3.321974e-3},
		{name: "source frame", mass: 62, spin: 0.68, freq: 273.059412, tau: 3.746475e-3},
		{name: "detector frame", mass: 62, spin: 0.68, redshift: 0.09, freq: 250.513222, tau: 4.083658e-3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(WithRedshift(tt.redshift))
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			p, err := m.Predict(tt.mass, tt.spin)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if math.Abs(p.Frequency-tt.freq) > 1e-4 {
				t.Fatalf("Frequency = %v, want %v", p.Frequency, tt.freq)
			}
			if math.Abs(p.DampingTime-tt.tau)/tt.tau > 1e-5 {
				t.Fatalf("DampingTime = %v, want %v", p.DampingTime, tt.tau)
			}
		})
	}
}

func TestPredictErrors(t *testing.T) {
	m := Default()
	tests := []struct {
		name string
		mass float64
		spin float64
		want error
	}{
		{name: "zero mass", mass: 0, spin: 0.5, want: ErrInvalidParameter},
		{name: "negative mass", mass: -3, spin: 0.5, want: ErrInvalidParameter},
		{name: "nan mass", mass: math.NaN(), spin: 0.5, want: ErrInvalidParameter},
		{name: "negative spin", mass: 10, spin: -0.01, want: ErrInvalidParameter},
		{name: "extremal spin", mass: 10, spin: 1, want: ErrInvalidParameter},
		{name: "nan spin", mass: 10, spin: math.NaN(), want: ErrInvalidParameter},
		{name: "beyond table", mass: 10, spin: 0.995, want: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Predict(tt.mass, tt.spin)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Predict(%v, %v) error = %v, want %v", tt.mass, tt.spin, err, tt.want)
			}
		})
	}
}

func TestPredictDeterministic(t *testing.T) {
	m := Default()
	a, _ := m.Predict(33.3, 0.456)
	b, _ := m.Predict(33.3, 0.456)
	if a != b {
		t.Fatalf("Predict not deterministic: %+v vs %+v", a, b)
	}
}

func TestPredictOvertone(t *testing.T) {
	m, err := New(WithOvertoneRatios(1.5, 0.5))
	if err != nil {
		t.Fatal(err)
	}

	f, _ := m.Predict(40, 0.6)
	o, err := m.PredictOvertone(40, 0.6)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(o.Frequency-1.5*f.Frequency) > 1e-9 {
		t.Fatalf("overtone frequency = %v, want %v", o.Frequency, 1.5*f.Frequency)
	}
	if math.Abs(o.DampingTime-0.5*f.DampingTime) > 1e-15 {
		t.Fatalf("overtone damping = %v, want %v", o.DampingTime, 0.5*f.DampingTime)
	}
	if m.OvertoneRatio(0.1) != 1.5 || m.OvertoneDampingRatio() != 0.5 {
		t.Fatal("overtone ratios not applied")
	}
}

func TestOvertoneRatioTable(t *testing.T) {
	m, err := New(WithOvertoneRatios(1.5, 0.5), WithOvertoneRatioTable([]float64{0, 0.5, 0.9}, []float64{1.2, 1.4, 1.8}))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		spin, want float64
	}{
		{0, 1.2},
		{0.5, 1.4},
		{0.9, 1.8},
		{0.95, 1.8}, // clamped
	}
	for _, tt := range tests {
		if got := m.OvertoneRatio(tt.spin); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("OvertoneRatio(%v) = %v, want %v", tt.spin, got, tt.want)
		}
	}
	if r := m.OvertoneRatio(0.7); !(r > 1.4 && r < 1.8) {
		t.Fatalf("OvertoneRatio(0.7) = %v, want between the knots", r)
	}

	f, _ := m.Predict(40, 0.5)
	o, _ := m.PredictOvertone(40, 0.5)
	if math.Abs(o.Frequency-1.4*f.Frequency) > 1e-9 {
		t.Fatalf("overtone frequency = %v, want %v", o.Frequency, 1.4*f.Frequency)
	}

	if _, err := New(WithOvertoneRatioTable([]float64{0, 0.5}, []float64{1.2, -1})); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("negative ratio error = %v, want ErrInvalidParameter", err)
	}
	if _, err := New(WithOvertoneRatioTable([]float64{0}, []float64{1.2})); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("single knot error = %v, want ErrInvalidParameter", err)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(WithRedshift(-0.1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("WithRedshift(-0.1) error = %v, want ErrInvalidParameter", err)
	}
	if _, err := New(WithOvertoneRatios(0, 0.3)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("WithOvertoneRatios(0, 0.3) error = %v, want ErrInvalidParameter", err)
	}
}

func TestFrequencyFactor(t *testing.T) {
	m := Default()
	if got := m.FrequencyFactor(0); got != 1 {
		t.Fatalf("FrequencyFactor(0) = %v, want 1", got)
	}
	want := 0.532600 / 0.373672
	if got := m.FrequencyFactor(0.7); math.Abs(got-want) > 1e-12 {
		t.Fatalf("FrequencyFactor(0.7) = %v, want %v", got, want)
	}
}

func TestInferSpinInvertsPredict(t *testing.T) {
	m := Default()

	for _, spin := range []float64{0, 0.12, 0.5, 0.68, 0.93, 0.99} {
		p, err := m.Predict(45, spin)
		if err != nil {
			t.Fatal(err)
		}
		got, err := m.InferSpin(45, p.Frequency)
		if err != nil {
			t.Fatalf("InferSpin() error = %v", err)
		}
		if math.Abs(got-spin) > 1e-8 {
			t.Fatalf("InferSpin() = %v, want %v", got, spin)
		}
	}
}

func TestInferSpinOutOfRange(t *testing.T) {
	m := Default()
	p, _ := m.Predict(45, 0)

	if _, err := m.InferSpin(45, 0.9*p.Frequency); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
	if _, err := m.InferSpin(45, -1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("error = %v, want ErrInvalidParameter", err)
	}
}
