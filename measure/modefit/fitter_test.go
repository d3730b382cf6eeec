package modefit

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/signal"
	"github.com/cwbudde/algo-ringdown/qnm"
)

const (
	fs       = 4096.0
	refIndex = 512
	length   = 2048
)

var (
	fundamental = signal.Mode{Amplitude: 1, Frequency: 250, DampingTime: 0.004, Phase: 0.3}
	overtone    = signal.Mode{Amplitude: 0.5, Frequency: 395, DampingTime: 0.0014, Phase: -0.7}

	// Slightly off so the fit has to move.
	seedPrediction = qnm.Prediction{Mass: 62, Spin: 0.68, Frequency: 255, DampingTime: 0.0045}
)

func ringdown(t *testing.T, sigma float64, modes ...signal.Mode) []float64 {
	t.Helper()

	gen := signal.NewGenerator(core.WithSampleRate(fs), core.WithSeed(7))
	x, err := gen.Ringdown(length, refIndex, modes...)
	if err != nil {
		t.Fatalf("Ringdown() error = %v", err)
	}
	if sigma == 0 {
		return x
	}

	noise, err := gen.GaussianNoise(sigma, length)
	if err != nil {
		t.Fatalf("GaussianNoise() error = %v", err)
	}
	return signal.Add(x, noise)
}

func TestFitRecoversNoiseFreeModes(t *testing.T) {
	x := ringdown(t, 0, fundamental, overtone)

	res, err := New(nil).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"f0", res.Fundamental.Frequency, 250},
		{"tau0", res.Fundamental.DampingTime, 0.004},
		{"A0", res.Fundamental.Amplitude, 1},
		{"phi0", res.Fundamental.Phase, 0.3},
		{"f1", res.Overtone.Frequency, 395},
		{"tau1", res.Overtone.DampingTime, 0.0014},
		{"A1", res.Overtone.Amplitude, 0.5},
		{"phi1", res.Overtone.Phase, -0.7},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-6*math.Max(1, math.Abs(c.want)) {
			t.Fatalf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if res.Samples != 123 {
		t.Fatalf("Samples = %d, want 123", res.Samples)
	}
	if res.ResidualRMS > 1e-9 {
		t.Fatalf("ResidualRMS = %v, want ~0", res.ResidualRMS)
	}
	if res.AtBound {
		t.Fatal("AtBound = true for an interior solution")
	}
	if math.Abs(res.ObservedRatio-1.58) > 1e-6 || math.Abs(res.RatioDeviation) > 1e-6 {
		t.Fatalf("ratio = %v (deviation %v), want 1.58", res.ObservedRatio, res.RatioDeviation)
	}
}

func TestFitNoisyModesWithUncertainties(t *testing.T) {
	x := ringdown(t, 0.005, fundamental, overtone)

	res, err := New(qnm.Default()).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if res.UnreliableUncertainty {
		t.Fatal("UnreliableUncertainty = true, want a usable covariance")
	}

	f0, f1 := res.Fundamental, res.Overtone
	if math.Abs(f0.Frequency-250) > 2.5 {
		t.Fatalf("f0 = %v, want within 1%% of 250", f0.Frequency)
	}
	if math.Abs(f1.Frequency-395) > 16 {
		t.Fatalf("f1 = %v, want within 4%% of 395", f1.Frequency)
	}
	if math.Abs(f0.DampingTime-0.004) > 0.0002 {
		t.Fatalf("tau0 = %v, want within 5%% of 4 ms", f0.DampingTime)
	}

	if !(f0.FrequencyErr > 0.05 && f0.FrequencyErr < 1.5) {
		t.Fatalf("f0 error = %v, want a fraction of a hertz", f0.FrequencyErr)
	}
	if !(f1.FrequencyErr > f0.FrequencyErr) {
		t.Fatalf("overtone error %v not larger than fundamental error %v", f1.FrequencyErr, f0.FrequencyErr)
	}
	if !(res.RatioUncertainty > 0) || math.Abs(res.RatioDeviation) > 0.05 {
		t.Fatalf("ratio deviation = %v +/- %v", res.RatioDeviation, res.RatioUncertainty)
	}
	if res.ResidualRMS < 0.003 || res.ResidualRMS > 0.007 {
		t.Fatalf("ResidualRMS = %v, want near the 0.005 noise level", res.ResidualRMS)
	}
}

func TestFitSingleModeFlagsUncertainty(t *testing.T) {
	x := ringdown(t, 0, fundamental)

	res, err := New(nil).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(res.Fundamental.Frequency-250) > 1e-6 {
		t.Fatalf("f0 = %v, want 250", res.Fundamental.Frequency)
	}
	if res.Overtone.Amplitude > 1e-9 {
		t.Fatalf("overtone amplitude = %v, want 0", res.Overtone.Amplitude)
	}
	if !res.UnreliableUncertainty {
		t.Fatal("UnreliableUncertainty = false with a vanished overtone")
	}
	if !math.IsNaN(res.Overtone.FrequencyErr) || !math.IsNaN(res.RatioUncertainty) {
		t.Fatalf("errors = %v, %v, want NaN", res.Overtone.FrequencyErr, res.RatioUncertainty)
	}
}

func TestFitWithoutSpectralSeed(t *testing.T) {
	x := ringdown(t, 0, fundamental, overtone)

	res, err := New(nil, WithSpectralSeed(false)).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if math.Abs(res.Overtone.Frequency-395) > 1e-4 {
		t.Fatalf("f1 = %v, want 395", res.Overtone.Frequency)
	}
}

func TestFitOvertoneOutsideBandEndsOnBound(t *testing.T) {
	far := overtone
	far.Frequency = 520
	x := ringdown(t, 0, fundamental, far)

	res, err := New(nil).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if !res.AtBound {
		t.Fatal("AtBound = false with the overtone outside its band")
	}

	hi := 1.2 * 1.58 * seedPrediction.Frequency
	if res.Overtone.Frequency > hi+1e-9 {
		t.Fatalf("f1 = %v, above the band edge %v", res.Overtone.Frequency, hi)
	}
	if f0 := res.Fundamental.Frequency; f0 < 0.8*seedPrediction.Frequency || f0 > 1.2*seedPrediction.Frequency {
		t.Fatalf("f0 = %v, outside the band around %v", f0, seedPrediction.Frequency)
	}
}

func TestFitFundamentalBandCentredOnPrediction(t *testing.T) {
	// The periodogram seed for a tone 30% above the prediction lands on the
	// band edge; the fit box must still not extend past the prediction band.
	high := fundamental
	high.Frequency = 1.3 * seedPrediction.Frequency
	x := ringdown(t, 0, high)

	res, err := New(nil).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	lo, hi := 0.8*seedPrediction.Frequency, 1.2*seedPrediction.Frequency
	if f0 := res.Fundamental.Frequency; f0 < lo-1e-9 || f0 > hi+1e-9 {
		t.Fatalf("f0 = %v, want within [%v, %v]", f0, lo, hi)
	}
}

func TestFitDivergence(t *testing.T) {
	x := ringdown(t, 0.005, fundamental, overtone)

	_, err := New(nil, WithMaxIterations(1)).Fit(x, fs, refIndex, seedPrediction)
	if !errors.Is(err, ErrFitDivergence) {
		t.Fatalf("error = %v, want %v", err, ErrFitDivergence)
	}
}

func TestFitErrors(t *testing.T) {
	x := ringdown(t, 0, fundamental, overtone)

	tests := []struct {
		name   string
		fitter *Fitter
		signal []float64
		fs     float64
		ref    int
		pred   qnm.Prediction
		want   error
	}{
		{"zero sample rate", New(nil), x, 0, refIndex, seedPrediction, ErrInvalidParameter},
		{"zero frequency", New(nil), x, fs, refIndex, qnm.Prediction{Frequency: 0, DampingTime: 0.004}, ErrInvalidParameter},
		{"negative damping", New(nil), x, fs, refIndex, qnm.Prediction{Frequency: 250, DampingTime: -1}, ErrInvalidParameter},
		{"reference outside", New(nil), x, fs, length, seedPrediction, ErrInvalidParameter},
		{"window before signal", New(nil, WithWindow(-1, 0.03)), x, fs, refIndex, seedPrediction, ErrInvalidParameter},
		{"silent window", New(nil), make([]float64, length), fs, refIndex, seedPrediction, ErrInvalidParameter},
		{"short window", New(nil, WithWindow(0, 0.005)), x, fs, refIndex, seedPrediction, ErrInsufficientSamples},
		{"truncated signal", New(nil), x[:refIndex+30], fs, refIndex, seedPrediction, ErrInsufficientSamples},
		{"overtone above nyquist", New(nil, WithMinSamples(16), WithSpectralSeed(false)), x, 600, refIndex, seedPrediction, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fitter.Fit(tt.signal, tt.fs, tt.ref, tt.pred); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFitUsesModelRatio(t *testing.T) {
	model, err := qnm.New(qnm.WithOvertoneRatios(1.5, 0.35))
	if err != nil {
		t.Fatal(err)
	}
	x := ringdown(t, 0, fundamental, overtone)

	res, err := New(model).Fit(x, fs, refIndex, seedPrediction)
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if res.PredictedRatio != 1.5 {
		t.Fatalf("PredictedRatio = %v, want 1.5", res.PredictedRatio)
	}
	want := (1.58 - 1.5) / 1.5
	if math.Abs(res.RatioDeviation-want) > 1e-5 {
		t.Fatalf("RatioDeviation = %v, want %v", res.RatioDeviation, want)
	}
}
