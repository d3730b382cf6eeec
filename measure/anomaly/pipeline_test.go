package anomaly_test

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-ringdown/internal/testutil"
	"github.com/cwbudde/algo-ringdown/measure/anomaly"
	"github.com/cwbudde/algo-ringdown/measure/ifreq"
	"github.com/cwbudde/algo-ringdown/qnm"
)

// A pure tone at the predicted frequency must not be reported as anomalous.
func TestPredictTrackDetectConsistentTone(t *testing.T) {
	const fs = 4096.0

	model, err := qnm.New(qnm.WithRedshift(0.09))
	if err != nil {
		t.Fatal(err)
	}
	pred, err := model.Predict(62, 0.68)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Frequency < 245 || pred.Frequency > 255 {
		t.Fatalf("predicted frequency = %v, want in [245, 255]", pred.Frequency)
	}

	x := testutil.Cosine(pred.Frequency, fs, 1, 0.4, 4096)
	trace, err := ifreq.New().Track(x, fs, 2048, 0, 0.05, ifreq.BandAround(pred.Frequency, 0.6, 1.6))
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	res, err := anomaly.New().Detect(trace, pred.Frequency, 0.05)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if math.Abs(res.MaxDeviation) >= 1e-3 {
		t.Fatalf("MaxDeviation = %v, want below 0.1%%", res.MaxDeviation)
	}
	if res.Detected {
		t.Fatalf("Detected = true for a consistent tone: %+v", res)
	}
}
