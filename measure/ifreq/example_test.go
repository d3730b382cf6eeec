package ifreq_test

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ringdown/measure/ifreq"
)

func ExampleTracker_Track() {
	const fs = 4096.0
	x := make([]float64, 4096)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 250 * float64(i) / fs)
	}

	trace, err := ifreq.New().Track(x, fs, 2048, 0, 0.02, ifreq.Band{Low: 150, High: 400})
	if err != nil {
		panic(err)
	}

	mean, _, _ := trace.WeightedMeanFrequency()
	fmt.Printf("%d points, %.1f Hz\n", len(trace), mean)
	// Output:
	// 82 points, 250.0 Hz
}
