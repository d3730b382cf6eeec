package qnm_test

import (
	"fmt"

	"github.com/cwbudde/algo-ringdown/qnm"
)

func ExampleModel_Predict() {
	// GW150914-like remnant observed at redshift 0.09.
	m, err := qnm.New(qnm.WithRedshift(0.09))
	if err != nil {
		panic(err)
	}

	p, err := m.Predict(62, 0.68)
	if err != nil {
		panic(err)
	}

	fmt.Printf("f=%.1f Hz tau=%.2f ms Q=%.2f\n", p.Frequency, 1e3*p.DampingTime, p.QualityFactor())

	// Output:
	// f=250.5 Hz tau=4.08 ms Q=3.21
}
