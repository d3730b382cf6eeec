package modefit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Parameter layout per mode in the solver vector.
const (
	idxAmp = iota
	idxFreq
	idxTau
	idxPhase
	paramsPerMode
)

const numModes = 2

// dampedSum evaluates the mode sum for the packed parameter vector p.
type dampedSum struct {
	t []float64
}

func newDampedSum(n int, sampleRate float64) dampedSum {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) / sampleRate
	}
	return dampedSum{t: t}
}

func (d dampedSum) residual(y []float64) func(dst, p []float64) {
	return func(dst, p []float64) {
		for i, ti := range d.t {
			v := 0.0
			for k := range numModes {
				q := p[k*paramsPerMode:]
				v += q[idxAmp] * math.Exp(-ti/q[idxTau]) * math.Cos(2*math.Pi*q[idxFreq]*ti+q[idxPhase])
			}
			dst[i] = v - y[i]
		}
	}
}

func (d dampedSum) jacobian(dst *mat.Dense, p []float64) {
	for i, ti := range d.t {
		for k := range numModes {
			q := p[k*paramsPerMode:]
			amp, tau := q[idxAmp], q[idxTau]
			e := math.Exp(-ti / tau)
			s, c := math.Sincos(2*math.Pi*q[idxFreq]*ti + q[idxPhase])

			col := k * paramsPerMode
			dst.Set(i, col+idxAmp, e*c)
			dst.Set(i, col+idxFreq, -amp*e*s*2*math.Pi*ti)
			dst.Set(i, col+idxTau, amp*e*c*ti/(tau*tau))
			dst.Set(i, col+idxPhase, -amp*e*s)
		}
	}
}

// linearSeed solves for amplitudes and phases with frequencies and damping
// times held fixed. ok is false when the basis is rank deficient.
func (d dampedSum) linearSeed(y, freqs, taus []float64) (amps, phases []float64, ok bool) {
	n := len(d.t)
	basis := mat.NewDense(n, 2*numModes, nil)
	for i, ti := range d.t {
		for k := range numModes {
			e := math.Exp(-ti / taus[k])
			s, c := math.Sincos(2 * math.Pi * freqs[k] * ti)
			basis.Set(i, 2*k, e*c)
			basis.Set(i, 2*k+1, -e*s)
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(basis, mat.NewVecDense(n, y)); err != nil {
		return nil, nil, false
	}

	amps = make([]float64, numModes)
	phases = make([]float64, numModes)
	for k := range numModes {
		// A cos(wt + phi) = A cos(phi) cos(wt) - A sin(phi) sin(wt)
		c, s := coef.AtVec(2*k), coef.AtVec(2*k+1)
		amps[k] = math.Hypot(c, s)
		phases[k] = math.Atan2(s, c)
	}

	return amps, phases, true
}
