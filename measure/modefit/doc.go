// Package modefit fits a fundamental and a first overtone to the ring-down
// of a transient signal.
//
// The model is a sum of two exponentially damped cosines
//
//	h(t) = sum_k A_k exp(-t/tau_k) cos(2 pi f_k t + phi_k)
//
// with t measured from the start of the fit window. Frequencies are boxed
// around the reference prediction and its overtone ratio. They start at the
// reference prediction (optionally refined by a periodogram peak) and the
// model's overtone ratio, amplitudes and phases at a linear least-squares
// solution. A bounded Levenberg-Marquardt iteration then refines all eight
// parameters and reports 1-sigma uncertainties from the fit covariance.
package modefit
