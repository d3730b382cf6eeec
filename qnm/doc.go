// Package qnm predicts the dominant quasinormal mode of a rotating (Kerr)
// black hole remnant.
//
// The l=2, m=2, n=0 mode is tabulated in units of the remnant mass and
// interpolated in spin with a monotone cubic. A [Model] converts the
// dimensionless complex frequency into a physical ring-down frequency and
// damping time for a given mass, optionally redshifted to the detector frame.
package qnm
