// Package interp provides interpolation of tabulated data.
//
// [MonotoneCubic] is a piecewise cubic Hermite interpolant whose slopes are
// chosen with the Fritsch-Carlson rule, so monotone data yields a monotone
// curve without overshoot between knots. [CubicHermite] evaluates a single
// Hermite segment from its end values and slopes.
package interp
