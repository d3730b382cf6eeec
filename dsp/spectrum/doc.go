// Package spectrum provides spectrum-domain helpers: magnitude, power and
// phase of complex bins, phase unwrapping, and a zero-padded periodogram
// with interpolated peak search used to refine frequency estimates.
package spectrum
