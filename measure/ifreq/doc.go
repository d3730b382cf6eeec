// Package ifreq tracks the instantaneous frequency and amplitude of a
// band-limited transient after a reference sample.
//
// A [Tracker] band-limits the analysis window with a zero-phase
// Butterworth band-pass, forms the analytic signal, and differentiates its
// unwrapped phase. Samples within one filter settling length of the data
// edges are discarded. When the signal extends beyond the window, up to two
// settling lengths of it are used as filter run-in so the window itself
// keeps its full coverage.
package ifreq
