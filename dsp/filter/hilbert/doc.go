// Package hilbert forms the analytic signal x + jH{x} of a finite real block.
//
// The quadrature companion is computed in the frequency domain: the block
// is zero padded to a power of two at least twice its length, negative
// frequencies are removed and positive ones doubled. Zero padding keeps the
// circular wrap-around of the transform away from the block.
//
// The real part of the result reproduces the input. The quadrature part is
// exact for band-limited content away from the block edges; callers that
// need accurate edges taper and discard them (see measure/ifreq).
package hilbert
