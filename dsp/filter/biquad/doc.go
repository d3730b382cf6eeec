// Package biquad provides second-order IIR sections and cascades.
//
// A [Section] runs Direct Form II Transposed recursion for one set of
// [Coefficients]. A [Chain] cascades sections for higher-order designs and
// adds offline helpers used by the ring-down tracker: zero-phase
// forward-backward filtering ([Chain.FiltFilt]) and an impulse-response
// based settling length ([Chain.SettlingLength]).
//
// Coefficient design lives in dsp/filter/design/pass.
package biquad
