package core

import "errors"

// Error taxonomy shared by the analysis packages. Packages re-export the
// values they return and wrap them with context, so callers match with
// errors.Is against either name.
var (
	// ErrInvalidParameter reports an argument outside its physical or
	// numerical domain (negative mass, empty band, non-positive rate).
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrOutOfRange reports a query outside tabulated data.
	ErrOutOfRange = errors.New("out of range")

	// ErrInsufficientSamples reports too few samples left to analyse.
	ErrInsufficientSamples = errors.New("insufficient samples")

	// ErrFitDivergence reports an iterative fit that did not converge.
	ErrFitDivergence = errors.New("fit divergence")

	// ErrEmptyCollection reports an aggregation over no usable records.
	ErrEmptyCollection = errors.New("empty collection")

	// ErrInsufficientRecords reports too few records for a statistic.
	ErrInsufficientRecords = errors.New("insufficient records")
)
