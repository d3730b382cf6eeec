// Package stack combines per-event measurements into a population verdict.
//
// An Aggregator collects one Record per analysed event. WeightedAverage
// combines a named field across records, Correlation tests the field against
// a physical covariate, and Bootstrap resamples records to obtain a
// percentile confidence interval.
package stack
