package stack

import (
	"errors"
	"maps"

	"github.com/cwbudde/algo-ringdown/dsp/core"
)

// Re-exported error values.
var (
	ErrInvalidParameter    = core.ErrInvalidParameter
	ErrEmptyCollection     = core.ErrEmptyCollection
	ErrInsufficientRecords = core.ErrInsufficientRecords
)

// ErrDegenerate reports a statistic that is undefined because an input has
// zero variance.
var ErrDegenerate = errors.New("degenerate input")

// Field names written by the analysis pipeline.
const (
	FieldFrequencyDeviation = "frequency_deviation"
	FieldMaxDeviation       = "max_deviation"
	FieldRatioDeviation     = "ratio_deviation"
	FieldOvertoneFrequency  = "overtone_frequency"
)

// Measurement is a value with an optional 1-sigma uncertainty. A zero or
// non-finite Uncertainty means unknown.
type Measurement struct {
	Value       float64
	Uncertainty float64
}

func (m Measurement) hasUncertainty() bool {
	return core.IsFinite(m.Uncertainty) && m.Uncertainty > 0
}

// Record holds the measurements of one event.
type Record struct {
	ID     string
	Mass   float64 // solar masses
	Spin   float64
	Fields map[string]Measurement

	// Weight is the caller's reliability weight, used when uncertainties
	// are missing. Values <= 0 count as 1.
	Weight float64
}

func (r Record) clone() Record {
	r.Fields = maps.Clone(r.Fields)
	return r
}

func (r Record) weight() float64 {
	if core.IsFinite(r.Weight) && r.Weight > 0 {
		return r.Weight
	}
	return 1
}

// Aggregator accumulates records. The zero value is ready to use. It is not
// safe for concurrent use; give each goroutine its own and Merge them.
type Aggregator struct {
	records []Record
}

// Add appends a copy of r.
func (a *Aggregator) Add(r Record) {
	a.records = append(a.records, r.clone())
}

// Len returns the number of records.
func (a *Aggregator) Len() int { return len(a.records) }

// Snapshot returns a deep copy of the records in insertion order.
func (a *Aggregator) Snapshot() []Record {
	out := make([]Record, len(a.records))
	for i, r := range a.records {
		out[i] = r.clone()
	}
	return out
}

// Merge appends the records of other.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil || other == a {
		return
	}
	for _, r := range other.records {
		a.Add(r)
	}
}

// sample is one record's contribution to a field.
type sample struct {
	value  float64
	sigma  float64
	weight float64
	mass   float64
	spin   float64
}

func (a *Aggregator) samples(field string) []sample {
	var out []sample
	for _, r := range a.records {
		m, ok := r.Fields[field]
		if !ok || !core.IsFinite(m.Value) {
			continue
		}
		s := sample{value: m.Value, weight: r.weight(), mass: r.Mass, spin: r.Spin}
		if m.hasUncertainty() {
			s.sigma = m.Uncertainty
		}
		out = append(out, s)
	}
	return out
}
