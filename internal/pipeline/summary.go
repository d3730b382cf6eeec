package pipeline

import (
	"time"

	"github.com/cwbudde/algo-ringdown/measure/anomaly"
	"github.com/cwbudde/algo-ringdown/measure/modefit"
	"github.com/cwbudde/algo-ringdown/stats/stack"
)

// Summary is the outcome of one batch run.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Events       []EventResult
	Combined     []stack.Combined
	Correlations []stack.Correlation
	Intervals    []stack.Interval
}

// Failed returns the number of events that could not be analysed.
func (s Summary) Failed() int {
	n := 0
	for _, e := range s.Events {
		if e.Error != "" {
			n++
		}
	}
	return n
}

// EventResult is the per-event analysis. Error is set when the event could
// not be tracked at all; FitError when only the mode fit failed.
type EventResult struct {
	Name           string
	Mass           float64
	Spin           float64
	Redshift       float64
	SampleRate     float64
	ReferenceIndex int
	Injected       bool

	ReferenceFrequency   float64 // Hz
	ReferenceDampingTime float64 // s

	TracePoints        int
	MeanFrequency      float64 // amplitude-weighted, Hz
	FrequencyScatter   float64 // Hz
	FrequencyDeviation float64 // (mean - reference) / reference

	Anomaly anomaly.Result

	Fit      *modefit.Result
	FitError string

	// Flagged is set when any advisory flag was raised. Which fields still
	// reach the combined statistics depends on the flag and IncludeFlagged.
	Flagged bool
	Error   string
	Elapsed time.Duration
}
