// Package report renders pipeline summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-ringdown/internal/pipeline"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("report: unknown format %q", s)
}

// Write renders sum to w.
func Write(w io.Writer, sum pipeline.Summary, format Format) error {
	doc := newDocument(sum)

	switch format {
	case FormatText:
		return writeText(w, doc)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// document is the serialised form of a summary. Values that may be NaN or
// absent are pointers so every encoder can omit them.
type document struct {
	StartedAt    time.Time         `json:"started_at" yaml:"started_at" toml:"started_at"`
	FinishedAt   time.Time         `json:"finished_at" yaml:"finished_at" toml:"finished_at"`
	Failed       int               `json:"failed" yaml:"failed" toml:"failed"`
	Events       []eventView       `json:"events" yaml:"events" toml:"events"`
	Combined     []combinedView    `json:"combined,omitempty" yaml:"combined,omitempty" toml:"combined,omitempty"`
	Correlations []correlationView `json:"correlations,omitempty" yaml:"correlations,omitempty" toml:"correlations,omitempty"`
	Intervals    []intervalView    `json:"intervals,omitempty" yaml:"intervals,omitempty" toml:"intervals,omitempty"`
}

type eventView struct {
	Name           string  `json:"name" yaml:"name" toml:"name"`
	Mass           float64 `json:"mass" yaml:"mass" toml:"mass"`
	Spin           float64 `json:"spin" yaml:"spin" toml:"spin"`
	Redshift       float64 `json:"redshift" yaml:"redshift" toml:"redshift"`
	SampleRate     float64 `json:"sample_rate" yaml:"sample_rate" toml:"sample_rate"`
	ReferenceIndex int     `json:"reference_index" yaml:"reference_index" toml:"reference_index"`
	Injected       bool    `json:"injected" yaml:"injected" toml:"injected"`

	ReferenceFrequency   *float64 `json:"reference_frequency,omitempty" yaml:"reference_frequency,omitempty" toml:"reference_frequency,omitempty"`
	ReferenceDampingTime *float64 `json:"reference_damping_time,omitempty" yaml:"reference_damping_time,omitempty" toml:"reference_damping_time,omitempty"`

	TracePoints        int      `json:"trace_points" yaml:"trace_points" toml:"trace_points"`
	MeanFrequency      *float64 `json:"mean_frequency,omitempty" yaml:"mean_frequency,omitempty" toml:"mean_frequency,omitempty"`
	FrequencyScatter   *float64 `json:"frequency_scatter,omitempty" yaml:"frequency_scatter,omitempty" toml:"frequency_scatter,omitempty"`
	FrequencyDeviation *float64 `json:"frequency_deviation,omitempty" yaml:"frequency_deviation,omitempty" toml:"frequency_deviation,omitempty"`

	Anomaly *anomalyView `json:"anomaly,omitempty" yaml:"anomaly,omitempty" toml:"anomaly,omitempty"`
	Fit     *fitView     `json:"fit,omitempty" yaml:"fit,omitempty" toml:"fit,omitempty"`

	FitError  string  `json:"fit_error,omitempty" yaml:"fit_error,omitempty" toml:"fit_error,omitempty"`
	Flagged   bool    `json:"flagged" yaml:"flagged" toml:"flagged"`
	Error     string  `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	ElapsedMS float64 `json:"elapsed_ms" yaml:"elapsed_ms" toml:"elapsed_ms"`
}

type anomalyView struct {
	MaxDeviation  *float64 `json:"max_deviation,omitempty" yaml:"max_deviation,omitempty" toml:"max_deviation,omitempty"`
	TimeOfMax     *float64 `json:"time_of_max,omitempty" yaml:"time_of_max,omitempty" toml:"time_of_max,omitempty"`
	Significance  *float64 `json:"significance,omitempty" yaml:"significance,omitempty" toml:"significance,omitempty"`
	NoiseFloor    *float64 `json:"noise_floor,omitempty" yaml:"noise_floor,omitempty" toml:"noise_floor,omitempty"`
	ControlPoints int      `json:"control_points" yaml:"control_points" toml:"control_points"`
	Detected      bool     `json:"detected" yaml:"detected" toml:"detected"`
	LowConfidence bool     `json:"low_confidence" yaml:"low_confidence" toml:"low_confidence"`
	Implausible   bool     `json:"implausible" yaml:"implausible" toml:"implausible"`
}

type modeView struct {
	Amplitude      *float64 `json:"amplitude,omitempty" yaml:"amplitude,omitempty" toml:"amplitude,omitempty"`
	Frequency      *float64 `json:"frequency,omitempty" yaml:"frequency,omitempty" toml:"frequency,omitempty"`
	FrequencyErr   *float64 `json:"frequency_err,omitempty" yaml:"frequency_err,omitempty" toml:"frequency_err,omitempty"`
	DampingTime    *float64 `json:"damping_time,omitempty" yaml:"damping_time,omitempty" toml:"damping_time,omitempty"`
	DampingTimeErr *float64 `json:"damping_time_err,omitempty" yaml:"damping_time_err,omitempty" toml:"damping_time_err,omitempty"`
}

type fitView struct {
	Fundamental           modeView `json:"fundamental" yaml:"fundamental" toml:"fundamental"`
	Overtone              modeView `json:"overtone" yaml:"overtone" toml:"overtone"`
	ObservedRatio         *float64 `json:"observed_ratio,omitempty" yaml:"observed_ratio,omitempty" toml:"observed_ratio,omitempty"`
	PredictedRatio        *float64 `json:"predicted_ratio,omitempty" yaml:"predicted_ratio,omitempty" toml:"predicted_ratio,omitempty"`
	RatioDeviation        *float64 `json:"ratio_deviation,omitempty" yaml:"ratio_deviation,omitempty" toml:"ratio_deviation,omitempty"`
	RatioUncertainty      *float64 `json:"ratio_uncertainty,omitempty" yaml:"ratio_uncertainty,omitempty" toml:"ratio_uncertainty,omitempty"`
	UnreliableUncertainty bool     `json:"unreliable_uncertainty" yaml:"unreliable_uncertainty" toml:"unreliable_uncertainty"`
	Iterations            int      `json:"iterations" yaml:"iterations" toml:"iterations"`
	ResidualRMS           *float64 `json:"residual_rms,omitempty" yaml:"residual_rms,omitempty" toml:"residual_rms,omitempty"`
	Samples               int      `json:"samples" yaml:"samples" toml:"samples"`
}

type combinedView struct {
	Field        string   `json:"field" yaml:"field" toml:"field"`
	Mean         *float64 `json:"mean,omitempty" yaml:"mean,omitempty" toml:"mean,omitempty"`
	StdErr       *float64 `json:"stderr,omitempty" yaml:"stderr,omitempty" toml:"stderr,omitempty"`
	Significance *float64 `json:"significance,omitempty" yaml:"significance,omitempty" toml:"significance,omitempty"`
	Level        string   `json:"level" yaml:"level" toml:"level"`
	Count        int      `json:"count" yaml:"count" toml:"count"`
	Weighting    string   `json:"weighting" yaml:"weighting" toml:"weighting"`
}

type correlationView struct {
	Field     string   `json:"field" yaml:"field" toml:"field"`
	Covariate string   `json:"covariate" yaml:"covariate" toml:"covariate"`
	R         *float64 `json:"r,omitempty" yaml:"r,omitempty" toml:"r,omitempty"`
	PValue    *float64 `json:"p_value,omitempty" yaml:"p_value,omitempty" toml:"p_value,omitempty"`
	Count     int      `json:"count" yaml:"count" toml:"count"`
}

type intervalView struct {
	Field      string   `json:"field" yaml:"field" toml:"field"`
	Estimate   *float64 `json:"estimate,omitempty" yaml:"estimate,omitempty" toml:"estimate,omitempty"`
	Lower      *float64 `json:"lower,omitempty" yaml:"lower,omitempty" toml:"lower,omitempty"`
	Upper      *float64 `json:"upper,omitempty" yaml:"upper,omitempty" toml:"upper,omitempty"`
	Confidence float64  `json:"confidence" yaml:"confidence" toml:"confidence"`
	Resamples  int      `json:"resamples" yaml:"resamples" toml:"resamples"`
}

// num returns nil for values no encoder can represent portably.
func num(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func newDocument(sum pipeline.Summary) document {
	doc := document{
		StartedAt:  sum.StartedAt.UTC(),
		FinishedAt: sum.FinishedAt.UTC(),
		Failed:     sum.Failed(),
		Events:     make([]eventView, 0, len(sum.Events)),
	}

	for _, e := range sum.Events {
		doc.Events = append(doc.Events, newEventView(e))
	}
	for _, c := range sum.Combined {
		doc.Combined = append(doc.Combined, combinedView{
			Field:        c.Field,
			Mean:         num(c.Mean),
			StdErr:       num(c.StdErr),
			Significance: num(c.Significance),
			Level:        c.Level.String(),
			Count:        c.Count,
			Weighting:    c.Mode.String(),
		})
	}
	for _, c := range sum.Correlations {
		doc.Correlations = append(doc.Correlations, correlationView{
			Field:     c.Field,
			Covariate: c.Covariate.String(),
			R:         num(c.R),
			PValue:    num(c.PValue),
			Count:     c.Count,
		})
	}
	for _, iv := range sum.Intervals {
		doc.Intervals = append(doc.Intervals, intervalView{
			Field:      iv.Field,
			Estimate:   num(iv.Estimate),
			Lower:      num(iv.Lower),
			Upper:      num(iv.Upper),
			Confidence: iv.Confidence,
			Resamples:  iv.Resamples,
		})
	}

	return doc
}

func newEventView(e pipeline.EventResult) eventView {
	v := eventView{
		Name:           e.Name,
		Mass:           e.Mass,
		Spin:           e.Spin,
		Redshift:       e.Redshift,
		SampleRate:     e.SampleRate,
		ReferenceIndex: e.ReferenceIndex,
		Injected:       e.Injected,
		TracePoints:    e.TracePoints,
		FitError:       e.FitError,
		Flagged:        e.Flagged,
		Error:          e.Error,
		ElapsedMS:      float64(e.Elapsed.Microseconds()) / 1e3,
	}
	if e.ReferenceFrequency > 0 {
		v.ReferenceFrequency = num(e.ReferenceFrequency)
		v.ReferenceDampingTime = num(e.ReferenceDampingTime)
	}
	if e.Error != "" {
		return v
	}

	v.MeanFrequency = num(e.MeanFrequency)
	v.FrequencyScatter = num(e.FrequencyScatter)
	v.FrequencyDeviation = num(e.FrequencyDeviation)

	a := e.Anomaly
	v.Anomaly = &anomalyView{
		MaxDeviation:  num(a.MaxDeviation),
		TimeOfMax:     num(a.TimeOfMax),
		Significance:  num(a.Significance),
		NoiseFloor:    num(a.NoiseFloor),
		ControlPoints: a.ControlPoints,
		Detected:      a.Detected,
		LowConfidence: a.LowConfidence,
		Implausible:   a.Implausible,
	}

	if f := e.Fit; f != nil {
		v.Fit = &fitView{
			Fundamental: modeView{
				Amplitude: num(f.Fundamental.Amplitude), Frequency: num(f.Fundamental.Frequency),
				FrequencyErr: num(f.Fundamental.FrequencyErr), DampingTime: num(f.Fundamental.DampingTime),
				DampingTimeErr: num(f.Fundamental.DampingTimeErr),
			},
			Overtone: modeView{
				Amplitude: num(f.Overtone.Amplitude), Frequency: num(f.Overtone.Frequency),
				FrequencyErr: num(f.Overtone.FrequencyErr), DampingTime: num(f.Overtone.DampingTime),
				DampingTimeErr: num(f.Overtone.DampingTimeErr),
			},
			ObservedRatio:         num(f.ObservedRatio),
			PredictedRatio:        num(f.PredictedRatio),
			RatioDeviation:        num(f.RatioDeviation),
			RatioUncertainty:      num(f.RatioUncertainty),
			UnreliableUncertainty: f.UnreliableUncertainty,
			Iterations:            f.Iterations,
			ResidualRMS:           num(f.ResidualRMS),
			Samples:               f.Samples,
		}
	}

	return v
}
