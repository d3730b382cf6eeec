package stack

import (
	"fmt"
	"math"

	timestats "github.com/cwbudde/algo-ringdown/stats/time"
)

// Level grades a combined significance.
type Level int

const (
	LevelNone Level = iota
	LevelHint
	LevelEvidence
	LevelDiscovery
)

// Significance thresholds in standard errors.
const (
	HintThreshold      = 2.0
	EvidenceThreshold  = 3.0
	DiscoveryThreshold = 5.0
)

func (l Level) String() string {
	switch l {
	case LevelHint:
		return "hint"
	case LevelEvidence:
		return "evidence"
	case LevelDiscovery:
		return "discovery"
	default:
		return "none"
	}
}

// Classify maps a significance onto a Level.
func Classify(significance float64) Level {
	switch {
	case significance >= DiscoveryThreshold:
		return LevelDiscovery
	case significance >= EvidenceThreshold:
		return LevelEvidence
	case significance >= HintThreshold:
		return LevelHint
	default:
		return LevelNone
	}
}

// WeightingMode records how a combination weighted its records.
type WeightingMode int

const (
	// InverseVariance weights by 1/sigma^2; used when every record carries
	// an uncertainty.
	InverseVariance WeightingMode = iota
	// CallerWeights uses Record.Weight.
	CallerWeights
)

func (m WeightingMode) String() string {
	if m == InverseVariance {
		return "inverse-variance"
	}
	return "caller-weights"
}

// Combined is the weighted average of one field.
type Combined struct {
	Field        string
	Mean         float64
	StdErr       float64
	Significance float64 // |Mean| / StdErr, 0 when StdErr is 0
	Level        Level
	Count        int
	Mode         WeightingMode
}

// WeightedAverage combines field across all records that carry it.
func (a *Aggregator) WeightedAverage(field string) (Combined, error) {
	ss := a.samples(field)
	if len(ss) == 0 {
		return Combined{}, fmt.Errorf("stack: no records with %q: %w", field, ErrEmptyCollection)
	}

	mode := weightingMode(ss)
	mean, stderr := combine(ss, mode)

	c := Combined{
		Field:  field,
		Mean:   mean,
		StdErr: stderr,
		Count:  len(ss),
		Mode:   mode,
	}
	if stderr > 0 {
		c.Significance = math.Abs(mean) / stderr
	}
	c.Level = Classify(c.Significance)

	return c, nil
}

func weightingMode(ss []sample) WeightingMode {
	for _, s := range ss {
		if s.sigma == 0 {
			return CallerWeights
		}
	}
	return InverseVariance
}

func combine(ss []sample, mode WeightingMode) (mean, stderr float64) {
	if mode == InverseVariance {
		var sumW, sumWX float64
		for _, s := range ss {
			w := 1 / (s.sigma * s.sigma)
			sumW += w
			sumWX += w * s.value
		}
		return sumWX / sumW, 1 / math.Sqrt(sumW)
	}

	x := make([]float64, len(ss))
	w := make([]float64, len(ss))
	for i, s := range ss {
		x[i], w[i] = s.value, s.weight
	}

	mean, scatter, _ := timestats.WeightedMoments(x, w)
	ess := timestats.EffectiveSampleSize(w)
	if ess <= 1 {
		return mean, 0
	}

	return mean, scatter / math.Sqrt(ess-1)
}
