package stack

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Interval is a bootstrap percentile confidence interval.
type Interval struct {
	Field      string
	Estimate   float64 // weighted mean of the full collection
	Lower      float64
	Upper      float64
	Confidence float64
	Resamples  int
}

// BootstrapOption configures Bootstrap.
type BootstrapOption func(*bootstrapConfig)

type bootstrapConfig struct {
	seed uint64
}

// WithSeed sets the resampling seed. Equal seeds give equal intervals.
func WithSeed(seed uint64) BootstrapOption {
	return func(c *bootstrapConfig) {
		c.seed = seed
	}
}

// Bootstrap resamples the records carrying field with replacement,
// recomputes the weighted mean for each resample and returns the empirical
// percentile interval at the given confidence.
func (a *Aggregator) Bootstrap(field string, resamples int, confidence float64, opts ...BootstrapOption) (Interval, error) {
	if resamples < 1 {
		return Interval{}, fmt.Errorf("stack: resamples %d: %w", resamples, ErrInvalidParameter)
	}
	if !(confidence > 0 && confidence < 1) {
		return Interval{}, fmt.Errorf("stack: confidence %v: %w", confidence, ErrInvalidParameter)
	}

	cfg := bootstrapConfig{seed: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	ss := a.samples(field)
	if len(ss) == 0 {
		return Interval{}, fmt.Errorf("stack: no records with %q: %w", field, ErrEmptyCollection)
	}

	// The weighting rule is fixed by the full collection so every resample
	// estimates the same quantity.
	mode := weightingMode(ss)
	estimate, _ := combine(ss, mode)

	rng := rand.New(rand.NewPCG(cfg.seed, uint64(len(ss))))
	draw := make([]sample, len(ss))
	means := make([]float64, resamples)
	for b := range means {
		for i := range draw {
			draw[i] = ss[rng.IntN(len(ss))]
		}
		means[b], _ = combine(draw, mode)
	}
	slices.Sort(means)

	tail := (1 - confidence) / 2

	return Interval{
		Field:      field,
		Estimate:   estimate,
		Lower:      stat.Quantile(tail, stat.Empirical, means, nil),
		Upper:      stat.Quantile(1-tail, stat.Empirical, means, nil),
		Confidence: confidence,
		Resamples:  resamples,
	}, nil
}
