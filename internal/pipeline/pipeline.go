// Package pipeline runs the ring-down analysis over a catalogue of events
// and combines the per-event results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-ringdown/internal/config"
	"github.com/cwbudde/algo-ringdown/internal/signalio"
	"github.com/cwbudde/algo-ringdown/measure/anomaly"
	"github.com/cwbudde/algo-ringdown/measure/ifreq"
	"github.com/cwbudde/algo-ringdown/qnm"
	"github.com/cwbudde/algo-ringdown/stats/stack"
)

// Loader reads the signal an event refers to.
type Loader func(path string) ([]float64, error)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader replaces the signal file reader.
func WithLoader(l Loader) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.load = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline analyses events with a fixed configuration. Its analysers are
// immutable, so one Pipeline may serve concurrent runs.
type Pipeline struct {
	cfg      config.Analysis
	log      zerolog.Logger
	tracker  *ifreq.Tracker
	detector *anomaly.Detector
	load     Loader
	now      func() time.Time

	// predictions memoizes reference models and predictions; catalogues
	// often repeat a redshift or a remnant.
	predictions *gocache.Cache
}

// New creates a Pipeline.
func New(cfg config.Analysis, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg: cfg,
		log: log,
		tracker: ifreq.New(
			ifreq.WithFilterOrder(cfg.FilterOrder),
			ifreq.WithMinSamples(cfg.MinSamples),
		),
		detector:    anomaly.New(),
		load:        signalio.ReadFile,
		now:         time.Now,
		predictions: gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run analyses every event with at most cfg.Workers in flight and combines
// the results in catalogue order. A failing event is recorded in the summary
// and does not stop the run; a cancelled context does.
func (p *Pipeline) Run(ctx context.Context, events []config.Event) (Summary, error) {
	sum := Summary{
		StartedAt: p.now(),
		Events:    make([]EventResult, len(events)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Workers, 1))
	for i, ev := range events {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum.Events[i] = p.analyse(ev)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("pipeline: %w", err)
	}

	p.combine(&sum)
	sum.FinishedAt = p.now()

	p.log.Info().
		Int("events", len(events)).
		Int("failed", sum.Failed()).
		Dur("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("run complete")

	return sum, nil
}

func (p *Pipeline) combine(sum *Summary) {
	var agg stack.Aggregator
	for _, ev := range sum.Events {
		if ev.Error != "" {
			continue
		}
		if rec, ok := p.record(ev); ok {
			agg.Add(rec)
		}
	}

	for _, field := range []string{stack.FieldFrequencyDeviation, stack.FieldMaxDeviation, stack.FieldRatioDeviation} {
		c, err := agg.WeightedAverage(field)
		if err != nil {
			p.log.Debug().Err(err).Str("field", field).Msg("no combined result")
			continue
		}
		sum.Combined = append(sum.Combined, c)
	}

	for _, cov := range []stack.Covariate{stack.Mass, stack.InverseMassSquared, stack.Spin} {
		c, err := agg.Correlation(stack.FieldFrequencyDeviation, cov)
		if err != nil {
			p.log.Debug().Err(err).Stringer("covariate", cov).Msg("no correlation")
			continue
		}
		sum.Correlations = append(sum.Correlations, c)
	}

	iv, err := agg.Bootstrap(stack.FieldFrequencyDeviation, p.cfg.BootstrapResamples, p.cfg.BootstrapConfidence)
	switch {
	case err == nil:
		sum.Intervals = append(sum.Intervals, iv)
	case errors.Is(err, stack.ErrEmptyCollection):
	default:
		p.log.Warn().Err(err).Msg("bootstrap failed")
	}
}

// record converts an event into aggregator input, dropping flagged fields
// unless the configuration admits them.
func (p *Pipeline) record(ev EventResult) (stack.Record, bool) {
	rec := stack.Record{
		ID:     ev.Name,
		Mass:   ev.Mass,
		Spin:   ev.Spin,
		Fields: make(map[string]stack.Measurement),
		Weight: float64(ev.TracePoints),
	}

	trackOK := p.cfg.IncludeFlagged || !(ev.Anomaly.LowConfidence || ev.Anomaly.Implausible)
	if trackOK {
		rec.Fields[stack.FieldFrequencyDeviation] = stack.Measurement{
			Value:       ev.FrequencyDeviation,
			Uncertainty: ev.FrequencyScatter / ev.ReferenceFrequency,
		}
		rec.Fields[stack.FieldMaxDeviation] = stack.Measurement{
			Value:       ev.Anomaly.MaxDeviation,
			Uncertainty: ev.Anomaly.NoiseFloor,
		}
	}

	if fit := ev.Fit; fit != nil && (p.cfg.IncludeFlagged || !(fit.UnreliableUncertainty || fit.AtBound)) {
		rec.Fields[stack.FieldRatioDeviation] = stack.Measurement{
			Value:       fit.RatioDeviation,
			Uncertainty: fit.RatioUncertainty / fit.PredictedRatio,
		}
		rec.Fields[stack.FieldOvertoneFrequency] = stack.Measurement{
			Value:       fit.Overtone.Frequency,
			Uncertainty: fit.Overtone.FrequencyErr,
		}
	}

	return rec, len(rec.Fields) > 0
}

func (p *Pipeline) model(redshift float64) (*qnm.Model, error) {
	key := fmt.Sprintf("model/%g", redshift)
	if m, ok := p.predictions.Get(key); ok {
		return m.(*qnm.Model), nil
	}

	m, err := qnm.New(qnm.WithRedshift(redshift))
	if err != nil {
		return nil, err
	}
	p.predictions.Set(key, m, gocache.NoExpiration)
	return m, nil
}

func (p *Pipeline) predict(m *qnm.Model, mass, spin float64) (qnm.Prediction, error) {
	key := fmt.Sprintf("prediction/%g/%g/%g", m.Redshift(), mass, spin)
	if v, ok := p.predictions.Get(key); ok {
		return v.(qnm.Prediction), nil
	}

	pred, err := m.Predict(mass, spin)
	if err != nil {
		return qnm.Prediction{}, err
	}
	p.predictions.Set(key, pred, gocache.NoExpiration)
	return pred, nil
}
