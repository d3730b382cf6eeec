package pipeline

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-ringdown/dsp/core"
	"github.com/cwbudde/algo-ringdown/dsp/signal"
	"github.com/cwbudde/algo-ringdown/internal/config"
	"github.com/cwbudde/algo-ringdown/measure/ifreq"
	"github.com/cwbudde/algo-ringdown/measure/modefit"
	"github.com/cwbudde/algo-ringdown/qnm"
)

// injectionLead is the fraction of an injected series before the merger.
const injectionLead = 0.25

func (p *Pipeline) analyse(ev config.Event) EventResult {
	start := time.Now()
	log := p.log.With().Str("event", ev.Name).Logger()

	res := EventResult{
		Name:       ev.Name,
		Mass:       ev.Mass,
		Spin:       ev.Spin,
		Redshift:   ev.RedshiftOr(p.cfg.RedshiftDefault),
		SampleRate: ev.SampleRate,
		Injected:   ev.Injection != nil,
	}
	fail := func(err error) EventResult {
		res.Error = err.Error()
		res.Flagged = true
		res.Elapsed = time.Since(start)
		log.Error().Err(err).Msg("event failed")
		return res
	}

	log.Debug().Float64("mass", ev.Mass).Float64("spin", ev.Spin).Msg("analysing")

	model, err := p.model(res.Redshift)
	if err != nil {
		return fail(err)
	}
	pred, err := p.predict(model, ev.Mass, ev.Spin)
	if err != nil {
		return fail(err)
	}
	res.ReferenceFrequency = pred.Frequency
	res.ReferenceDampingTime = pred.DampingTime

	data, refIndex, err := p.series(ev, model, pred)
	if err != nil {
		return fail(err)
	}
	res.ReferenceIndex = refIndex

	band := ifreq.BandAround(pred.Frequency, p.cfg.BandLowFactor, p.cfg.BandHighFactor)
	trace, err := p.tracker.Track(data, ev.SampleRate, refIndex, p.cfg.WindowStart, p.cfg.WindowEnd, band)
	if err != nil {
		return fail(err)
	}
	res.TracePoints = len(trace)
	if mean, scatter, ok := trace.WeightedMeanFrequency(); ok {
		res.MeanFrequency = mean
		res.FrequencyScatter = scatter
		res.FrequencyDeviation = (mean - pred.Frequency) / pred.Frequency
	}

	res.Anomaly, err = p.detector.Detect(trace, pred.Frequency, p.cfg.Tolerance)
	if err != nil {
		return fail(err)
	}
	res.Flagged = res.Anomaly.LowConfidence || res.Anomaly.Implausible

	fitter := modefit.New(model,
		modefit.WithWindow(p.cfg.FitStart, p.cfg.FitDuration),
		modefit.WithMaxIterations(p.cfg.MaxIterations),
		modefit.WithMinSamples(p.cfg.MinSamples),
	)
	fit, err := fitter.Fit(data, ev.SampleRate, refIndex, pred)
	if err != nil {
		res.FitError = err.Error()
		log.Warn().Err(err).Msg("mode fit failed")
	} else {
		res.Fit = &fit
		if fit.UnreliableUncertainty || fit.AtBound {
			res.Flagged = true
		}
	}

	res.Elapsed = time.Since(start)
	log.Info().
		Float64("ref_freq_hz", pred.Frequency).
		Float64("mean_freq_hz", res.MeanFrequency).
		Float64("max_deviation", res.Anomaly.MaxDeviation).
		Float64("significance", res.Anomaly.Significance).
		Bool("detected", res.Anomaly.Detected).
		Bool("flagged", res.Flagged).
		Dur("elapsed", res.Elapsed).
		Msg("event analysed")

	return res
}

// series loads or synthesizes the event series and resolves its merger
// sample.
func (p *Pipeline) series(ev config.Event, model *qnm.Model, pred qnm.Prediction) ([]float64, int, error) {
	var (
		data     []float64
		refIndex int
		err      error
	)

	if inj := ev.Injection; inj != nil {
		data, refIndex, err = inject(*inj, ev.SampleRate, model, pred)
	} else {
		data, err = p.load(ev.Data)
		if err == nil {
			refIndex, err = ifreq.LocatePeak(data, 0, len(data))
		}
	}
	if err != nil {
		return nil, 0, err
	}

	if ev.ReferenceIndex != nil {
		refIndex = *ev.ReferenceIndex
		if refIndex >= len(data) {
			return nil, 0, fmt.Errorf("reference index %d beyond %d samples: %w", refIndex, len(data), core.ErrInvalidParameter)
		}
	}

	return data, refIndex, nil
}

// inject builds a fundamental-plus-overtone ring-down from the prediction,
// with the fundamental shifted by the requested fraction.
func inject(inj config.Injection, sampleRate float64, model *qnm.Model, pred qnm.Prediction) ([]float64, int, error) {
	n := int(math.Round(inj.Duration * sampleRate))
	refIndex := int(injectionLead * float64(n))

	gen := signal.NewGenerator(core.WithSampleRate(sampleRate), core.WithSeed(inj.Seed))

	modes := []signal.Mode{{
		Amplitude:   inj.Amplitude,
		Frequency:   pred.Frequency * (1 + inj.FrequencyShift),
		DampingTime: pred.DampingTime,
	}}
	if inj.OvertoneAmplitude > 0 {
		modes = append(modes, signal.Mode{
			Amplitude:   inj.OvertoneAmplitude,
			Frequency:   modes[0].Frequency * model.OvertoneRatio(pred.Spin),
			DampingTime: pred.DampingTime * model.OvertoneDampingRatio(),
		})
	}

	data, err := gen.Ringdown(n, refIndex, modes...)
	if err != nil {
		return nil, 0, err
	}
	if inj.Noise > 0 {
		noise, err := gen.GaussianNoise(inj.Noise, n)
		if err != nil {
			return nil, 0, err
		}
		data = signal.Add(data, noise)
	}

	return data, refIndex, nil
}
