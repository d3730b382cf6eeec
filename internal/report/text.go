package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// errWriter latches the first write error so table code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func writeText(w io.Writer, doc document) error {
	out := &errWriter{w: w}
	out.printf("Run %s  (%s, %d events, %d failed)\n\n",
		doc.StartedAt.Format(time.RFC3339),
		doc.FinishedAt.Sub(doc.StartedAt).Round(time.Millisecond),
		len(doc.Events), doc.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	tab := &errWriter{w: tw}
	tab.printf("Event\tMass\tSpin\tf_ref [Hz]\tf_mean [Hz]\tDeviation\tMax dev\tSignif.\tf0 [Hz]\tf1 [Hz]\tRatio dev\tStatus\n")
	tab.printf("-----\t----\t----\t----------\t-----------\t---------\t-------\t-------\t-------\t-------\t---------\t------\n")
	for _, e := range doc.Events {
		var maxDev, sig *float64
		if e.Anomaly != nil {
			maxDev, sig = e.Anomaly.MaxDeviation, e.Anomaly.Significance
		}
		var f0, f1, ratio *float64
		if e.Fit != nil {
			f0, f1, ratio = e.Fit.Fundamental.Frequency, e.Fit.Overtone.Frequency, e.Fit.RatioDeviation
		}
		tab.printf("%s\t%.1f\t%.3f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Name, e.Mass, e.Spin,
			fixed(e.ReferenceFrequency, 2), fixed(e.MeanFrequency, 2),
			percent(e.FrequencyDeviation), percent(maxDev), fixed(sig, 1),
			fixed(f0, 2), fixed(f1, 2), percent(ratio),
			status(e))
	}
	if tab.err == nil {
		tab.err = tw.Flush()
	}
	if tab.err != nil {
		return tab.err
	}

	if len(doc.Combined) > 0 {
		out.printf("\n")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		tab = &errWriter{w: tw}
		tab.printf("Field\tMean\tStd err\tSignif.\tLevel\tN\tWeighting\n")
		tab.printf("-----\t----\t-------\t-------\t-----\t-\t---------\n")
		for _, c := range doc.Combined {
			tab.printf("%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				c.Field, general(c.Mean), general(c.StdErr), fixed(c.Significance, 2), c.Level, c.Count, c.Weighting)
		}
		if tab.err == nil {
			tab.err = tw.Flush()
		}
		if tab.err != nil {
			return tab.err
		}
	}

	if len(doc.Correlations) > 0 {
		out.printf("\n")
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		tab = &errWriter{w: tw}
		tab.printf("Field\tCovariate\tr\tp\tN\n")
		tab.printf("-----\t---------\t-\t-\t-\n")
		for _, c := range doc.Correlations {
			tab.printf("%s\t%s\t%s\t%s\t%d\n", c.Field, c.Covariate, fixed(c.R, 3), general(c.PValue), c.Count)
		}
		if tab.err == nil {
			tab.err = tw.Flush()
		}
		if tab.err != nil {
			return tab.err
		}
	}

	for _, iv := range doc.Intervals {
		out.printf("\n%s: %s, %.0f%% interval [%s, %s] from %d resamples\n",
			iv.Field, general(iv.Estimate), 100*iv.Confidence, general(iv.Lower), general(iv.Upper), iv.Resamples)
	}

	return out.err
}

func status(e eventView) string {
	if e.Error != "" {
		return "error: " + e.Error
	}
	var flags []string
	if a := e.Anomaly; a != nil {
		if a.Detected {
			flags = append(flags, "detected")
		}
		if a.LowConfidence {
			flags = append(flags, "low-confidence")
		}
		if a.Implausible {
			flags = append(flags, "implausible")
		}
	}
	if e.Fit != nil && e.Fit.UnreliableUncertainty {
		flags = append(flags, "unreliable-fit")
	}
	if e.FitError != "" {
		flags = append(flags, "fit-failed")
	}
	if len(flags) == 0 {
		return "ok"
	}
	return strings.Join(flags, ",")
}

func fixed(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, *v)
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", 100**v)
}

func general(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4g", *v)
}
