package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-ringdown/internal/store"
)

func (a *app) newLastRunCommand() *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:     "last-run",
		Short:   "Show the most recent run recorded in a database",
		Example: `  ringdown last-run --db ~/.ringdown/runs.db`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := store.Open(db)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			run, err := s.LatestRun(ctx)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no runs recorded in %s", db)
			}
			if err != nil {
				return err
			}
			events, err := s.EventResults(ctx, run.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			combined, err := s.CombinedResults(ctx, run.ID)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Run %d  %s  (%s, %d events, %d failed)\n\n", run.ID,
				run.StartedAt.Format(time.RFC3339), run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
				run.Events, run.Failed)

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Event\tMass\tSpin\tDeviation\tSignif.\tf0 [Hz]\tf1 [Hz]\tStatus\n")
			fmt.Fprintf(tw, "-----\t----\t----\t---------\t-------\t-------\t-------\t------\n")
			for _, e := range events {
				st := "ok"
				switch {
				case e.Error != "":
					st = "error: " + e.Error
				case e.Detected:
					st = "detected"
				case e.Flagged:
					st = "flagged"
				}
				fmt.Fprintf(tw, "%s\t%.1f\t%.3f\t%s\t%s\t%s\t%s\t%s\n", e.Name, e.Mass, e.Spin,
					nullPercent(e.FrequencyDeviation), nullFixed(e.Significance, 1),
					nullFixed(e.Fundamental, 2), nullFixed(e.Overtone, 2), st)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(combined) == 0 {
				return nil
			}
			fmt.Fprintln(w)
			tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Field\tMean\tStd err\tSignif.\tLevel\tN\n")
			fmt.Fprintf(tw, "-----\t----\t-------\t-------\t-----\t-\n")
			for _, c := range combined {
				fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%.2f\t%s\t%d\n", c.Field, c.Mean, c.StdErr, c.Significance, c.Level, c.Count)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database written by analyze --db")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func nullFixed(v sql.NullFloat64, prec int) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, v.Float64)
}

func nullPercent(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", 100*v.Float64)
}
