package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-ringdown/internal/config"
	"github.com/cwbudde/algo-ringdown/internal/pipeline"
	"github.com/cwbudde/algo-ringdown/internal/report"
	"github.com/cwbudde/algo-ringdown/internal/signalio"
	"github.com/cwbudde/algo-ringdown/internal/store"
)

type analyzeFlags struct {
	format  string
	output  string
	db      string
	timeout time.Duration
}

func (a *app) newAnalyzeCommand() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze <config.yaml>",
		Short: "Analyse a catalogue of ring-down events",
		Long: `analyze runs every event in the configuration through frequency
tracking, anomaly detection and two-mode fitting, then combines the
per-event results.

Relative data paths are resolved against the configuration file.`,
		Example: `  ringdown analyze catalogue.yaml
  ringdown analyze catalogue.yaml --format json --output summary.json
  ringdown analyze catalogue.yaml --db ~/.ringdown/runs.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, args[0], f)
		},
	}

	cmd.Flags().StringVarP(&f.format, "format", "f", string(report.FormatText), "output format (text, json, yaml, toml)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&f.db, "db", "", "SQLite database to record the run in")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "abort the run after this long (0 disables)")

	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, path string, f analyzeFlags) error {
	format, err := report.ParseFormat(f.format)
	if err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log, err := a.logger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	p := pipeline.New(cfg.Analysis, log, pipeline.WithLoader(relativeLoader(filepath.Dir(path))))
	sum, err := p.Run(ctx, cfg.Events)
	if err != nil {
		return err
	}

	if f.db != "" {
		s, err := store.Open(f.db)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.SaveRun(ctx, sum)
		if err != nil {
			return err
		}
		log.Info().Int64("run", id).Str("db", f.db).Msg("run recorded")
	}

	var out io.Writer = cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := report.Write(out, sum, format); err != nil {
		return err
	}

	if failed := sum.Failed(); failed == len(sum.Events) {
		return fmt.Errorf("all %d events failed", failed)
	} else if failed > 0 {
		log.Warn().Int("failed", failed).Int("events", len(sum.Events)).Msg("some events could not be analysed")
	}
	return nil
}

// relativeLoader reads signal files, resolving relative paths against dir.
func relativeLoader(dir string) pipeline.Loader {
	return func(path string) ([]float64, error) {
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		return signalio.ReadFile(path)
	}
}
