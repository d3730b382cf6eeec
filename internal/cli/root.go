// Package cli implements the ringdown command tree.
package cli

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cwbudde/algo-ringdown/internal/config"
	"github.com/cwbudde/algo-ringdown/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// app carries state shared by subcommands.
type app struct {
	v *viper.Viper
}

// NewRootCommand builds the command tree. Global flags may also be given as
// RINGDOWN_LOG_LEVEL and RINGDOWN_LOG_FORMAT.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	a.v.SetEnvPrefix(config.EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "ringdown",
		Short: "Black-hole ring-down quasi-normal mode analysis",
		Long: `ringdown compares the ring-down of binary black hole mergers with the
Kerr quasi-normal mode expected from remnant mass and spin.

It tracks instantaneous frequency, flags deviations from the prediction,
fits fundamental and overtone modes, and combines results over a
catalogue of events.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", flags.Lookup("log-format"))

	root.AddCommand(
		a.newPredictCommand(),
		a.newTableCommand(),
		a.newInferCommand(),
		a.newAnalyzeCommand(),
		a.newLastRunCommand(),
		newVersionCommand(),
	)

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// logConfig merges explicit flags and environment over base.
func (a *app) logConfig(base logging.Config) logging.Config {
	if a.v.IsSet("log.level") {
		base.Level = a.v.GetString("log.level")
	}
	if a.v.IsSet("log.format") {
		base.Format = a.v.GetString("log.format")
	}
	if base.Level == "" {
		base.Level = a.v.GetString("log.level")
	}
	if base.Format == "" {
		base.Format = a.v.GetString("log.format")
	}
	return base
}

func (a *app) logger(base logging.Config, w io.Writer) (zerolog.Logger, error) {
	return logging.New(a.logConfig(base), w)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write([]byte("ringdown " + Version + "\n"))
			return err
		},
	}
}
