package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-ringdown/qnm"
)

type modelFlags struct {
	mass     float64
	redshift float64
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.mass, "mass", 0, "remnant mass in solar masses (source frame)")
	cmd.Flags().Float64Var(&f.redshift, "redshift", 0, "cosmological redshift")
	_ = cmd.MarkFlagRequired("mass")
}

func (f *modelFlags) model() (*qnm.Model, error) {
	return qnm.New(qnm.WithRedshift(f.redshift))
}

func (a *app) newPredictCommand() *cobra.Command {
	var (
		mf   modelFlags
		spin float64
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the fundamental and first overtone for a remnant",
		Example: `  ringdown predict --mass 62 --spin 0.68
  ringdown predict --mass 62 --spin 0.68 --redshift 0.09`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := mf.model()
			if err != nil {
				return err
			}
			fund, err := m.Predict(mf.mass, spin)
			if err != nil {
				return err
			}
			over, err := m.PredictOvertone(mf.mass, spin)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Mode\tFrequency [Hz]\tDamping time [ms]\tQuality factor\n")
			fmt.Fprintf(tw, "----\t--------------\t-----------------\t--------------\n")
			fmt.Fprintf(tw, "(2,2,0)\t%.3f\t%.4f\t%.3f\n", fund.Frequency, 1e3*fund.DampingTime, fund.QualityFactor())
			fmt.Fprintf(tw, "(2,2,1)\t%.3f\t%.4f\t%.3f\n", over.Frequency, 1e3*over.DampingTime, over.QualityFactor())
			return tw.Flush()
		},
	}
	mf.register(cmd)
	cmd.Flags().Float64Var(&spin, "spin", 0, "dimensionless remnant spin in [0, 1)")
	_ = cmd.MarkFlagRequired("spin")

	return cmd
}

func (a *app) newTableCommand() *cobra.Command {
	var (
		mf   modelFlags
		step float64
	)

	cmd := &cobra.Command{
		Use:     "table",
		Short:   "Tabulate the fundamental mode over the spin range",
		Example: `  ringdown table --mass 62 --step 0.1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !(step > 0) {
				return fmt.Errorf("step must be > 0: %v", step)
			}
			m, err := mf.model()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Spin\tFrequency [Hz]\tDamping time [ms]\tQuality factor\tKerr/Schwarzschild\n")
			fmt.Fprintf(tw, "----\t--------------\t-----------------\t--------------\t------------------\n")

			lo, hi := m.SpinRange()
			var spins []float64
			for i := 0; lo+float64(i)*step < hi-1e-9; i++ {
				spins = append(spins, lo+float64(i)*step)
			}
			spins = append(spins, hi)

			for _, spin := range spins {
				p, err := m.Predict(mf.mass, spin)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%.3f\t%.3f\t%.4f\t%.3f\t%.4f\n",
					spin, p.Frequency, 1e3*p.DampingTime, p.QualityFactor(), m.FrequencyFactor(spin))
			}
			return tw.Flush()
		},
	}
	mf.register(cmd)
	cmd.Flags().Float64Var(&step, "step", 0.05, "spin increment")

	return cmd
}

func (a *app) newInferCommand() *cobra.Command {
	var (
		mf        modelFlags
		frequency float64
	)

	cmd := &cobra.Command{
		Use:     "infer",
		Short:   "Infer the remnant spin from an observed ring-down frequency",
		Example: `  ringdown infer --mass 62 --frequency 250.5 --redshift 0.09`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := mf.model()
			if err != nil {
				return err
			}
			spin, err := m.InferSpin(mf.mass, frequency)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "spin %.4f\n", spin)
			return err
		},
	}
	mf.register(cmd)
	cmd.Flags().Float64Var(&frequency, "frequency", 0, "observed fundamental frequency in Hz")
	_ = cmd.MarkFlagRequired("frequency")

	return cmd
}
