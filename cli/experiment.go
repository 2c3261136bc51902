package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rtdp/experiments"
	"rtdp/model"
)

type experimentOptions struct {
	planOptions
	strategies []string
	episodes   int
	outDir     string
}

func (a *App) newExperimentCmd() *cobra.Command {
	opts := &experimentOptions{}

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Compare strategies over many episodes and store the records",
		Long: `Run every listed strategy for a number of episodes on the same model and
settings. Records are written as CSV under <out>/strategy_comparison/<timestamp>.

Examples:
  rtdp experiment -m models/cliff.grid --episodes 20
  rtdp experiment -m models/chain.yaml --strategies lrtdp,brtdp --out /tmp/results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("strategies") {
				a.config.Experiment.Strategies = opts.strategies
			}
			if flags.Changed("episodes") {
				a.config.Experiment.Episodes = opts.episodes
			}
			if flags.Changed("out") {
				a.config.Experiment.OutputDir = opts.outDir
			}
			if err := a.applyPlanFlags(cmd, &opts.planOptions); err != nil {
				return err
			}
			return a.experiment(opts.model)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringSliceVar(&opts.strategies, "strategies", nil, "Strategies to compare (overrides config)")
	cmd.Flags().IntVar(&opts.episodes, "episodes", 0, "Episodes per strategy (overrides config)")
	cmd.Flags().StringVar(&opts.outDir, "out", "", "Output directory (overrides config)")
	return cmd
}

func (a *App) experiment(path string) error {
	m, err := model.Load(path)
	if err != nil {
		return err
	}

	result, err := experiments.CompareStrategies(a.config, m, path)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "agent\tstrategy\tepisodes\tmean return\tstd\tmean steps\tterminal\tconverged")
	for _, s := range result.Summaries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%.4f\t%.4f\t%.1f\t%.2f\t%.2f\n",
			s.Agent, s.Strategy, s.Episodes, s.MeanReturn, s.StdReturn, s.MeanSteps, s.TerminalRate, s.Converged)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "records: %s\n", result.Dir)
	return nil
}
