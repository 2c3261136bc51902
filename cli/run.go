package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtdp/engine"
)

type runOptions struct {
	planOptions
	maxSteps int
	explore  bool
}

func (a *App) newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play one episode, planning before every step",
		Long: `Play one episode of the model from its start state. Before each step the
agent plans within the budget and acts on the resulting bounds. The episode
ends at a terminal state or after max-steps steps.

Examples:
  rtdp run -m models/cliff.grid --seed 7
  rtdp run -m models/chain.yaml --explore --max-steps 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("max-steps") {
				a.config.Episode.MaxSteps = opts.maxSteps
			}
			if err := a.applyPlanFlags(cmd, &opts.planOptions); err != nil {
				return err
			}
			return a.run(opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().IntVar(&opts.maxSteps, "max-steps", 0, "Maximum episode length (overrides config)")
	cmd.Flags().BoolVar(&opts.explore, "explore", false, "Pick randomly among actions that may still be optimal")
	return cmd
}

func (a *App) run(opts *runOptions) (err error) {
	m, core, err := a.loadPlanner(opts.model)
	if err != nil {
		return err
	}
	closeBounds, err := a.openBoundsFile(core)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeBounds(); err == nil {
			err = closeErr
		}
	}()

	ag := a.newAgent(core, opts.explore)
	engineOptions := []engine.Option{engine.WithMaxSteps(a.config.Episode.MaxSteps)}
	if a.config.Seed != 0 {
		engineOptions = append(engineOptions, engine.WithSeed(a.config.Seed))
	}

	episode, steps, err := engine.New(m, ag, engineOptions...).Run()
	if err != nil {
		return err
	}

	for _, step := range steps {
		fmt.Fprintf(a.stdout, "%4d  %-12s %-8s %8g  %s\n", step.Step, step.State, step.Action, step.Reward, step.Interval())
	}
	fmt.Fprintf(a.stdout, "steps: %d  return: %g  terminal: %t\n", episode.Steps, episode.Return, episode.ReachedTerminal)
	return nil
}
