package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rtdp/model"
)

func (a *App) newPlanCmd() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan from the model's start state and print its value bounds",
		Long: `Plan from the model's start state until the value interval is within the
precision or the budget runs out, then print the interval, the best action
and the search counters. Grid models also print the greedy policy.

Examples:
  rtdp plan -m models/cliff.grid
  rtdp plan -m models/chain.yaml --strategy brtdp --budget 200ms --bounds-file bounds.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.applyPlanFlags(cmd, opts); err != nil {
				return err
			}
			return a.plan(opts.model)
		},
	}
	opts.register(cmd)
	return cmd
}

func (a *App) plan(path string) (err error) {
	m, core, err := a.loadPlanner(path)
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

	start := m.InitialState()
	converged := core.PlanFixedTime(start, a.config.TimeBudget.Seconds(), a.config.Precision)
	value := core.ValueAt(start)
	stats := core.Stats()
	action := core.ChooseAction(start)

	fmt.Fprintf(a.stdout, "strategy:  %s\n", core.Strategy())
	fmt.Fprintf(a.stdout, "state:     %s\n", model.StateName(m, start))
	fmt.Fprintf(a.stdout, "value:     %s\n", value)
	fmt.Fprintf(a.stdout, "width:     %g\n", value.Width())
	fmt.Fprintf(a.stdout, "converged: %t\n", converged)
	if action >= 0 {
		fmt.Fprintf(a.stdout, "action:    %s\n", m.ActionName(action))
	} else {
		fmt.Fprintln(a.stdout, "action:    none (terminal)")
	}
	fmt.Fprintf(a.stdout, "trials:    %d\n", stats.Trials)
	fmt.Fprintf(a.stdout, "backups:   %d\n", stats.Backups)
	fmt.Fprintf(a.stdout, "states:    %d touched, %d expanded\n", stats.StatesTouched, stats.StatesExpanded)

	if g, ok := m.(*model.Grid); ok {
		fmt.Fprintf(a.stdout, "\n%s", g.Render(core.ChooseAction))
	}
	return nil
}
