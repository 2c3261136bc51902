// Package cli provides the rtdp command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"rtdp/agent"
	"rtdp/config"
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/model"
	"rtdp/searcher"
)

type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string
	config     config.Config
}

func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "rtdp",
		Short: "Plan in Markov decision processes with bounded real-time dynamic programming",
		Long: `rtdp searches MDP models with trial-based planners that keep a lower and an
upper bound on every visited state's value and stop once the bounds at the
start state are close enough.

Models are either YAML tables (.yaml/.yml) or grid maps.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.setup,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to a YAML or JSON configuration file")
	app.root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level (overrides config)")

	app.root.AddCommand(
		app.newPlanCmd(),
		app.newRunCmd(),
		app.newExperimentCmd(),
		app.newServeCmd(),
	)
	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// Execute runs the CLI on the process arguments and exits non-zero on failure.
func Execute() {
	if err := New().Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.config = cfg

	zerolog.SetGlobalLevel(cfg.Level())
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	return nil
}

// loadPlanner loads the model at path and builds a planner over it with the
// configured strategy and bounds.
func (a *App) loadPlanner(path string, options ...searcher.Option) (mdp.Model, *searcher.Core, error) {
	m, err := model.Load(path)
	if err != nil {
		return nil, nil, err
	}
	strategy, err := a.config.NewStrategy("")
	if err != nil {
		return nil, nil, err
	}
	lower, upper, err := a.config.ModelBounds(m)
	if err != nil {
		return nil, nil, err
	}

	options = append(a.config.SearcherOptions(), options...)
	options = append(options, searcher.WithLogger(log.Logger))
	core := searcher.New(strategy, lower, upper, options...)
	core.PlanInit(m)
	return m, core, nil
}

// openBoundsFile installs the configured snapshot sink on core. The returned
// close function is never nil.
func (a *App) openBoundsFile(core *searcher.Core) (func() error, error) {
	if a.config.BoundsFile == "" {
		return func() error { return nil }, nil
	}
	sink, err := metrics.OpenBoundsFile(a.config.BoundsFile, a.config.BoundsFormat)
	if err != nil {
		return nil, err
	}
	core.SetBoundsFile(sink)
	return sink.Close, nil
}

func (a *App) newAgent(core *searcher.Core, explore bool) agent.Agent {
	if !explore {
		return agent.NewPlanningAgent(core, a.config.TimeBudget, a.config.Precision)
	}
	seed := a.config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return agent.NewExploringAgent(core, a.config.TimeBudget, a.config.Precision, seed)
}

// applyPlanFlags copies the planning flags the user set over the config.
func (a *App) applyPlanFlags(cmd *cobra.Command, opts *planOptions) error {
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		a.config.Strategy = opts.strategy
	}
	if flags.Changed("budget") {
		a.config.TimeBudget = opts.budget
	}
	if flags.Changed("precision") {
		a.config.Precision = opts.precision
	}
	if flags.Changed("seed") {
		a.config.Seed = opts.seed
	}
	if flags.Changed("bounds-file") {
		a.config.BoundsFile = opts.boundsFile
	}
	return a.config.Validate()
}

type planOptions struct {
	model      string
	strategy   string
	budget     time.Duration
	precision  float64
	seed       uint64
	boundsFile string
}

func (opts *planOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Path to the model (required)")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "Trial strategy: rtdp, lrtdp, brtdp or prioritized")
	cmd.Flags().DurationVar(&opts.budget, "budget", 0, "Planning time per call")
	cmd.Flags().Float64Var(&opts.precision, "precision", 0, "Target width of the start state's value interval")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one from the clock)")
	cmd.Flags().StringVar(&opts.boundsFile, "bounds-file", "", "Write progress snapshots to this file")
	_ = cmd.MarkFlagRequired("model")
}
