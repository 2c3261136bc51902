package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"rtdp/agent"
	"rtdp/metrics"
	"rtdp/searcher"
)

type serveOptions struct {
	planOptions
	addr    string
	explore bool
}

func (a *App) newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a planning agent over HTTP",
		Long: `Serve a planning agent for the model over HTTP. The planner's cache is kept
between requests, so later requests reuse earlier search.

Endpoints:
  POST /act      {"state": [...]} plans and returns the chosen action
  POST /value    {"state": [...]} returns the current value interval
  GET  /metrics  Prometheus metrics
  GET  /healthz

Examples:
  rtdp serve -m models/cliff.grid --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.config.Serve.Addr = opts.addr
			}
			if err := a.applyPlanFlags(cmd, &opts.planOptions); err != nil {
				return err
			}
			return a.serve(cmd, opts)
		},
	}
	opts.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (overrides config)")
	cmd.Flags().BoolVar(&opts.explore, "explore", false, "Pick randomly among actions that may still be optimal")
	return cmd
}

func (a *App) serve(cmd *cobra.Command, opts *serveOptions) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}

	m, core, err := a.loadPlanner(opts.model, searcher.WithCollector(collector))
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
	return agent.NewServer(ag, core, m, reg).ListenAndServe(cmd.Context(), a.config.Serve.Addr)
}
