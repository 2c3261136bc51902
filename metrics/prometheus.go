package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"rtdp/mdp"
)

type promCollector struct {
	Collector

	trials     *prometheus.CounterVec
	backups    *prometheus.CounterVec
	expansions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rootWidth  *prometheus.GaugeVec

	// bound to the strategy label by Start
	trial     prometheus.Counter
	backup    prometheus.Counter
	expansion prometheus.Counter
	strategy  string
}

// NewPrometheusCollector returns a Collector that also exports its counts to
// reg, labelled by strategy. Counts made before the first Start are not exported.
func NewPrometheusCollector(reg prometheus.Registerer) (Collector, error) {
	p := &promCollector{
		Collector: NewCollector(),
		trials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtdp_trials_total",
			Help: "Search trials run",
		}, []string{"strategy"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtdp_backups_total",
			Help: "Bound backups applied",
		}, []string{"strategy"}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rtdp_expansions_total",
			Help: "States expanded",
		}, []string{"strategy"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rtdp_plan_duration_seconds",
			Help:    "Wall-clock time of one planning call",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
		}, []string{"strategy"}),
		rootWidth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtdp_root_width",
			Help: "Width of the root value interval after the last planning call",
		}, []string{"strategy"}),
	}

	for _, c := range []prometheus.Collector{p.trials, p.backups, p.expansions, p.duration, p.rootWidth} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register search metrics: %w", err)
		}
	}
	return p, nil
}

func (p *promCollector) Start(strategy string) {
	p.Collector.Start(strategy)
	p.strategy = strategy
	p.trial = p.trials.WithLabelValues(strategy)
	p.backup = p.backups.WithLabelValues(strategy)
	p.expansion = p.expansions.WithLabelValues(strategy)
}

func (p *promCollector) AddTrial() {
	p.Collector.AddTrial()
	if p.trial != nil {
		p.trial.Inc()
	}
}

func (p *promCollector) AddBackup() {
	p.Collector.AddBackup()
	if p.backup != nil {
		p.backup.Inc()
	}
}

func (p *promCollector) AddExpansion() {
	p.Collector.AddExpansion()
	if p.expansion != nil {
		p.expansion.Inc()
	}
}

func (p *promCollector) Complete(converged bool, root mdp.ValueInterval, elapsed time.Duration) SearchMetric {
	metric := p.Collector.Complete(converged, root, elapsed)
	p.duration.WithLabelValues(p.strategy).Observe(metric.Duration.Seconds())
	p.rootWidth.WithLabelValues(p.strategy).Set(root.Width())
	return metric
}
