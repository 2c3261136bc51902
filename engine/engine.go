// Package engine plays episodes of a model with an agent choosing actions.
package engine

import "rtdp/metrics"

const MaxSteps = 10000

type Engine interface {
	// Run plays one episode until a terminal state or the step limit
	Run() (metrics.EpisodeMetric, []metrics.StepMetric, error)
}
