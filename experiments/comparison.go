package experiments

import (
	"rtdp/config"
	"rtdp/mdp"
	"rtdp/metrics"
)

// AgentConfigs returns one agent per experiment strategy, all sharing the
// configured budget and tuning.
func AgentConfigs(c config.Config) []metrics.AgentConfig {
	configs := make([]metrics.AgentConfig, 0, len(c.Experiment.Strategies))
	for i, name := range c.Experiment.Strategies {
		configs = append(configs, metrics.AgentConfig{
			ID:         i + 1,
			Strategy:   name,
			Budget:     c.TimeBudget,
			Precision:  c.Precision,
			MaxDepth:   c.MaxDepth,
			Tau:        c.Tau,
			MaxBackups: c.MaxBackups,
			Seed:       c.Seed,
			Exploring:  c.Experiment.Exploring,
		})
	}
	return configs
}

// CompareStrategies runs every experiment strategy on m under the same settings.
func CompareStrategies(c config.Config, m mdp.Model, modelName string) (Result, error) {
	lower, upper, err := c.ModelBounds(m)
	if err != nil {
		return Result{}, err
	}
	return Run(Experiment{
		Name:      "strategy_comparison",
		Model:     m,
		ModelName: modelName,
		Lower:     lower,
		Upper:     upper,
		Agents:    AgentConfigs(c),
		Episodes:  c.Experiment.Episodes,
		MaxSteps:  c.Episode.MaxSteps,
		OutDir:    c.Experiment.OutputDir,
	})
}
