// Package experiments runs planning agents over many episodes of a model and
// stores the results as CSV under a timestamped directory.
package experiments

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"

	"rtdp/agent"
	"rtdp/engine"
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/searcher"
)

type Experiment struct {
	Name      string
	Model     mdp.Model
	ModelName string
	Lower     mdp.Bound
	Upper     mdp.Bound
	Agents    []metrics.AgentConfig
	Episodes  int // per agent
	MaxSteps  int
	OutDir    string
	// NewCollector gives each planner its metrics sink. Nil uses metrics.NewCollector.
	NewCollector func() metrics.Collector
}

// Summary aggregates the episodes of one agent.
type Summary struct {
	Agent        int
	Strategy     string
	Episodes     int
	MeanReturn   float64
	StdReturn    float64
	MeanSteps    float64
	TerminalRate float64
	Converged    float64 // share of planning calls that met the precision
}

type Result struct {
	Dir       string
	Summaries []Summary
}

// Run plays exp.Episodes episodes per agent config. Every episode starts from
// an empty cache.
func Run(exp Experiment) (Result, error) {
	if exp.Episodes < 1 {
		return Result{}, fmt.Errorf("experiment %s: need at least one episode", exp.Name)
	}
	if exp.NewCollector == nil {
		exp.NewCollector = metrics.NewCollector
	}

	count := 0
	startTime := time.Now()
	episodeRecords := []metrics.EpisodeRecord{}
	stepRecords := []metrics.StepRecord{}
	summaries := []Summary{}

	log.Info().Msgf("starting %s experiment...", exp.Name)

	for ai, config := range exp.Agents {
		log.Info().Msgf("starting agent %d of %d: %+v", ai+1, len(exp.Agents), config)

		returns := make([]float64, 0, exp.Episodes)
		lengths := make([]float64, 0, exp.Episodes)
		terminal, converged, calls := 0, 0, 0

		for i := 0; i < exp.Episodes; i++ {
			episode, steps, err := runEpisode(exp, config, uint64(i))
			if err != nil {
				return Result{}, fmt.Errorf("agent %d episode %d: %w", config.ID, i+1, err)
			}
			count++
			episodeRecords = append(episodeRecords, metrics.EpisodeRecord{
				ID:            count,
				Agent:         config.ID,
				EpisodeMetric: episode,
			})
			for _, step := range steps {
				stepRecords = append(stepRecords, metrics.StepRecord{
					Episode:    count,
					StepMetric: step,
				})
				calls++
				if step.Converged {
					converged++
				}
			}

			returns = append(returns, episode.Return)
			lengths = append(lengths, float64(episode.Steps))
			if episode.ReachedTerminal {
				terminal++
			}
			log.Info().Msgf("completed agent %d episode %d of %d with return %g", config.ID, i+1, exp.Episodes, episode.Return)
		}

		summary := Summary{
			Agent:        config.ID,
			Strategy:     config.Strategy,
			Episodes:     exp.Episodes,
			MeanSteps:    stat.Mean(lengths, nil),
			TerminalRate: float64(terminal) / float64(exp.Episodes),
		}
		summary.MeanReturn, summary.StdReturn = stat.MeanStdDev(returns, nil)
		if exp.Episodes == 1 {
			summary.StdReturn = 0
		}
		if calls > 0 {
			summary.Converged = float64(converged) / float64(calls)
		}
		summaries = append(summaries, summary)
	}

	log.Info().Msgf("completed %s experiment", exp.Name)

	dir, err := store(exp, startTime, episodeRecords, stepRecords)
	if err != nil {
		return Result{}, err
	}
	return Result{Dir: dir, Summaries: summaries}, nil
}

func runEpisode(exp Experiment, config metrics.AgentConfig, episode uint64) (metrics.EpisodeMetric, []metrics.StepMetric, error) {
	strategy, err := searcher.ParseStrategy(config.Strategy, config.Tau, config.MaxBackups)
	if err != nil {
		return metrics.EpisodeMetric{}, nil, err
	}

	options := []searcher.Option{searcher.WithCollector(exp.NewCollector())}
	if config.MaxDepth > 0 {
		options = append(options, searcher.WithMaxDepth(config.MaxDepth))
	}
	engineOptions := []engine.Option{engine.WithMaxSteps(exp.MaxSteps)}
	if config.Seed != 0 {
		options = append(options, searcher.WithSeed(config.Seed+episode))
		engineOptions = append(engineOptions, engine.WithSeed(config.Seed+episode))
	}

	core := searcher.New(strategy, exp.Lower, exp.Upper, options...)
	core.PlanInit(exp.Model)

	var a agent.Agent
	if config.Exploring {
		a = agent.NewExploringAgent(core, config.Budget, config.Precision, config.Seed+episode)
	} else {
		a = agent.NewPlanningAgent(core, config.Budget, config.Precision)
	}
	return engine.New(exp.Model, a, engineOptions...).Run()
}

func store(exp Experiment, startTime time.Time, episodes []metrics.EpisodeRecord, steps []metrics.StepRecord) (string, error) {
	writer, err := metrics.NewWriter(exp.OutDir, exp.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create experiment writer: %w", err)
	}

	err = writer.WriteSetup(metrics.Setup{
		Name:      exp.Name,
		Model:     exp.ModelName,
		Agents:    exp.Agents,
		Episodes:  exp.Episodes,
		StartTime: startTime,
		EndTime:   time.Now(),
	})
	if err != nil {
		return "", err
	}

	if err := writer.WriteAgentConfigs(exp.Agents); err != nil {
		return "", fmt.Errorf("failed to store agent configs: %w", err)
	}
	log.Info().Msg("stored agent configs")

	if err := writer.WriteEpisodeRecords(episodes); err != nil {
		return "", fmt.Errorf("failed to write episode records: %w", err)
	}
	log.Info().Msg("stored episode records")

	if err := writer.WriteStepRecords(steps); err != nil {
		return "", fmt.Errorf("failed to write step records: %w", err)
	}
	log.Info().Msg("stored step records")
	return writer.Dir(), nil
}
