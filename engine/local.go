package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"rtdp/agent"
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/model"
)

type Option func(e *Local)

// WithMaxSteps caps the episode length. Values above MaxSteps are clamped.
func WithMaxSteps(steps int) Option {
	return func(e *Local) {
		if steps > 0 {
			e.maxSteps = min(steps, MaxSteps)
		}
	}
}

// WithSeed fixes the seed used to sample outcomes.
func WithSeed(seed uint64) Option {
	return func(e *Local) {
		e.rng.Seed(seed)
	}
}

// Local simulates the model in process and asks the agent for every action.
type Local struct {
	model    mdp.Model
	agent    agent.Agent
	maxSteps int
	rng      *rand.Rand
}

var _ Engine = (*Local)(nil)

func New(m mdp.Model, a agent.Agent, options ...Option) *Local {
	e := &Local{
		model:    m,
		agent:    a,
		maxSteps: MaxSteps,
		rng:      rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Run starts from the model's initial state. The return is discounted by the
// model's discount factor.
func (e *Local) Run() (metrics.EpisodeMetric, []metrics.StepMetric, error) {
	episode := metrics.EpisodeMetric{StartTime: time.Now()}
	steps := []metrics.StepMetric{}

	state := e.model.InitialState()
	discount := 1.0
	log.Info().Str("state", model.StateName(e.model, state)).Msg("episode started")

	for step := 1; step <= e.maxSteps && len(e.model.Actions(state)) > 0; step++ {
		action, searchMetric, err := e.agent.FindAction(state)
		if err != nil {
			return episode, steps, fmt.Errorf("step %d: %w", step, err)
		}
		if step == 1 {
			episode.InitialLower, episode.InitialUpper = searchMetric.Lower, searchMetric.Upper
		}
		if action == mdp.NoAction {
			break
		}

		outcome := e.sample(e.model.Outcomes(state, action))
		episode.Return += discount * outcome.Reward
		discount *= e.model.Discount()

		steps = append(steps, metrics.StepMetric{
			Step:         step,
			State:        model.StateName(e.model, state),
			Action:       e.model.ActionName(action),
			Reward:       outcome.Reward,
			SearchMetric: searchMetric,
		})
		log.Debug().
			Int("step", step).
			Str("state", model.StateName(e.model, state)).
			Str("action", e.model.ActionName(action)).
			Float64("reward", outcome.Reward).
			Stringer("value", searchMetric.Interval()).
			Msg("step")

		state = outcome.Next
	}

	episode.EndTime = time.Now()
	episode.Duration = episode.EndTime.Sub(episode.StartTime)
	episode.Steps = len(steps)
	episode.ReachedTerminal = len(e.model.Actions(state)) == 0
	log.Info().
		Int("steps", episode.Steps).
		Float64("return", episode.Return).
		Bool("terminal", episode.ReachedTerminal).
		Msg("episode finished")
	return episode, steps, nil
}

func (e *Local) sample(outcomes []mdp.Outcome) mdp.Outcome {
	r := e.rng.Float64()
	for _, o := range outcomes {
		if r < o.Prob {
			return o
		}
		r -= o.Prob
	}
	return outcomes[len(outcomes)-1]
}
