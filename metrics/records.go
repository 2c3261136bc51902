package metrics

import "time"

// AgentConfig describes one planning agent taking part in an experiment.
type AgentConfig struct {
	ID         int
	Strategy   string
	Budget     time.Duration // planning time per step
	Precision  float64
	MaxDepth   int
	Tau        float64
	MaxBackups int
	Seed       uint64
	Exploring  bool
}

type EpisodeMetric struct {
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
	Steps           int
	Return          float64 // discounted
	ReachedTerminal bool
	InitialLower    float64 // root interval after the first planning call
	InitialUpper    float64
}

type StepMetric struct {
	Step   int
	State  string
	Action string
	Reward float64
	SearchMetric
}

type EpisodeRecord struct {
	ID    int
	Agent int // AgentConfig.ID
	EpisodeMetric
}

type StepRecord struct {
	Episode int // EpisodeRecord.ID
	StepMetric
}
