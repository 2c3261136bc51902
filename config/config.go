// Package config loads planner settings with priority env > file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"rtdp/bound"
	"rtdp/mdp"
	"rtdp/metrics"
	"rtdp/searcher"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Strategy      string        `json:"strategy" yaml:"strategy"`
	TimeBudget    time.Duration `json:"time_budget" yaml:"time_budget"`
	Precision     float64       `json:"precision" yaml:"precision"`
	MaxDepth      int           `json:"max_depth" yaml:"max_depth"`
	Tau           float64       `json:"tau" yaml:"tau"`
	MaxBackups    int           `json:"max_backups" yaml:"max_backups"`
	Seed          uint64        `json:"seed" yaml:"seed"` // 0 picks a seed from the clock
	PrintInterval time.Duration `json:"print_interval" yaml:"print_interval"`
	Bounds        BoundsConfig  `json:"bounds" yaml:"bounds"`
	BoundsFile    string        `json:"bounds_file" yaml:"bounds_file"`
	BoundsFormat  string        `json:"bounds_format" yaml:"bounds_format"`
	LogLevel      string        `json:"log_level" yaml:"log_level"`

	Episode    EpisodeConfig    `json:"episode" yaml:"episode"`
	Experiment ExperimentConfig `json:"experiment" yaml:"experiment"`
	Serve      ServeConfig      `json:"serve" yaml:"serve"`
}

// BoundsConfig overrides the bounds derived from the model's reward range.
type BoundsConfig struct {
	Lower *float64 `json:"lower" yaml:"lower"`
	Upper *float64 `json:"upper" yaml:"upper"`
}

type EpisodeConfig struct {
	MaxSteps int `json:"max_steps" yaml:"max_steps"`
}

type ExperimentConfig struct {
	Episodes   int      `json:"episodes" yaml:"episodes"`
	OutputDir  string   `json:"output_dir" yaml:"output_dir"`
	Strategies []string `json:"strategies" yaml:"strategies"`
	// Exploring agents sample among the actions that may still be optimal
	Exploring bool `json:"exploring" yaml:"exploring"`
}

type ServeConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

func Default() Config {
	return Config{
		Strategy:      "lrtdp",
		TimeBudget:    time.Second,
		Precision:     1e-3,
		MaxDepth:      searcher.MaxDepth,
		Tau:           searcher.DefaultTau,
		MaxBackups:    searcher.DefaultMaxBackups,
		PrintInterval: searcher.DefaultPrintInterval,
		BoundsFormat:  metrics.FormatText,
		LogLevel:      "info",
		Episode: EpisodeConfig{
			MaxSteps: 200,
		},
		Experiment: ExperimentConfig{
			Episodes:   10,
			OutputDir:  "results",
			Strategies: searcher.StrategyNames(),
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
	}
}

// Load merges the file at path (optional) and the RTDP_* environment over
// the defaults and validates the result.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&config); err != nil {
		return config, err
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("%w: parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", ErrInvalidConfig, err, jsonErr)
		}
	}
	return nil
}

func loadEnv(config *Config) error {
	if v := os.Getenv("RTDP_STRATEGY"); v != "" {
		config.Strategy = v
	}
	if v := os.Getenv("RTDP_TIME_BUDGET"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: RTDP_TIME_BUDGET: %w", ErrInvalidConfig, err)
		}
		config.TimeBudget = d
	}
	if v := os.Getenv("RTDP_PRECISION"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: RTDP_PRECISION: %w", ErrInvalidConfig, err)
		}
		config.Precision = f
	}
	if v := os.Getenv("RTDP_MAX_DEPTH"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RTDP_MAX_DEPTH: %w", ErrInvalidConfig, err)
		}
		config.MaxDepth = i
	}
	if v := os.Getenv("RTDP_SEED"); v != "" {
		u, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: RTDP_SEED: %w", ErrInvalidConfig, err)
		}
		config.Seed = u
	}
	if v := os.Getenv("RTDP_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if _, err := searcher.ParseStrategy(c.Strategy, c.Tau, c.MaxBackups); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, name := range c.Experiment.Strategies {
		if !slices.Contains(searcher.StrategyNames(), name) {
			return fmt.Errorf("%w: unknown experiment strategy %q", ErrInvalidConfig, name)
		}
	}
	if c.TimeBudget <= 0 {
		return fmt.Errorf("%w: time_budget must be > 0", ErrInvalidConfig)
	}
	if c.Precision < 0 {
		return fmt.Errorf("%w: precision must be >= 0", ErrInvalidConfig)
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("%w: max_depth must be >= 1", ErrInvalidConfig)
	}
	if c.Tau < 1 {
		return fmt.Errorf("%w: tau must be >= 1", ErrInvalidConfig)
	}
	if c.MaxBackups < 1 {
		return fmt.Errorf("%w: max_backups must be >= 1", ErrInvalidConfig)
	}
	if c.PrintInterval <= 0 {
		return fmt.Errorf("%w: print_interval must be > 0", ErrInvalidConfig)
	}
	if c.Bounds.Lower != nil && c.Bounds.Upper != nil && *c.Bounds.Lower > *c.Bounds.Upper {
		return fmt.Errorf("%w: bounds.lower must not exceed bounds.upper", ErrInvalidConfig)
	}
	switch c.BoundsFormat {
	case metrics.FormatText, metrics.FormatCSV, metrics.FormatParquet:
	default:
		return fmt.Errorf("%w: bounds_format must be text, csv or parquet", ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %w", ErrInvalidConfig, err)
	}
	if c.Episode.MaxSteps < 1 {
		return fmt.Errorf("%w: episode.max_steps must be >= 1", ErrInvalidConfig)
	}
	if c.Experiment.Episodes < 1 {
		return fmt.Errorf("%w: experiment.episodes must be >= 1", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// NewStrategy builds the configured strategy, or the named one if name is set.
func (c Config) NewStrategy(name string) (searcher.Strategy, error) {
	if name == "" {
		name = c.Strategy
	}
	return searcher.ParseStrategy(name, c.Tau, c.MaxBackups)
}

// SearcherOptions translates the tuning fields into searcher options.
func (c Config) SearcherOptions() []searcher.Option {
	options := []searcher.Option{
		searcher.WithMaxDepth(c.MaxDepth),
		searcher.WithPrintInterval(c.PrintInterval),
	}
	if c.Seed != 0 {
		options = append(options, searcher.WithSeed(c.Seed))
	}
	return options
}

// ModelBounds returns the initial bounds for m. Explicit constants win over
// bounds derived from the model's reward range.
func (c Config) ModelBounds(m mdp.Model) (lower, upper mdp.Bound, err error) {
	if c.Bounds.Lower == nil || c.Bounds.Upper == nil {
		lower, upper, err = bound.ForModel(m)
		if err != nil {
			return nil, nil, fmt.Errorf("derive bounds (set bounds.lower and bounds.upper for undiscounted models): %w", err)
		}
	}
	if c.Bounds.Lower != nil {
		lower = bound.Constant(*c.Bounds.Lower)
	}
	if c.Bounds.Upper != nil {
		upper = bound.Constant(*c.Bounds.Upper)
	}
	return lower, upper, nil
}
