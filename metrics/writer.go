package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Setup struct {
	Name      string        `json:"name"`
	Model     string        `json:"model"`
	Agents    []AgentConfig `json:"agents"`
	Episodes  int           `json:"episodes"` // per agent
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
}

type Writer struct {
	baseDir string
}

// NewWriter creates outDir/name/<timestamp> and writes every record file there.
func NewWriter(outDir, name string) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(outDir, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteSetup(setup Setup) error {
	setup.Duration = setup.EndTime.Sub(setup.StartTime)

	f, err := os.Create(filepath.Join(w.baseDir, "setup.json"))
	if err != nil {
		return fmt.Errorf("failed to create setup file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(setup); err != nil {
		return fmt.Errorf("failed to write setup: %w", err)
	}
	return nil
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "strategy", "budget", "precision", "max_depth", "tau", "max_backups", "seed", "exploring"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Strategy,
			config.Budget.String(),
			formatFloat(config.Precision),
			strconv.Itoa(config.MaxDepth),
			formatFloat(config.Tau),
			strconv.Itoa(config.MaxBackups),
			strconv.FormatUint(config.Seed, 10),
			strconv.FormatBool(config.Exploring),
		})
	}
	return w.writeCSV("agent_configs.csv", "agent config", header, rows)
}

func (w *Writer) WriteEpisodeRecords(records []EpisodeRecord) error {
	header := []string{"id", "agent", "start_time", "end_time", "duration", "steps", "return", "reached_terminal", "initial_lower", "initial_upper"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent),
			record.StartTime.Format(time.RFC3339Nano),
			record.EndTime.Format(time.RFC3339Nano),
			record.Duration.String(),
			strconv.Itoa(record.Steps),
			formatFloat(record.Return),
			strconv.FormatBool(record.ReachedTerminal),
			formatFloat(record.InitialLower),
			formatFloat(record.InitialUpper),
		})
	}
	return w.writeCSV("episode_records.csv", "episode record", header, rows)
}

func (w *Writer) WriteStepRecords(records []StepRecord) error {
	header := []string{"episode", "step", "state", "action", "reward", "strategy", "duration", "trials", "backups", "expansions", "is_cache_reused", "converged", "lower", "upper"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Episode),
			strconv.Itoa(record.Step),
			record.State,
			record.Action,
			formatFloat(record.Reward),
			record.Strategy,
			record.Duration.String(),
			strconv.Itoa(record.Trials),
			strconv.Itoa(record.Backups),
			strconv.Itoa(record.Expansions),
			strconv.FormatBool(record.CacheReused),
			strconv.FormatBool(record.Converged),
			formatFloat(record.Lower),
			formatFloat(record.Upper),
		})
	}
	return w.writeCSV("step_records.csv", "step record", header, rows)
}

func (w *Writer) writeCSV(name, kind string, header []string, rows [][]string) error {
	// Create a file
	f, err := os.Create(filepath.Join(w.baseDir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", kind, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	// Write header
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", kind, err)
	}

	// Write each row
	for _, row := range rows {
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write %s row: %w", kind, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
