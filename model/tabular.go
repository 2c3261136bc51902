package model

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"rtdp/mdp"
)

type tabularFile struct {
	Discount float64     `yaml:"discount"`
	Initial  string      `yaml:"initial"`
	States   []stateSpec `yaml:"states"`
}

type stateSpec struct {
	Name    string       `yaml:"name"`
	Actions []actionSpec `yaml:"actions"`
}

type actionSpec struct {
	Name     string        `yaml:"name"`
	Outcomes []outcomeSpec `yaml:"outcomes"`
}

type outcomeSpec struct {
	To     string  `yaml:"to"`
	Prob   float64 `yaml:"prob"`
	Reward float64 `yaml:"reward"`
}

type tabularAction struct {
	action   mdp.Action
	outcomes []mdp.Outcome
}

// Tabular is a finite MDP listed state by state. The state vector of the
// i-th listed state is [i]. Action ids are shared by every state that uses
// the same action name.
type Tabular struct {
	discount    float64
	initial     int
	names       []string
	actionNames []string
	table       [][]tabularAction
	minReward   float64
	maxReward   float64
}

func LoadTabular(path string) (*Tabular, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	return ParseTabular(data)
}

func ParseTabular(data []byte) (*Tabular, error) {
	var file tabularFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	if file.Discount < 0 || file.Discount > 1 {
		return nil, fmt.Errorf("%w: discount %g outside [0, 1]", ErrInvalidModel, file.Discount)
	}
	if len(file.States) == 0 {
		return nil, fmt.Errorf("%w: no states", ErrInvalidModel)
	}

	index := make(map[string]int, len(file.States))
	names := make([]string, len(file.States))
	for i, spec := range file.States {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: state %d has no name", ErrInvalidModel, i)
		}
		if _, dup := index[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate state %q", ErrInvalidModel, spec.Name)
		}
		index[spec.Name] = i
		names[i] = spec.Name
	}

	t := &Tabular{
		discount:  file.Discount,
		names:     names,
		table:     make([][]tabularAction, len(file.States)),
		minReward: math.Inf(1),
		maxReward: math.Inf(-1),
	}

	if file.Initial != "" {
		initial, ok := index[file.Initial]
		if !ok {
			return nil, fmt.Errorf("%w: unknown initial state %q", ErrInvalidModel, file.Initial)
		}
		t.initial = initial
	}

	for i, spec := range file.States {
		for _, actionSpec := range spec.Actions {
			action := t.actionID(actionSpec.Name)
			if slices.ContainsFunc(t.table[i], func(a tabularAction) bool { return a.action == action }) {
				return nil, fmt.Errorf("%w: state %q lists action %q twice", ErrInvalidModel, spec.Name, actionSpec.Name)
			}

			outcomes := make([]mdp.Outcome, 0, len(actionSpec.Outcomes))
			for _, o := range actionSpec.Outcomes {
				next, ok := index[o.To]
				if !ok {
					return nil, fmt.Errorf("%w: state %q action %q leads to unknown state %q", ErrInvalidModel, spec.Name, actionSpec.Name, o.To)
				}
				outcomes = append(outcomes, mdp.Outcome{Prob: o.Prob, Next: mdp.State{float64(next)}, Reward: o.Reward})
				t.minReward = math.Min(t.minReward, o.Reward)
				t.maxReward = math.Max(t.maxReward, o.Reward)
			}
			if err := mdp.CheckOutcomes(outcomes); err != nil {
				return nil, fmt.Errorf("%w: state %q action %q: %w", ErrInvalidModel, spec.Name, actionSpec.Name, err)
			}
			t.table[i] = append(t.table[i], tabularAction{action: action, outcomes: outcomes})
		}
	}

	if math.IsInf(t.minReward, 1) {
		t.minReward, t.maxReward = 0, 0
	}
	return t, nil
}

func (t *Tabular) actionID(name string) mdp.Action {
	if i := slices.Index(t.actionNames, name); i >= 0 {
		return mdp.Action(i)
	}
	t.actionNames = append(t.actionNames, name)
	return mdp.Action(len(t.actionNames) - 1)
}

func (t *Tabular) row(s mdp.State) []tabularAction {
	if len(s) != 1 || s[0] < 0 || int(s[0]) >= len(t.table) || float64(int(s[0])) != s[0] {
		panic(fmt.Sprintf("model: %v is not a state of this tabular model", s))
	}
	return t.table[int(s[0])]
}

func (t *Tabular) Actions(s mdp.State) []mdp.Action {
	row := t.row(s)
	actions := make([]mdp.Action, len(row))
	for i, entry := range row {
		actions[i] = entry.action
	}
	return actions
}

func (t *Tabular) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	for _, entry := range t.row(s) {
		if entry.action == a {
			return entry.outcomes
		}
	}
	panic(fmt.Sprintf("model: action %d is not applicable in state %q", a, t.StateName(s)))
}

func (t *Tabular) Discount() float64 {
	return t.discount
}

func (t *Tabular) InitialState() mdp.State {
	return mdp.State{float64(t.initial)}
}

func (t *Tabular) ActionName(a mdp.Action) string {
	if a < 0 || int(a) >= len(t.actionNames) {
		return fmt.Sprintf("action(%d)", a)
	}
	return t.actionNames[a]
}

func (t *Tabular) RewardRange() (min, max float64) {
	return t.minReward, t.maxReward
}

func (t *Tabular) StateName(s mdp.State) string {
	t.row(s)
	return t.names[int(s[0])]
}

// State returns the state vector of the named state.
func (t *Tabular) State(name string) (mdp.State, bool) {
	i := slices.Index(t.names, name)
	if i < 0 {
		return nil, false
	}
	return mdp.State{float64(i)}, true
}
