package model

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"rtdp/mdp"
)

const (
	cellFree     = '.'
	cellStart    = 'S'
	cellGoal     = 'G'
	cellHazard   = 'x'
	cellObstacle = '#'
)

const (
	North mdp.Action = iota
	East
	South
	West
)

var compass = []struct {
	name   string
	dx, dy int
}{
	North: {"N", 0, 1},
	East:  {"E", 1, 0},
	South: {"S", 0, -1},
	West:  {"W", -1, 0},
}

type gridHeader struct {
	Discount     float64 `yaml:"discount"`
	Slip         float64 `yaml:"slip"`
	StepReward   float64 `yaml:"step_reward"`
	GoalReward   float64 `yaml:"goal_reward"`
	HazardReward float64 `yaml:"hazard_reward"`
}

func defaultGridHeader() gridHeader {
	return gridHeader{
		Discount:     0.95,
		Slip:         0.1,
		StepReward:   -1,
		GoalReward:   0,
		HazardReward: -10,
	}
}

// Grid is a navigation problem on a map. Each move goes the intended way
// with probability 1-slip and slips to either side with probability slip/2.
// Moves into obstacles or off the map stay put. Goal and hazard cells end the
// episode. The state is [x, y] with y counted up from the bottom row.
type Grid struct {
	header gridHeader
	width  int
	height int
	cells  []byte // row-major from the bottom row
	startX int
	startY int
}

func LoadGrid(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	defer f.Close()
	return ParseGrid(f)
}

// ParseGrid reads a YAML header, a line starting with "---", then the map
// rows from top to bottom. Short rows are padded with obstacles.
func ParseGrid(r io.Reader) (*Grid, error) {
	scanner := bufio.NewScanner(r)
	lnum := 0

	var header bytes.Buffer
	foundSeparator := false
	for scanner.Scan() {
		lnum++
		line := scanner.Text()
		if strings.HasPrefix(line, "---") {
			foundSeparator = true
			break
		}
		header.WriteString(line)
		header.WriteByte('\n')
	}
	if !foundSeparator {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read grid header: %w", err)
		}
		return nil, fmt.Errorf("%w: reached end of file while still parsing the header", ErrInvalidModel)
	}

	g := &Grid{header: defaultGridHeader(), startX: -1}
	decoder := yaml.NewDecoder(&header)
	decoder.KnownFields(true)
	// An empty or comment-only header keeps the defaults
	if err := decoder.Decode(&g.header); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidModel, err)
	}
	if g.header.Discount < 0 || g.header.Discount > 1 {
		return nil, fmt.Errorf("%w: discount %g outside [0, 1]", ErrInvalidModel, g.header.Discount)
	}
	if g.header.Slip < 0 || g.header.Slip > 1 {
		return nil, fmt.Errorf("%w: slip %g outside [0, 1]", ErrInvalidModel, g.header.Slip)
	}

	rows := []string{}
	for scanner.Scan() {
		lnum++
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		for _, c := range []byte(line) {
			switch c {
			case cellFree, cellStart, cellGoal, cellHazard, cellObstacle:
			default:
				return nil, fmt.Errorf("%w: line %d: unexpected cell %q", ErrInvalidModel, lnum, c)
			}
		}
		rows = append(rows, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read grid map: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty map", ErrInvalidModel)
	}

	g.height = len(rows)
	for _, row := range rows {
		g.width = max(g.width, len(row))
	}
	g.cells = bytes.Repeat([]byte{cellObstacle}, g.width*g.height)
	for i, row := range rows {
		y := g.height - 1 - i
		for x := 0; x < len(row); x++ {
			c := row[x]
			if c == cellStart {
				if g.startX >= 0 {
					return nil, fmt.Errorf("%w: more than one start cell", ErrInvalidModel)
				}
				g.startX, g.startY = x, y
				c = cellFree
			}
			g.cells[y*g.width+x] = c
		}
	}
	if g.startX < 0 {
		return nil, fmt.Errorf("%w: no start cell", ErrInvalidModel)
	}
	return g, nil
}

func (g *Grid) cell(x, y int) byte {
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return cellObstacle
	}
	return g.cells[y*g.width+x]
}

func (g *Grid) position(s mdp.State) (int, int) {
	if len(s) != 2 {
		panic(fmt.Sprintf("model: %v is not a grid position", s))
	}
	return int(s[0]), int(s[1])
}

func (g *Grid) Actions(s mdp.State) []mdp.Action {
	switch g.cell(g.position(s)) {
	case cellGoal, cellHazard, cellObstacle:
		return nil
	}
	return []mdp.Action{North, East, South, West}
}

func (g *Grid) Outcomes(s mdp.State, a mdp.Action) []mdp.Outcome {
	x, y := g.position(s)
	left, right := (a+3)%4, (a+1)%4
	if g.header.Slip == 0 {
		return []mdp.Outcome{g.move(x, y, a, 1)}
	}
	if g.header.Slip == 1 {
		return []mdp.Outcome{g.move(x, y, left, 0.5), g.move(x, y, right, 0.5)}
	}
	return []mdp.Outcome{
		g.move(x, y, a, 1-g.header.Slip),
		g.move(x, y, left, g.header.Slip/2),
		g.move(x, y, right, g.header.Slip/2),
	}
}

func (g *Grid) move(x, y int, a mdp.Action, prob float64) mdp.Outcome {
	nx, ny := x+compass[a].dx, y+compass[a].dy
	if g.cell(nx, ny) == cellObstacle {
		nx, ny = x, y
	}

	reward := g.header.StepReward
	switch g.cell(nx, ny) {
	case cellGoal:
		reward += g.header.GoalReward
	case cellHazard:
		reward += g.header.HazardReward
	}
	return mdp.Outcome{Prob: prob, Next: mdp.State{float64(nx), float64(ny)}, Reward: reward}
}

func (g *Grid) Discount() float64 {
	return g.header.Discount
}

func (g *Grid) InitialState() mdp.State {
	return mdp.State{float64(g.startX), float64(g.startY)}
}

func (g *Grid) ActionName(a mdp.Action) string {
	if a < 0 || int(a) >= len(compass) {
		return fmt.Sprintf("action(%d)", a)
	}
	return compass[a].name
}

func (g *Grid) RewardRange() (min, max float64) {
	step := g.header.StepReward
	goal, hazard := step+g.header.GoalReward, step+g.header.HazardReward
	return math.Min(step, math.Min(goal, hazard)), math.Max(step, math.Max(goal, hazard))
}

func (g *Grid) StateName(s mdp.State) string {
	x, y := g.position(s)
	return fmt.Sprintf("(%d,%d)", x, y)
}

func (g *Grid) Size() (width, height int) {
	return g.width, g.height
}

// Render draws the map top row first, marking each free cell with the
// letter of the action policy picks there.
func (g *Grid) Render(policy func(mdp.State) mdp.Action) string {
	var b strings.Builder
	for y := g.height - 1; y >= 0; y-- {
		for x := 0; x < g.width; x++ {
			c := g.cell(x, y)
			if c == cellFree && policy != nil {
				if a := policy(mdp.State{float64(x), float64(y)}); a != mdp.NoAction {
					c = g.ActionName(a)[0]
				}
			}
			b.WriteByte(c)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
