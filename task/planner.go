package task

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"mtafrmax/cdtb"
)

// Planner runs synchronous value iteration over a task's state space. It
// retains values across calls for a warm start, matching the persistence
// behavior described in the data model.
type Planner struct {
	numStates  int
	numActions int
	discount   float64

	applicable [][]bool
	// Values is shared with the owning task's Values slice; value
	// iteration mutates it in place.
	Values []float64
	// Actions[s] is the local action index selected by the last completed
	// sweep; -1 where no action was applicable.
	Actions []int
}

func newPlanner(numStates, numActions int, discount float64, applicable [][]bool, values []float64) *Planner {
	actions := make([]int, numStates)
	for i := range actions {
		actions[i] = -1
	}
	return &Planner{
		numStates:  numStates,
		numActions: numActions,
		discount:   discount,
		applicable: applicable,
		Values:     values,
		Actions:    actions,
	}
}

// DoValueIteration runs synchronous Bellman sweeps until the max-norm
// change in the value array drops below targetPrecision. States with no
// applicable action keep whatever value Values already holds for them (the
// task constructor seeds every state to rmax/0.1) and record no action.
func (p *Planner) DoValueIteration(
	reward [][]float64,
	transition [][][]cdtb.Pair,
	targetPrecision float64,
) {
	next := make([]float64, p.numStates)

	for {
		maxDelta := 0.0

		for s := 0; s < p.numStates; s++ {
			best := math.Inf(-1)
			bestAction := -1
			any := false

			for a := 0; a < p.numActions; a++ {
				if !p.applicable[s][a] {
					continue
				}
				any = true

				q := reward[s][a]
				for _, pair := range transition[s][a] {
					q += p.discount * pair.Prob * p.Values[pair.Child]
				}
				if q > best {
					best = q
					bestAction = a
				}
			}

			if !any {
				next[s] = p.Values[s]
				continue
			}

			next[s] = best
			p.Actions[s] = bestAction

			if delta := math.Abs(next[s] - p.Values[s]); delta > maxDelta {
				maxDelta = delta
			}
		}

		copy(p.Values, next)

		if maxDelta < targetPrecision {
			return
		}
	}
}

// ErrPolicyFileShape is returned by Read when the file's line count does
// not match the expected number of states.
var ErrPolicyFileShape = fmt.Errorf("task: policy file line count does not match state count")

// Write emits one local action index per line, for states 0..numStates-1,
// with no version header; compatibility with Read is purely positional.
func (p *Planner) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("task: write policy %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, a := range p.Actions {
		if _, err := fmt.Fprintln(w, a); err != nil {
			return fmt.Errorf("task: write policy %s: %w", path, err)
		}
	}
	return w.Flush()
}

// Read repopulates Actions from a file written by Write. It requires the
// file to have exactly numStates lines.
func (p *Planner) Read(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("task: read policy %s: %w", path, err)
	}
	defer f.Close()

	var lines []int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		a, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return fmt.Errorf("task: read policy %s: %w", path, err)
		}
		lines = append(lines, a)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("task: read policy %s: %w", path, err)
	}

	if len(lines) != p.numStates {
		return fmt.Errorf("task: read policy %s: got %d lines, want %d: %w", path, len(lines), p.numStates, ErrPolicyFileShape)
	}

	p.Actions = lines
	return nil
}
