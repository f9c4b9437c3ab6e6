// Package cdtb implements the contextual dependency table: for every
// (component, action) pair it stores the parent-feature set the component's
// next value is conditioned on, and a sparse empirical distribution over
// component outcomes per parent assignment.
package cdtb

import (
	"fmt"

	"mtafrmax/codec"
	"mtafrmax/component"
)

// Pair is a single (child component value, probability) entry in a
// distribution row.
type Pair struct {
	Child int
	Prob  float64
}

// Cell is one (component, action) entry of the table.
type Cell struct {
	// ParentFeatures has length F (non-FSA) or 2F (FSA: [previous-step || current-step]).
	ParentFeatures []bool
	ParentSize     int
	// ExplorationCount[p] is the number of observations seen at parent row p.
	ExplorationCount []int
	// Distribution[p] is the sparse conditional distribution over component
	// values given parent row p; empty until the first observation.
	Distribution [][]Pair
	// ComponentIndex back-references the owning component, by index, not
	// by pointer: this avoids an ownership cycle with the component
	// registry, which is owned by the container.
	ComponentIndex int
}

// Table is the contextual dependency table: Cells[k][a] for component k and
// action a, where column index `totalActions` is the reserved no-op column.
type Table struct {
	Cells        [][]Cell
	FSA          bool
	totalActions int
}

// NoOpColumn returns the column index reserved for the no-op action.
func (t *Table) NoOpColumn() int {
	return t.totalActions
}

// Build constructs the contextual dependency table for the given components
// and task feature/action masks, following the derivation in the data
// model: a cell's previous-step parents are the features common to every
// task that both uses the component and has the action; under FSA, a parent
// also gains a current-step dependency on any feature owned by a strictly
// higher-order component (one used by a strict superset of tasks).
//
// Build asserts that every component's InTask mask has the same length as
// the number of tasks; that invariant is guaranteed by component.Derive and
// is checked here as a construction-time programming invariant.
func Build(
	components []component.Component,
	taskFeatureMasks [][]bool,
	taskActionMasks [][]bool,
	featureSize []int,
	totalActions int,
	fsa bool,
) (*Table, error) {
	numTasks := len(taskFeatureMasks)
	for k, c := range components {
		if len(c.InTask) != numTasks {
			panic(fmt.Sprintf("cdtb: component %d has in_task length %d, want %d (number of tasks)", k, len(c.InTask), numTasks))
		}
	}

	featureOwner := make([]int, len(featureSize))
	for j := range featureSize {
		featureOwner[j] = -1
		for k, c := range components {
			if c.Features[j] {
				featureOwner[j] = k
				break
			}
		}
	}

	t := &Table{
		FSA:          fsa,
		totalActions: totalActions,
		Cells:        make([][]Cell, len(components)),
	}

	for k, comp := range components {
		row := make([]Cell, totalActions+1)

		for a := 0; a < totalActions; a++ {
			intersection := make([]bool, numTasks)
			any := false
			for i := 0; i < numTasks; i++ {
				if taskActionMasks[i][a] && comp.InTask[i] {
					intersection[i] = true
					any = true
				}
			}

			parentWidth := len(featureSize)
			if fsa {
				parentWidth *= 2
			}
			parentFeatures := make([]bool, parentWidth)

			if !any {
				// Assumption 2: action a does not affect component k for any
				// task; leave the cell empty. The fictitious-state routing
				// in the task builder handles this structurally.
				row[a] = Cell{ParentFeatures: parentFeatures, ComponentIndex: k}
				continue
			}

			parentValues := 1
			for j := range featureSize {
				used := true
				for i := 0; i < numTasks; i++ {
					if !intersection[i] {
						continue
					}
					if !taskFeatureMasks[i][j] {
						used = false
					}
				}
				if !used {
					continue
				}

				parentFeatures[j] = true
				parentValues *= featureSize[j]

				if fsa {
					owner := featureOwner[j]
					if owner >= 0 && codec.IsStrictSubsetOf(comp.InTask, components[owner].InTask) {
						parentFeatures[j+len(featureSize)] = true
						parentValues *= featureSize[j]
					}
				}
			}

			row[a] = newCell(parentFeatures, parentValues, k)
		}

		// The no-op column: previous-step parents are exactly the
		// component's own features, no current-step bits.
		noOpWidth := len(featureSize)
		if fsa {
			noOpWidth *= 2
		}
		noOpParents := make([]bool, noOpWidth)
		copy(noOpParents, comp.Features)
		noOpValues := 1
		for j := range featureSize {
			if noOpParents[j] {
				noOpValues *= featureSize[j]
			}
		}
		row[totalActions] = newCell(noOpParents, noOpValues, k)

		t.Cells[k] = row
	}

	return t, nil
}

func newCell(parentFeatures []bool, parentSize, componentIndex int) Cell {
	return Cell{
		ParentFeatures:   parentFeatures,
		ParentSize:       parentSize,
		ExplorationCount: make([]int, parentSize),
		Distribution:     make([][]Pair, parentSize),
		ComponentIndex:   componentIndex,
	}
}

// Update applies one observed (parent, child) pair to the cell's empirical
// distribution, following the incremental update law: existing mass is
// rescaled by n/(n+1), the matched child gets an extra 1/(n+1), or a new
// entry is appended at 1/(n+1) if child hadn't been observed at this parent
// row before. The exploration count for the row is then incremented.
func (c *Cell) Update(parent, child int) {
	n := c.ExplorationCount[parent]
	row := c.Distribution[parent]

	found := false
	for i := range row {
		if row[i].Child == child {
			row[i].Prob = (row[i].Prob*float64(n) + 1) / float64(n+1)
			found = true
		} else {
			row[i].Prob = row[i].Prob * float64(n) / float64(n+1)
		}
	}

	c.ExplorationCount[parent]++
	if !found {
		row = append(row, Pair{Child: child, Prob: 1.0 / float64(c.ExplorationCount[parent])})
	}
	c.Distribution[parent] = row
}
