// Package task implements per-task transition/reward synthesis, value
// iteration, and action selection over the factored state space a task
// observes. Tasks read the contextual dependency table and component
// registry by reference; they never write either.
package task

import (
	"errors"
	"fmt"

	"mtafrmax/cdtb"
	"mtafrmax/codec"
	"mtafrmax/component"
)

// ErrEmptyDistribution is returned when a distribution row that the
// exploration threshold says should be trusted is actually empty. This
// should be unreachable once the threshold is met; it is treated as fatal.
var ErrEmptyDistribution = errors.New("task: distribution row has zero mass despite sufficient exploration")

// Task is one task's view of the shared factored MDP: the features and
// actions it observes, its synthesized transition/reward functions, and its
// value-iteration planner.
type Task struct {
	Name        string
	FeatureMask []bool
	ActionMask  []bool
	FeatureSize []int

	Rmax                 int
	Discount             float64
	VIPrecision          float64
	ExplorationThreshold int
	SpeedupPeriod        int
	FSA                  bool

	StateSize        int // S: local state count, excluding the fictitious state
	localActionCount int

	// Transition[s][a] is a sparse list of (s', prob); Reward[s][a] a
	// scalar; Applicable[s][a] a bit. All three are sized StateSize+1 to
	// include the fictitious state at index StateSize.
	Transition [][][]cdtb.Pair
	Reward     [][]float64
	Applicable [][]bool
	Values     []float64

	Planner *Planner

	TotalSteps int

	// components and used are bound once, after the container derives the
	// component partition; componentOrder is the FSA evaluation order
	// (global component indices, highest in_task popcount first).
	components     []component.Component
	used           []bool
	componentOrder []int

	table *cdtb.Table
}

// New constructs a task with the given feature/action masks, initializing
// its transition/reward/value arrays per the data model: values seeded to
// rmax/0.1, reward seeded to rmax, every action applicable, and a
// fictitious absorbing state appended at index StateSize.
func New(
	name string,
	featureMask []bool,
	actionMask []bool,
	featureSize []int,
	rmax int,
	discount float64,
	viPrecision float64,
	explorationThreshold int,
	speedupPeriod int,
	fsa bool,
) (*Task, error) {
	if codec.PopCount(featureMask) == 0 {
		return nil, fmt.Errorf("task %q: feature mask must have at least one bit set", name)
	}
	if codec.PopCount(actionMask) == 0 {
		return nil, fmt.Errorf("task %q: action mask must have at least one bit set", name)
	}

	stateSize := 1
	for j, relevant := range featureMask {
		if relevant {
			stateSize *= featureSize[j]
		}
	}
	localActions := codec.PopCount(actionMask)

	t := &Task{
		Name:                 name,
		FeatureMask:          featureMask,
		ActionMask:           actionMask,
		FeatureSize:          featureSize,
		Rmax:                 rmax,
		Discount:             discount,
		VIPrecision:          viPrecision,
		ExplorationThreshold: explorationThreshold,
		SpeedupPeriod:        speedupPeriod,
		FSA:                  fsa,
		StateSize:            stateSize,
		localActionCount:     localActions,
	}

	initialValue := float64(rmax) / 0.1

	t.Transition = make([][][]cdtb.Pair, stateSize+1)
	t.Reward = make([][]float64, stateSize+1)
	t.Applicable = make([][]bool, stateSize+1)
	t.Values = make([]float64, stateSize+1)

	for s := 0; s <= stateSize; s++ {
		t.Transition[s] = make([][]cdtb.Pair, localActions)
		t.Reward[s] = make([]float64, localActions)
		t.Applicable[s] = make([]bool, localActions)
		for a := 0; a < localActions; a++ {
			t.Reward[s][a] = float64(rmax)
			t.Applicable[s][a] = true
		}
		t.Values[s] = initialValue
	}

	t.Planner = newPlanner(stateSize+1, localActions, discount, t.Applicable, t.Values)

	return t, nil
}

// LocalActionCount returns the number of actions this task observes.
func (t *Task) LocalActionCount() int {
	return t.localActionCount
}

// Bind attaches the shared component registry, this task's used-component
// mask, and the contextual dependency table, then computes the FSA
// evaluation order. This is called exactly once per task, by the container,
// right after constructing the task; the components and table it receives
// were already derived from the full task roster.
func (t *Task) Bind(components []component.Component, used []bool, table *cdtb.Table) {
	t.components = components
	t.used = used
	t.table = table
	t.componentOrder = computeOrderFSA(components, used)
}

// computeOrderFSA orders this task's used components by the number of
// tasks sharing them, in decreasing order: components shared by more tasks
// resolve first, since lower-order components may condition on their
// current-step value via FSA augmentation. Ties are resolved by increasing
// global component index (component.Derive's registration order).
//
// This assumes every component's InTask mask has the same length (the
// number of registered tasks); that invariant is asserted in cdtb.Build.
func computeOrderFSA(components []component.Component, used []bool) []int {
	maxOrder := 0
	if len(components) > 0 {
		maxOrder = len(components[0].InTask)
	}

	var order []int
	for i := maxOrder; i > 0; i-- {
		for k, c := range components {
			if !used[k] {
				continue
			}
			if codec.PopCount(c.InTask) == i {
				order = append(order, k)
			}
		}
	}
	return order
}

// globalToLocalAction and localToGlobalAction translate between this
// task's dense local action index space and the problem's global actions,
// via the task's action mask, matching the state codec's bit order.
func (t *Task) localToGlobalAction(local int) (int, error) {
	return codec.LocalToGlobal(local, t.ActionMask)
}

func (t *Task) globalToLocalAction(global int) (int, error) {
	return codec.GlobalToLocal(global, t.ActionMask)
}

// usedComponentsAscending returns the global indices of this task's used
// components in ascending order (the dense local component numbering).
func (t *Task) usedComponentsAscending() []int {
	var used []int
	for k, u := range t.used {
		if u {
			used = append(used, k)
		}
	}
	return used
}
