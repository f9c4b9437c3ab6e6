// Package mta owns the shared factored-MDP structure — the component
// registry and the contextual dependency table — and the roster of tasks
// built on top of it. It is the single entry point through which an
// environment feeds observations into the core and asks a task for its
// next action.
package mta

import (
	"fmt"

	"mtafrmax/cdtb"
	"mtafrmax/codec"
	"mtafrmax/component"
	"mtafrmax/task"
)

// TaskSpec describes one task to register: its name and the feature/action
// subsets it observes, expressed over the container's shared vocabulary.
type TaskSpec struct {
	Name        string
	FeatureMask []bool
	ActionMask  []bool
}

// Container derives the component partition and contextual dependency table
// from a fixed feature vocabulary and task roster, then hands each task a
// read-only reference to both. It owns every component, cell, and task for
// its lifetime.
type Container struct {
	featureSize []int
	totalActions int

	components []component.Component
	table      *cdtb.Table

	tasks    []*task.Task
	byName   map[string]*task.Task
	usedByTask map[string][]bool
}

// New derives components and the CDTB for the given feature vocabulary and
// task roster, constructs and binds every task, and returns the container.
// Components and CDTB structure are fixed for the container's lifetime;
// only distribution rows, exploration counts, and per-task transition/value
// state mutate afterward.
func New(
	featureSize []int,
	totalActions int,
	rmax int,
	discount float64,
	viPrecision float64,
	explorationThreshold int,
	speedupPeriod int,
	fsa bool,
	specs []TaskSpec,
) (*Container, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("mta: at least one task must be registered")
	}

	taskFeatureMasks := make([][]bool, len(specs))
	taskActionMasks := make([][]bool, len(specs))
	for i, spec := range specs {
		taskFeatureMasks[i] = spec.FeatureMask
		taskActionMasks[i] = spec.ActionMask
	}

	components := component.Derive(len(featureSize), taskFeatureMasks)

	table, err := cdtb.Build(components, taskFeatureMasks, taskActionMasks, featureSize, totalActions, fsa)
	if err != nil {
		return nil, fmt.Errorf("mta: build cdtb: %w", err)
	}

	c := &Container{
		featureSize:  featureSize,
		totalActions: totalActions,
		components:   components,
		table:        table,
		byName:       make(map[string]*task.Task, len(specs)),
		usedByTask:   make(map[string][]bool, len(specs)),
	}

	for _, spec := range specs {
		t, err := task.New(
			spec.Name,
			spec.FeatureMask,
			spec.ActionMask,
			featureSize,
			rmax,
			discount,
			viPrecision,
			explorationThreshold,
			speedupPeriod,
			fsa,
		)
		if err != nil {
			return nil, fmt.Errorf("mta: construct task %q: %w", spec.Name, err)
		}

		used := component.UsedBy(components, spec.FeatureMask)
		t.Bind(components, used, table)

		c.tasks = append(c.tasks, t)
		c.byName[spec.Name] = t
		c.usedByTask[spec.Name] = used
	}

	return c, nil
}

// Task returns the registered task by name, or nil if no such task exists.
func (c *Container) Task(name string) *task.Task {
	return c.byName[name]
}

// Tasks returns every registered task, in registration order.
func (c *Container) Tasks() []*task.Task {
	return c.tasks
}

// UpdateWithNewObservation applies one observed transition to every
// component the named task uses: for each, it translates the global action
// into the component's parent/child indices and folds the observation into
// that component's empirical distribution. This must not be called
// concurrently with transition rebuilding or planning for any task that
// shares a component with taskName (see the concurrency model); the demo
// driver enforces this by serializing the core calls of every task onto
// one goroutine.
func (c *Container) UpdateWithNewObservation(
	taskName string,
	lastState []int,
	action int,
	currentState []int,
	reward int,
) error {
	t := c.byName[taskName]
	if t == nil {
		return fmt.Errorf("mta: unknown task %q", taskName)
	}

	used := c.usedByTask[taskName]
	fsa := c.table.FSA

	for k, isUsed := range used {
		if !isUsed {
			continue
		}
		comp := c.components[k]
		cell := &c.table.Cells[k][action]
		if cell.ParentSize == 0 {
			// This action does not affect this component for any task that
			// uses it; nothing to learn.
			continue
		}

		var parent int
		var err error
		if fsa {
			parent, err = codec.EncodeParentFSA(lastState, currentState, c.featureSize, cell.ParentFeatures)
		} else {
			parent, err = codec.Encode(lastState, c.featureSize, cell.ParentFeatures)
		}
		if err != nil {
			return fmt.Errorf("mta: encode parent for component %d: %w", k, err)
		}

		child, err := codec.Encode(currentState, c.featureSize, comp.Features)
		if err != nil {
			return fmt.Errorf("mta: encode child for component %d: %w", k, err)
		}

		cell.Update(parent, child)
	}

	return nil
}

// SelectBestAction delegates to the named task's controller.
func (c *Container) SelectBestAction(taskName string, currentState []int, speedup bool) (int, error) {
	t := c.byName[taskName]
	if t == nil {
		return 0, fmt.Errorf("mta: unknown task %q", taskName)
	}
	return t.SelectBestAction(currentState, speedup)
}
