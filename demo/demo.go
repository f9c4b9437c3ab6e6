// Package demo provides a synthetic multi-task factored-MDP environment and
// a driver that exercises a mta.Container end to end: tasks propose steps
// concurrently, but every call into the core is applied by a single
// serialized consumer, following the teacher's generator/estimator split
// (tabular/reinforcement/learning.go's agent_worker + channerics.Merge +
// estimator) generalized from "one processor for all agents" to "one
// processor for the whole shared core" — necessary here because components,
// and therefore CDTB cells, may be shared across tasks.
package demo

import (
	"context"
	"math/rand"
	"time"

	channerics "github.com/niceyeti/channerics/channels"

	"mtafrmax/mta"
)

// Environment is a small shared factored-MDP world: each feature independently
// cycles through its domain as tasks act on it, and reward is paid out
// whenever a task's step drives every feature it observes to value 0 (the
// "home" configuration), giving every task a nontrivial, learnable target.
type Environment struct {
	featureSize []int
	state       []int
}

// NewEnvironment seeds every feature at a random value in its domain.
func NewEnvironment(featureSize []int) *Environment {
	state := make([]int, len(featureSize))
	for j, size := range featureSize {
		state[j] = rand.Intn(size)
	}
	return &Environment{featureSize: featureSize, state: state}
}

// State returns the environment's current full feature vector.
func (e *Environment) State() []int {
	out := make([]int, len(e.state))
	copy(out, e.state)
	return out
}

// Step applies action to every feature the task observes: even actions
// decrement (wrapping), odd actions increment (wrapping). Reward is 1 if
// every feature the task observes is left at 0, else 0.
func (e *Environment) Step(actionMask []bool, featureMask []bool, action int) (nextState []int, reward int) {
	delta := 1
	if action%2 == 0 {
		delta = -1
	}

	for j, relevant := range featureMask {
		if !relevant {
			continue
		}
		size := e.featureSize[j]
		e.state[j] = ((e.state[j]+delta)%size + size) % size
	}

	reward = 1
	for j, relevant := range featureMask {
		if relevant && e.state[j] != 0 {
			reward = 0
		}
	}

	return e.State(), reward
}

// CellUpdate is one task's published snapshot, consumed by the optional
// dashboard: the dashboard never feeds back into the core.
type CellUpdate struct {
	Task           string
	State          int
	Value          float64
	PolicyAction   int
	UnderExplored  bool
}

// request is one task's turn to act, emitted by its ticker and merged with
// every other task's requests onto the single serializing consumer.
type request struct {
	task mta.TaskSpec
}

// Driver runs the demo loop: per-task tickers propose turns, a single
// goroutine drains the merged request stream and is the only caller of
// SelectBestAction / UpdateWithNewObservation, honoring the core's
// no-internal-concurrency contract regardless of how many tasks are
// registered.
type Driver struct {
	container *mta.Container
	env       *Environment
	specs     []mta.TaskSpec
	speedup   bool

	last    map[string][]int
	updates chan CellUpdate
}

// NewDriver constructs a driver over an already-built container and a fresh
// environment sized to the container's feature vocabulary.
func NewDriver(container *mta.Container, featureSize []int, specs []mta.TaskSpec, speedup bool) *Driver {
	last := make(map[string][]int, len(specs))
	env := NewEnvironment(featureSize)
	for _, spec := range specs {
		last[spec.Name] = projectRelevant(env.State(), spec.FeatureMask)
	}

	return &Driver{
		container: container,
		env:       env,
		specs:     specs,
		speedup:   speedup,
		last:      last,
		updates:   make(chan CellUpdate, 64),
	}
}

// Updates returns the channel the optional dashboard subscribes to.
func (d *Driver) Updates() <-chan CellUpdate {
	return d.updates
}

// Run drives every task until ctx is canceled, fanning in per-task tick
// channels and applying each resulting step through the container
// sequentially on the calling goroutine.
func (d *Driver) Run(ctx context.Context, tickPeriod time.Duration) error {
	defer close(d.updates)

	var requestChans []<-chan request
	for _, spec := range d.specs {
		requestChans = append(requestChans, d.ticker(ctx, spec, tickPeriod))
	}
	merged := channerics.Merge(ctx.Done(), requestChans...)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req, ok := <-merged:
			if !ok {
				return nil
			}
			if err := d.step(req.task); err != nil {
				return err
			}
		}
	}
}

// ticker emits a request for spec once per tickPeriod, giving every task an
// independent concurrent source feeding the single serialized consumer.
func (d *Driver) ticker(ctx context.Context, spec mta.TaskSpec, tickPeriod time.Duration) <-chan request {
	out := make(chan request)
	go func() {
		defer close(out)
		for range channerics.NewTicker(ctx.Done(), tickPeriod) {
			select {
			case <-ctx.Done():
				return
			case out <- request{task: spec}:
			}
		}
	}()
	return out
}

func (d *Driver) step(spec mta.TaskSpec) error {
	lastState := d.last[spec.Name]

	action, err := d.container.SelectBestAction(spec.Name, lastState, d.speedup)
	if err != nil {
		return err
	}

	fullNext, reward := d.env.Step(spec.ActionMask, spec.FeatureMask, action)
	currentState := projectRelevant(fullNext, spec.FeatureMask)

	if err := d.container.UpdateWithNewObservation(spec.Name, lastState, action, currentState, reward); err != nil {
		return err
	}

	d.last[spec.Name] = currentState

	t := d.container.Task(spec.Name)
	snapshot := CellUpdate{
		Task:         spec.Name,
		PolicyAction: action,
	}
	if t != nil {
		snapshot.Value = t.Values[0]
	}

	select {
	case d.updates <- snapshot:
	default:
		// Drop the update if the dashboard isn't keeping up; it is purely
		// observational and never blocks the core loop.
	}

	return nil
}

// projectRelevant sets non-relevant positions to -1, matching the codec's
// expectation that a task's state vector carries -1 where it has no
// observation.
func projectRelevant(state []int, mask []bool) []int {
	out := make([]int, len(state))
	for j, relevant := range mask {
		if relevant {
			out[j] = state[j]
		} else {
			out[j] = -1
		}
	}
	return out
}
