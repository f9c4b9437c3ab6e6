package task

import (
	"mtafrmax/codec"
)

// SelectBestAction returns the global action this task should take in
// currentState. With speedup enabled, it first probes for any (component,
// action) pair under the exploration threshold and drives toward it
// directly; failing that, it reruns value iteration only every
// SpeedupPeriod steps and otherwise replays the cached policy. Without
// speedup, it always replans.
//
// The speedup probe deliberately indexes the CDTB cell's exploration count
// using the component's own-feature mask rather than the cell's actual
// parent-feature mask, mirroring the original implementation's
// under-exploration probe exactly (see the spec's design notes): it is an
// approximation, not a bug to be fixed, because observable action
// selection depends on reproducing it faithfully.
func (t *Task) SelectBestAction(currentState []int, speedup bool) (int, error) {
	if speedup {
		if action, found, err := t.probeUnderExplored(currentState); err != nil {
			return 0, err
		} else if found {
			return action, nil
		}

		curr, err := codec.Encode(currentState, t.FeatureSize, t.FeatureMask)
		if err != nil {
			return 0, err
		}
		if t.TotalSteps%t.SpeedupPeriod != 0 {
			t.TotalSteps++
			return t.localToGlobalAction(t.Planner.Actions[curr])
		}
	}

	if err := t.ConstructTransitionFunction(); err != nil {
		return 0, err
	}
	t.Planner.DoValueIteration(t.Reward, t.Transition, t.VIPrecision)

	curr, err := codec.Encode(currentState, t.FeatureSize, t.FeatureMask)
	if err != nil {
		return 0, err
	}
	globalAction, err := t.localToGlobalAction(t.Planner.Actions[curr])
	if err != nil {
		return 0, err
	}

	t.TotalSteps++
	return globalAction, nil
}

func (t *Task) probeUnderExplored(currentState []int) (action int, found bool, err error) {
	for _, k := range t.usedComponentsAscending() {
		comp := t.components[k]
		parent, err := codec.Encode(currentState, t.FeatureSize, comp.Features)
		if err != nil {
			return 0, false, err
		}

		for a := 0; a < t.localActionCount; a++ {
			globalA, err := t.localToGlobalAction(a)
			if err != nil {
				return 0, false, err
			}

			cell := &t.table.Cells[k][globalA]
			if cell.ExplorationCount[parent] < t.ExplorationThreshold {
				return globalA, true, nil
			}
		}
	}
	return 0, false, nil
}
