package task

import (
	"mtafrmax/cdtb"
	"mtafrmax/codec"
)

// ConstructTransitionFunction rebuilds transition[s][a] for every real
// state s and every local action a, by enumerating the Cartesian product of
// this task's used components' outcomes in FSA order, then sets up the
// absorbing fictitious state. reward[s][a] is written (as rmax) only for
// pairs routed to the fictitious state; other rewards are left as they are.
//
// Per the spec's own open question about the original flat-counter
// enumeration desynchronizing under FSA (a higher-order component's chosen
// value can change a lower-order component's parent row length mid
// enumeration), this implementation enumerates by recursion over the
// FSA-ordered component list instead, recomputing each level's parent
// index from the state assembled so far.
func (t *Task) ConstructTransitionFunction() error {
	for s := 0; s < t.StateSize; s++ {
		for a := 0; a < t.localActionCount; a++ {
			if err := t.findNextStates(s, a); err != nil {
				return err
			}
		}
	}

	for a := 0; a < t.localActionCount; a++ {
		t.Transition[t.StateSize][a] = []cdtb.Pair{{Child: t.StateSize, Prob: 1.0}}
		t.Reward[t.StateSize][a] = float64(t.Rmax)
	}
	return nil
}

func (t *Task) findNextStates(s, a int) error {
	currentState, err := codec.Decode(s, t.FeatureSize, t.FeatureMask)
	if err != nil {
		return err
	}
	globalA, err := t.localToGlobalAction(a)
	if err != nil {
		return err
	}

	nextState := make([]int, len(t.FeatureSize))
	for i := range nextState {
		nextState[i] = -1
	}

	results, fictitious, err := t.enumerate(globalA, 0, currentState, nextState, 1.0)
	if err != nil {
		return err
	}

	if fictitious {
		t.Transition[s][a] = []cdtb.Pair{{Child: t.StateSize, Prob: 1.0}}
		t.Reward[s][a] = float64(t.Rmax)
		return nil
	}

	t.Transition[s][a] = results
	return nil
}

// enumerate walks this task's FSA-ordered used components starting at
// depth, recursively branching over each component's (possibly
// partially-assembled, under FSA) conditional distribution row. It returns
// the accumulated list of (next-state, probability) pairs, or reports that
// some branch hit an under-explored parent row, in which case the whole
// combination is discarded per the spec's fictitious-state routing.
func (t *Task) enumerate(
	globalA int,
	depth int,
	currentState []int,
	nextState []int,
	prob float64,
) (results []cdtb.Pair, fictitious bool, err error) {
	if depth == len(t.componentOrder) {
		child, err := codec.Encode(nextState, t.FeatureSize, t.FeatureMask)
		if err != nil {
			return nil, false, err
		}
		return []cdtb.Pair{{Child: child, Prob: prob}}, false, nil
	}

	k := t.componentOrder[depth]
	cell := &t.table.Cells[k][globalA]

	var parent int
	if t.FSA {
		parent, err = codec.EncodeParentFSA(currentState, nextState, t.FeatureSize, cell.ParentFeatures)
	} else {
		parent, err = codec.Encode(currentState, t.FeatureSize, cell.ParentFeatures)
	}
	if err != nil {
		return nil, false, err
	}

	if cell.ExplorationCount[parent] < t.ExplorationThreshold {
		return nil, true, nil
	}

	row := cell.Distribution[parent]
	if len(row) == 0 {
		return nil, false, ErrEmptyDistribution
	}

	comp := t.components[k]
	for _, pair := range row {
		childVec, err := codec.Decode(pair.Child, t.FeatureSize, comp.Features)
		if err != nil {
			return nil, false, err
		}

		branchNext := make([]int, len(nextState))
		copy(branchNext, nextState)
		for j, set := range comp.Features {
			if set {
				branchNext[j] = childVec[j]
			}
		}

		sub, fict, err := t.enumerate(globalA, depth+1, currentState, branchNext, prob*pair.Prob)
		if err != nil {
			return nil, false, err
		}
		if fict {
			return nil, true, nil
		}
		results = append(results, sub...)
	}

	return results, false, nil
}
