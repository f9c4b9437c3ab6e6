package task

import (
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"mtafrmax/cdtb"
)

func TestDoValueIterationDeterministicChain(t *testing.T) {
	// Scenario E: a deterministic 3-state chain, one action, state 0 is a
	// self-looping reward-1 absorbing state, state 1 always advances to
	// state 0, state 2 always advances to state 1. Every other reward is 0.
	// The closed-form fixed point is V0=10, V1=9, V2=8.1 at discount 0.9.
	Convey("Given a deterministic 3-state reward chain", t, func() {
		applicable := [][]bool{{true}, {true}, {true}}
		values := []float64{0, 0, 0}
		p := newPlanner(3, 1, 0.9, applicable, values)

		reward := [][]float64{{1}, {0}, {0}}
		transition := [][][]cdtb.Pair{
			{{{Child: 0, Prob: 1.0}}},
			{{{Child: 0, Prob: 1.0}}},
			{{{Child: 1, Prob: 1.0}}},
		}

		p.DoValueIteration(reward, transition, 1e-9)

		Convey("values converge to the closed-form fixed point", func() {
			So(p.Values[0], ShouldAlmostEqual, 10.0, 1e-6)
			So(p.Values[1], ShouldAlmostEqual, 9.0, 1e-6)
			So(p.Values[2], ShouldAlmostEqual, 8.1, 1e-6)
		})

		Convey("every state selects its only applicable action", func() {
			So(p.Actions[0], ShouldEqual, 0)
			So(p.Actions[1], ShouldEqual, 0)
			So(p.Actions[2], ShouldEqual, 0)
		})
	})
}

func TestDoValueIterationSkipsInapplicableStates(t *testing.T) {
	Convey("Given a state with no applicable action", t, func() {
		applicable := [][]bool{{true}, {false}}
		values := []float64{0, 3.5}
		p := newPlanner(2, 1, 0.9, applicable, values)

		reward := [][]float64{{1}, {0}}
		transition := [][][]cdtb.Pair{
			{{{Child: 0, Prob: 1.0}}},
			{{{Child: 0, Prob: 1.0}}},
		}

		p.DoValueIteration(reward, transition, 1e-9)

		Convey("its value is left untouched and no action is recorded", func() {
			So(p.Values[1], ShouldEqual, 3.5)
			So(p.Actions[1], ShouldEqual, -1)
		})
	})
}

func TestPolicyWriteReadRoundTrip(t *testing.T) {
	Convey("Given a planner with a recorded policy", t, func() {
		applicable := [][]bool{{true}, {true}, {true}}
		values := []float64{0, 0, 0}
		p := newPlanner(3, 1, 0.9, applicable, values)
		p.Actions = []int{0, 0, 0}

		path := t.TempDir() + "/policy.txt"
		So(p.Write(path), ShouldBeNil)

		Convey("reading it back reproduces the same actions", func() {
			q := newPlanner(3, 1, 0.9, applicable, values)
			So(q.Read(path), ShouldBeNil)
			So(q.Actions, ShouldResemble, []int{0, 0, 0})
		})
	})

	Convey("Given a policy file with the wrong number of lines", t, func() {
		path := t.TempDir() + "/short.txt"
		So(os.WriteFile(path, []byte("0\n1\n"), 0o644), ShouldBeNil)

		applicable := [][]bool{{true}, {true}, {true}}
		values := []float64{0, 0, 0}
		p := newPlanner(3, 1, 0.9, applicable, values)

		Convey("Read reports the shape mismatch", func() {
			err := p.Read(path)
			So(err, ShouldNotBeNil)
		})
	})
}
