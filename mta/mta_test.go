package mta

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewRejectsEmptyRoster(t *testing.T) {
	Convey("Given no task specs", t, func() {
		_, err := New([]int{2}, 1, 1, 0.9, 0.1, 1, 50, false, nil)

		Convey("New reports an error", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUpdateAndSelectSingleTask(t *testing.T) {
	// A single task observing one feature and one action, whose state-0 row
	// is explored by a handful of identical observations, should settle on a
	// deterministic self-loop there and recommend the only available action.
	Convey("Given a single-feature, single-action task", t, func() {
		c, err := New(
			[]int{3},
			1,
			1,
			0.9,
			1e-6,
			1,
			1,
			false,
			[]TaskSpec{{Name: "solo", FeatureMask: []bool{true}, ActionMask: []bool{true}}},
		)
		So(err, ShouldBeNil)

		for i := 0; i < 3; i++ {
			err := c.UpdateWithNewObservation("solo", []int{0}, 0, []int{0}, 1)
			So(err, ShouldBeNil)
		}

		Convey("SelectBestAction replans and returns the only action", func() {
			action, err := c.SelectBestAction("solo", []int{0}, false)
			So(err, ShouldBeNil)
			So(action, ShouldEqual, 0)
		})

		Convey("unknown task names are rejected", func() {
			_, err := c.SelectBestAction("ghost", []int{0}, false)
			So(err, ShouldNotBeNil)

			err = c.UpdateWithNewObservation("ghost", []int{0}, 0, []int{0}, 1)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestUpdateSharedComponentFSA(t *testing.T) {
	// Scenario B: two tasks share feature 1 under FSA. Observing through
	// task 1 should populate the shared component's cell without error, and
	// task 2 (which also uses that component) should see the same table.
	Convey("Given two tasks sharing a feature under FSA", t, func() {
		c, err := New(
			[]int{2, 2},
			1,
			1,
			0.9,
			0.1,
			1,
			50,
			true,
			[]TaskSpec{
				{Name: "t1", FeatureMask: []bool{true, true}, ActionMask: []bool{true}},
				{Name: "t2", FeatureMask: []bool{false, true}, ActionMask: []bool{true}},
			},
		)
		So(err, ShouldBeNil)

		err = c.UpdateWithNewObservation("t1", []int{0, 0}, 0, []int{1, 1}, 1)
		So(err, ShouldBeNil)

		Convey("both tasks are registered and retrievable", func() {
			So(c.Task("t1"), ShouldNotBeNil)
			So(c.Task("t2"), ShouldNotBeNil)
			So(len(c.Tasks()), ShouldEqual, 2)
		})
	})
}
