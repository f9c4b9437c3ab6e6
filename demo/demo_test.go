package demo

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"mtafrmax/mta"
)

func TestEnvironmentStepWrapsAndRewardsHome(t *testing.T) {
	Convey("Given a single-feature environment parked one step from home", t, func() {
		env := &Environment{featureSize: []int{3}, state: []int{1}}
		mask := []bool{true}

		Convey("an odd (incrementing) action reaching 0 via wraparound pays reward 1", func() {
			next, reward := env.Step(mask, mask, 1)
			So(next[0], ShouldEqual, 2)
			So(reward, ShouldEqual, 0)

			next, reward = env.Step(mask, mask, 1)
			So(next[0], ShouldEqual, 0)
			So(reward, ShouldEqual, 1)
		})

		Convey("an even (decrementing) action reaches 0 directly", func() {
			next, reward := env.Step(mask, mask, 0)
			So(next[0], ShouldEqual, 0)
			So(reward, ShouldEqual, 1)
		})
	})
}

func TestProjectRelevantMasksIrrelevantFeatures(t *testing.T) {
	Convey("Given a full state vector and a partial mask", t, func() {
		state := []int{3, 5, 7}
		mask := []bool{true, false, true}

		projected := projectRelevant(state, mask)

		Convey("masked positions become -1, relevant ones pass through", func() {
			So(projected, ShouldResemble, []int{3, -1, 7})
		})
	})
}

func TestDriverRunProducesUpdates(t *testing.T) {
	Convey("Given a single-task container and driver", t, func() {
		specs := []mta.TaskSpec{
			{Name: "solo", FeatureMask: []bool{true}, ActionMask: []bool{true, true}},
		}
		container, err := mta.New([]int{3}, 2, 1, 0.9, 0.1, 1, 1, false, specs)
		So(err, ShouldBeNil)

		driver := NewDriver(container, []int{3}, specs, false)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- driver.Run(ctx, time.Millisecond) }()

		received := 0
	drain:
		for {
			select {
			case _, ok := <-driver.Updates():
				if !ok {
					break drain
				}
				received++
			case <-time.After(200 * time.Millisecond):
				break drain
			}
		}

		Convey("the driver exits cleanly and published at least one update", func() {
			So(<-done, ShouldBeNil)
			So(received, ShouldBeGreaterThan, 0)
		})
	})
}
