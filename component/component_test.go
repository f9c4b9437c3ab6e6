package component

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDeriveTwoIndependentFeatures(t *testing.T) {
	// Scenario A from the spec: two independent features, two tasks.
	Convey("Given two tasks each observing a disjoint feature", t, func() {
		task1 := []bool{true, false}
		task2 := []bool{false, true}

		components := Derive(2, [][]bool{task1, task2})

		Convey("there are exactly two components, one per feature", func() {
			So(len(components), ShouldEqual, 2)
		})

		Convey("the components partition the union of task features", func() {
			union := make([]bool, 2)
			for _, c := range components {
				for j, set := range c.Features {
					So(set && union[j], ShouldBeFalse) // disjointness
					if set {
						union[j] = true
					}
				}
			}
			So(union, ShouldResemble, []bool{true, true})
		})

		Convey("each task uses exactly its own component", func() {
			used1 := UsedBy(components, task1)
			used2 := UsedBy(components, task2)
			So(countTrue(used1), ShouldEqual, 1)
			So(countTrue(used2), ShouldEqual, 1)
		})
	})
}

func TestDeriveSharedFeature(t *testing.T) {
	// Scenario B from the spec: a shared feature yields a higher-order component.
	Convey("Given a feature shared by both tasks and one private feature", t, func() {
		task1 := []bool{true, true}
		task2 := []bool{false, true}

		components := Derive(2, [][]bool{task1, task2})

		Convey("there are two components: {f0} in_task=[1,0], {f1} in_task=[1,1]", func() {
			So(len(components), ShouldEqual, 2)

			var privateComp, sharedComp *Component
			for i := range components {
				if components[i].Features[0] {
					privateComp = &components[i]
				}
				if components[i].Features[1] {
					sharedComp = &components[i]
				}
			}
			So(privateComp, ShouldNotBeNil)
			So(sharedComp, ShouldNotBeNil)
			So(privateComp.InTask, ShouldResemble, []bool{true, false})
			So(sharedComp.InTask, ShouldResemble, []bool{true, true})
		})
	})
}

func TestComponentUniqueness(t *testing.T) {
	Convey("Distinct components have distinct in_task masks", t, func() {
		task1 := []bool{true, true, false}
		task2 := []bool{false, true, true}
		task3 := []bool{true, false, true}

		components := Derive(3, [][]bool{task1, task2, task3})
		seen := map[string]bool{}
		for _, c := range components {
			key := boolKey(c.InTask)
			So(seen[key], ShouldBeFalse)
			seen[key] = true
		}
	})
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func boolKey(bs []bool) string {
	key := make([]byte, len(bs))
	for i, b := range bs {
		if b {
			key[i] = '1'
		} else {
			key[i] = '0'
		}
	}
	return string(key)
}
