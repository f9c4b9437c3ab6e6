// Package component derives the component partition described in the data
// model: features are grouped into components by the exact subset of tasks
// that observe them, so that conditional transition distributions can be
// learned once per component and shared across every task that uses it.
package component

// Component is a maximal set of features shared by exactly the same subset
// of tasks. InTask uniquely identifies the component: two components never
// share an InTask mask.
type Component struct {
	// InTask[i] is set iff task i observes every feature in this component
	// (equivalently: task i is one of the tasks this component was derived
	// for; see Derive).
	InTask []bool
	// Features[j] is set iff feature j belongs to this component.
	Features []bool
}

// Derive computes the component partition for a feature vocabulary of the
// given size, given each task's feature mask in task-registration order.
//
// For each feature j, in_task(j) is the set of tasks whose feature mask has
// bit j set. Features sharing an identical in_task set form one component.
// The resulting components' feature sets partition the union of all tasks'
// feature masks, and distinct components have distinct InTask masks.
func Derive(numFeatures int, taskFeatureMasks [][]bool) []Component {
	var components []Component

	for j := 0; j < numFeatures; j++ {
		inTask := make([]bool, len(taskFeatureMasks))
		for i, mask := range taskFeatureMasks {
			if mask[j] {
				inTask[i] = true
			}
		}

		found := false
		for k := range components {
			if boolSliceEqual(components[k].InTask, inTask) {
				components[k].Features[j] = true
				found = true
				break
			}
		}

		if !found {
			features := make([]bool, numFeatures)
			features[j] = true
			components = append(components, Component{
				InTask:   inTask,
				Features: features,
			})
		}
	}

	return components
}

// UsedBy reports, for each component, whether every one of its features lies
// within taskFeatureMask — i.e. whether the owning task actually uses it.
// A task's feature mask always equals the disjoint union of its used
// components' feature sets.
func UsedBy(components []Component, taskFeatureMask []bool) []bool {
	used := make([]bool, len(components))
	for k, c := range components {
		relevant := true
		for j, set := range c.Features {
			if set && !taskFeatureMask[j] {
				relevant = false
				break
			}
		}
		used[k] = relevant
	}
	return used
}

func boolSliceEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
