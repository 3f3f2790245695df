// Package filter derives reduced event logs: lifecycle restriction and
// case selection by contained activities. Filters never modify their
// input; they return new logs sharing event values.
package filter

import (
	"github.com/tracelens/tracelens/internal/model"
)

// CompleteOnly keeps only events whose lifecycle transition is
// "complete". Events without a lifecycle transition are dropped. Cases
// that lose all their events are removed from the result.
func CompleteOnly(log *model.Log) *model.Log {
	out := &model.Log{}
	for _, c := range log.Cases {
		var kept []model.Event
		for i := range c.Events {
			if c.Events[i].Lifecycle == model.LifecycleComplete {
				kept = append(kept, c.Events[i])
			}
		}
		if len(kept) == 0 {
			continue
		}
		out.Cases = append(out.Cases, &model.Case{
			ID:         c.ID,
			Events:     kept,
			Attributes: c.Attributes,
		})
	}
	return out
}

// ContainingAny keeps cases that contain at least one of the given
// activities. All events of a kept case survive. No activities given
// keeps every case.
func ContainingAny(log *model.Log, activities ...string) *model.Log {
	if len(activities) == 0 {
		return shallowCopy(log)
	}
	out := &model.Log{}
	for _, c := range log.Cases {
		if containsAny(c, activities) {
			out.Cases = append(out.Cases, c)
		}
	}
	return out
}

// ExcludingAny removes cases that contain any of the given activities.
// Used to drop cases that already reached a terminal state.
func ExcludingAny(log *model.Log, activities ...string) *model.Log {
	if len(activities) == 0 {
		return shallowCopy(log)
	}
	out := &model.Log{}
	for _, c := range log.Cases {
		if !containsAny(c, activities) {
			out.Cases = append(out.Cases, c)
		}
	}
	return out
}

// OpenCases keeps cases that contain the creation activity and have not
// reached any of the excluded states: the pending-application view.
func OpenCases(log *model.Log, create string, excluded ...string) *model.Log {
	return ExcludingAny(ContainingAny(log, create), excluded...)
}

func containsAny(c *model.Case, activities []string) bool {
	for _, a := range activities {
		if c.Contains(a) {
			return true
		}
	}
	return false
}

func shallowCopy(log *model.Log) *model.Log {
	out := &model.Log{Cases: make([]*model.Case, len(log.Cases))}
	copy(out.Cases, log.Cases)
	return out
}
