package stats

import (
	"sort"
	"strings"

	"github.com/tracelens/tracelens/internal/model"
)

// PrefixCategory classifies activity labels by their naming prefix, the
// convention of the BPI Challenge loan application logs: A_ application
// states, O_ offer states, W_ workflow items.
type PrefixCategory string

const (
	PrefixApplication PrefixCategory = "A_"
	PrefixOffer       PrefixCategory = "O_"
	PrefixWorkflow    PrefixCategory = "W_"
	PrefixOther       PrefixCategory = "other"
)

// PrefixCategories lists the categories in reporting order.
var PrefixCategories = []PrefixCategory{PrefixWorkflow, PrefixApplication, PrefixOffer, PrefixOther}

// PrefixOf returns the category of an activity label.
func PrefixOf(activity string) PrefixCategory {
	switch {
	case strings.HasPrefix(activity, "W_"):
		return PrefixWorkflow
	case strings.HasPrefix(activity, "A_"):
		return PrefixApplication
	case strings.HasPrefix(activity, "O_"):
		return PrefixOffer
	default:
		return PrefixOther
	}
}

// PrefixCounts returns event counts per prefix category, in reporting order.
func PrefixCounts(log *model.Log) []LabeledCount {
	counts := make(map[PrefixCategory]int)
	for _, c := range log.Cases {
		for i := range c.Events {
			counts[PrefixOf(c.Events[i].Activity)]++
		}
	}
	out := make([]LabeledCount, 0, len(PrefixCategories))
	for _, cat := range PrefixCategories {
		out = append(out, LabeledCount{Label: string(cat), Count: counts[cat]})
	}
	return out
}

// LifecycleReport describes how lifecycle transitions are used across
// the log, broken down by activity prefix category.
type LifecycleReport struct {
	TotalEvents   int
	WithLifecycle int

	// ByPrefix counts lifecycle-carrying events per prefix category,
	// in reporting order.
	ByPrefix []LabeledCount

	// Transitions counts events per lifecycle transition value,
	// descending by count.
	Transitions []LabeledCount

	// ActivitiesWith and ActivitiesWithout list distinct activities per
	// category that do or do not carry lifecycle transitions, sorted.
	ActivitiesWith    map[PrefixCategory][]string
	ActivitiesWithout map[PrefixCategory][]string
}

// AnalyzeLifecycle computes the lifecycle usage report.
func AnalyzeLifecycle(log *model.Log) *LifecycleReport {
	r := &LifecycleReport{
		ActivitiesWith:    make(map[PrefixCategory][]string),
		ActivitiesWithout: make(map[PrefixCategory][]string),
	}

	byPrefix := make(map[PrefixCategory]int)
	transitions := make(map[string]int)
	var transitionOrder []string
	withLifecycle := make(map[string]struct{})
	all := make(map[string]struct{})

	for _, c := range log.Cases {
		for i := range c.Events {
			e := &c.Events[i]
			r.TotalEvents++
			all[e.Activity] = struct{}{}
			if e.Lifecycle == "" {
				continue
			}
			r.WithLifecycle++
			byPrefix[PrefixOf(e.Activity)]++
			withLifecycle[e.Activity] = struct{}{}
			if _, seen := transitions[e.Lifecycle]; !seen {
				transitionOrder = append(transitionOrder, e.Lifecycle)
			}
			transitions[e.Lifecycle]++
		}
	}

	for _, cat := range PrefixCategories {
		r.ByPrefix = append(r.ByPrefix, LabeledCount{Label: string(cat), Count: byPrefix[cat]})
	}
	r.Transitions = rankedCounts(transitionOrder, transitions)

	for activity := range all {
		cat := PrefixOf(activity)
		if _, ok := withLifecycle[activity]; ok {
			r.ActivitiesWith[cat] = append(r.ActivitiesWith[cat], activity)
		} else {
			r.ActivitiesWithout[cat] = append(r.ActivitiesWithout[cat], activity)
		}
	}
	for _, m := range []map[PrefixCategory][]string{r.ActivitiesWith, r.ActivitiesWithout} {
		for cat := range m {
			sort.Strings(m[cat])
		}
	}

	return r
}

// CombinedLabel joins an activity label with its lifecycle transition.
// Events without a transition keep the plain activity label.
func CombinedLabel(activity, lifecycle string) string {
	if lifecycle == "" {
		return activity
	}
	return activity + " - " + lifecycle
}

// CombineLifecycle derives a log whose activity labels are replaced by
// their combined activity+lifecycle form. The input log is not modified;
// case order, event order, timestamps and attributes are preserved.
func CombineLifecycle(log *model.Log) *model.Log {
	out := &model.Log{Cases: make([]*model.Case, 0, len(log.Cases))}
	for _, c := range log.Cases {
		nc := &model.Case{
			ID:         c.ID,
			Events:     make([]model.Event, len(c.Events)),
			Attributes: c.Attributes,
		}
		copy(nc.Events, c.Events)
		for i := range nc.Events {
			nc.Events[i].Activity = CombinedLabel(nc.Events[i].Activity, nc.Events[i].Lifecycle)
			nc.Events[i].Lifecycle = ""
		}
		out.Cases = append(out.Cases, nc)
	}
	return out
}
