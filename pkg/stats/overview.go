// Package stats computes descriptive statistics over event logs: overview
// counts, case length and duration distributions, arrival behaviour,
// lifecycle usage and attribute structure.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/pkg/variants"
)

// Distribution summarizes a sample of values.
type Distribution struct {
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev float64
}

// Summarize computes a Distribution. Empty input yields the zero value.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		d := v - mean
		sq += d * d
	}

	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return Distribution{
		Mean:   mean,
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		StdDev: math.Sqrt(sq / float64(len(sorted))),
	}
}

// LabeledCount pairs a label with an occurrence count.
type LabeledCount struct {
	Label string
	Count int
}

// Overview is the top-level description of an event log.
type Overview struct {
	Cases      int
	Events     int
	Variants   int
	Activities int
	Resources  int

	// CaseLength is the distribution of events per case.
	CaseLength Distribution

	// CaseDurationSeconds is the distribution of first-to-last event
	// spans per case, in seconds. Empty cases are excluded.
	CaseDurationSeconds Distribution

	// MeanArrivalInterval is the average time between consecutive case
	// starts. Zero if fewer than two non-empty cases exist.
	MeanArrivalInterval time.Duration

	// LogStart and LogEnd bound the observed timestamps.
	LogStart time.Time
	LogEnd   time.Time

	// ActivityCounts lists events per activity, descending by count,
	// ties by first appearance.
	ActivityCounts []LabeledCount

	// ResourceCounts lists events per resource, descending by count,
	// ties by first appearance.
	ResourceCounts []LabeledCount
}

// Overview computes the log overview in a single pass over the cases.
func ComputeOverview(log *model.Log) *Overview {
	ov := &Overview{
		Cases:  len(log.Cases),
		Events: log.EventCount(),
	}

	ov.Variants = len(variants.Extract(log.Cases).Stats)

	lengths := make([]float64, 0, len(log.Cases))
	var durations []float64
	var starts []time.Time

	activityCounts := make(map[string]int)
	resourceCounts := make(map[string]int)
	var activityOrder, resourceOrder []string

	for _, c := range log.Cases {
		lengths = append(lengths, float64(len(c.Events)))
		if len(c.Events) > 0 {
			durations = append(durations, c.Duration().Seconds())
			starts = append(starts, c.Start())

			if ov.LogStart.IsZero() || c.Start().Before(ov.LogStart) {
				ov.LogStart = c.Start()
			}
			if c.End().After(ov.LogEnd) {
				ov.LogEnd = c.End()
			}
		}
		for i := range c.Events {
			e := &c.Events[i]
			if _, seen := activityCounts[e.Activity]; !seen {
				activityOrder = append(activityOrder, e.Activity)
			}
			activityCounts[e.Activity]++
			if e.Resource != "" {
				if _, seen := resourceCounts[e.Resource]; !seen {
					resourceOrder = append(resourceOrder, e.Resource)
				}
				resourceCounts[e.Resource]++
			}
		}
	}

	ov.Activities = len(activityOrder)
	ov.Resources = len(resourceOrder)
	ov.CaseLength = Summarize(lengths)
	ov.CaseDurationSeconds = Summarize(durations)
	ov.MeanArrivalInterval = meanArrivalInterval(starts)
	ov.ActivityCounts = rankedCounts(activityOrder, activityCounts)
	ov.ResourceCounts = rankedCounts(resourceOrder, resourceCounts)

	return ov
}

// rankedCounts orders labels by descending count; ties keep the
// first-appearance order carried by the order slice.
func rankedCounts(order []string, counts map[string]int) []LabeledCount {
	out := make([]LabeledCount, 0, len(order))
	for _, label := range order {
		out = append(out, LabeledCount{Label: label, Count: counts[label]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// meanArrivalInterval averages the gaps between consecutive case starts.
func meanArrivalInterval(starts []time.Time) time.Duration {
	if len(starts) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(starts))
	copy(sorted, starts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	total := sorted[len(sorted)-1].Sub(sorted[0])
	return total / time.Duration(len(sorted)-1)
}

// ActivityCaseCoverage returns the fraction of cases containing the
// target activity. Zero for an empty log.
func ActivityCaseCoverage(log *model.Log, activity string) float64 {
	if len(log.Cases) == 0 {
		return 0
	}
	n := 0
	for _, c := range log.Cases {
		if c.Contains(activity) {
			n++
		}
	}
	return float64(n) / float64(len(log.Cases))
}
