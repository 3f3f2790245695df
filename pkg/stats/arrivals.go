package stats

import (
	"time"

	"github.com/tracelens/tracelens/internal/model"
)

// DefaultBucketWidth is the arrival aggregation bucket, one week.
const DefaultBucketWidth = 7 * 24 * time.Hour

// ArrivalBucket counts case starts within one time bucket.
type ArrivalBucket struct {
	Start time.Time
	Count int

	// RollingMean is the trailing mean over the rolling window,
	// including this bucket. Filled by ArrivalBuckets.
	RollingMean float64
}

// ArrivalBuckets aggregates case start times into fixed-width buckets
// aligned to the first arrival, covering the full observed range with
// zero-filled gaps, and annotates a trailing rolling mean. The window
// defaults to max(2, buckets/10), the sizing used for arrival trend
// inspection of the BPI logs. Buckets partition the non-empty case set:
// bucket counts sum to the number of cases with at least one event.
func ArrivalBuckets(log *model.Log, width time.Duration, window int) []ArrivalBucket {
	if width <= 0 {
		width = DefaultBucketWidth
	}

	var first, last time.Time
	var starts []time.Time
	for _, c := range log.Cases {
		if len(c.Events) == 0 {
			continue
		}
		s := c.Start()
		starts = append(starts, s)
		if first.IsZero() || s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	if len(starts) == 0 {
		return nil
	}

	n := int(last.Sub(first)/width) + 1
	buckets := make([]ArrivalBucket, n)
	for i := range buckets {
		buckets[i].Start = first.Add(time.Duration(i) * width)
	}
	for _, s := range starts {
		buckets[int(s.Sub(first)/width)].Count++
	}

	if window <= 0 {
		window = n / 10
		if window < 2 {
			window = 2
		}
	}
	annotateRollingMean(buckets, window)

	return buckets
}

// annotateRollingMean fills the trailing mean over the given window.
func annotateRollingMean(buckets []ArrivalBucket, window int) {
	sum := 0
	for i := range buckets {
		sum += buckets[i].Count
		if i >= window {
			sum -= buckets[i-window].Count
		}
		span := i + 1
		if span > window {
			span = window
		}
		buckets[i].RollingMean = float64(sum) / float64(span)
	}
}

// FirstOccurrenceTimes returns, per case containing the activity, the
// timestamp of its first occurrence, in case order. Used to build the
// reduced arrival log for a creation activity.
func FirstOccurrenceTimes(log *model.Log, activity string) []time.Time {
	var out []time.Time
	for _, c := range log.Cases {
		for i := range c.Events {
			if c.Events[i].Activity == activity {
				out = append(out, time.Unix(0, c.Events[i].Timestamp).UTC())
				break
			}
		}
	}
	return out
}

// MeanInterArrival averages the gaps between consecutive arrival times.
// Zero for fewer than two arrivals.
func MeanInterArrival(arrivals []time.Time) time.Duration {
	return meanArrivalInterval(arrivals)
}

// ArrivalLog reduces a log to one single-event case per arrival time,
// so bucket aggregation can run over a specific activity's occurrences.
func ArrivalLog(log *model.Log, activity string) *model.Log {
	out := &model.Log{}
	for _, c := range log.Cases {
		for i := range c.Events {
			if c.Events[i].Activity == activity {
				out.Cases = append(out.Cases, &model.Case{
					ID:     c.ID,
					Events: []model.Event{c.Events[i]},
				})
				break
			}
		}
	}
	return out
}
