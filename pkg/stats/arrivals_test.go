package stats

import (
	"testing"
	"time"

	"github.com/tracelens/tracelens/internal/model"
)

func TestArrivalBuckets_PartitionCases(t *testing.T) {
	day := 24 * time.Hour
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A", Timestamp: at(base, 0)})
		b.Add(&model.Event{CaseID: "c2", Activity: "A", Timestamp: at(base, 2*time.Hour)})
		b.Add(&model.Event{CaseID: "c3", Activity: "A", Timestamp: at(base, 3*day)})
		b.Add(&model.Event{CaseID: "c4", Activity: "A", Timestamp: at(base, 15*day)})
		b.AddCase("empty")
	})

	buckets := ArrivalBuckets(log, 7*day, 2)

	if len(buckets) != 3 {
		t.Fatalf("expected 3 weekly buckets, got %d", len(buckets))
	}
	if buckets[0].Count != 3 || buckets[1].Count != 0 || buckets[2].Count != 1 {
		t.Errorf("bucket counts = %d/%d/%d, want 3/0/1",
			buckets[0].Count, buckets[1].Count, buckets[2].Count)
	}

	// Bucket counts sum to the number of non-empty cases.
	sum := 0
	for _, b := range buckets {
		sum += b.Count
	}
	if sum != 4 {
		t.Errorf("bucket sum = %d, want 4", sum)
	}

	if !buckets[0].Start.Equal(base) {
		t.Errorf("first bucket start = %v, want %v", buckets[0].Start, base)
	}
}

func TestArrivalBuckets_RollingMean(t *testing.T) {
	day := 24 * time.Hour
	log := buildLog(t, func(b *model.Builder) {
		// One case per day for four days: counts 1,1,1,1.
		for i := 0; i < 4; i++ {
			b.Add(&model.Event{
				CaseID:    string(rune('a' + i)),
				Activity:  "A",
				Timestamp: at(base, time.Duration(i)*day),
			})
		}
	})

	buckets := ArrivalBuckets(log, day, 2)
	for i, bkt := range buckets {
		if bkt.RollingMean != 1.0 {
			t.Errorf("bucket %d rolling mean = %f, want 1.0", i, bkt.RollingMean)
		}
	}
}

func TestArrivalBuckets_EmptyLog(t *testing.T) {
	if got := ArrivalBuckets(&model.Log{}, 0, 0); got != nil {
		t.Errorf("expected nil buckets for empty log, got %v", got)
	}
}

func TestMeanInterArrival(t *testing.T) {
	arrivals := []time.Time{
		base,
		base.Add(10 * time.Minute),
		base.Add(30 * time.Minute),
	}
	if got := MeanInterArrival(arrivals); got != 15*time.Minute {
		t.Errorf("mean inter-arrival = %v, want 15m", got)
	}
	if got := MeanInterArrival(arrivals[:1]); got != 0 {
		t.Errorf("single arrival should yield 0, got %v", got)
	}
}

func TestFirstOccurrenceTimes(t *testing.T) {
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create Application", Timestamp: at(base, 0)})
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create Application", Timestamp: at(base, time.Hour)})
		b.Add(&model.Event{CaseID: "c2", Activity: "other", Timestamp: at(base, 2*time.Hour)})
	})

	times := FirstOccurrenceTimes(log, "A_Create Application")
	if len(times) != 1 {
		t.Fatalf("expected 1 occurrence time, got %d", len(times))
	}
	if !times[0].Equal(base) {
		t.Errorf("first occurrence = %v, want %v", times[0], base)
	}
}

func TestArrivalLog(t *testing.T) {
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create Application", Timestamp: at(base, time.Hour)})
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Submitted", Timestamp: at(base, 2*time.Hour)})
		b.Add(&model.Event{CaseID: "c2", Activity: "A_Submitted", Timestamp: at(base, 3*time.Hour)})
	})

	reduced := ArrivalLog(log, "A_Create Application")
	if len(reduced.Cases) != 1 {
		t.Fatalf("expected 1 reduced case, got %d", len(reduced.Cases))
	}
	if reduced.Cases[0].ID != "c1" || len(reduced.Cases[0].Events) != 1 {
		t.Errorf("reduced case = %+v", reduced.Cases[0])
	}
}
