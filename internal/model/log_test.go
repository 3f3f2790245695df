package model

import (
	"testing"
	"time"
)

func TestBuilder_GroupsAndSortsByTimestamp(t *testing.T) {
	b := NewBuilder()
	b.Add(&Event{CaseID: "c1", Activity: "B", Timestamp: 200})
	b.Add(&Event{CaseID: "c2", Activity: "X", Timestamp: 50})
	b.Add(&Event{CaseID: "c1", Activity: "A", Timestamp: 100})

	log := b.Build()

	if len(log.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(log.Cases))
	}
	// Case order follows first appearance.
	if log.Cases[0].ID != "c1" || log.Cases[1].ID != "c2" {
		t.Errorf("unexpected case order: %s, %s", log.Cases[0].ID, log.Cases[1].ID)
	}
	got := log.Cases[0].Activities()
	if got[0] != "A" || got[1] != "B" {
		t.Errorf("case c1 not sorted by timestamp: %v", got)
	}
}

func TestBuilder_StableOrderOnTimestampTies(t *testing.T) {
	b := NewBuilder()
	b.Add(&Event{CaseID: "c1", Activity: "first", Timestamp: 100})
	b.Add(&Event{CaseID: "c1", Activity: "second", Timestamp: 100})
	b.Add(&Event{CaseID: "c1", Activity: "third", Timestamp: 100})

	log := b.Build()
	got := log.Cases[0].Activities()
	want := []string{"first", "second", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order not preserved: got %v, want %v", got, want)
		}
	}
}

func TestBuilder_LiftsCaseAttributes(t *testing.T) {
	b := NewBuilder()
	b.Add(&Event{
		CaseID:   "c1",
		Activity: "A",
		Attributes: []Attribute{
			{Key: "case:LoanGoal", Value: "Car"},
			{Key: "EventOrigin", Value: "Application"},
		},
	})

	log := b.Build()
	c := log.Cases[0]

	if v, ok := c.Attr("LoanGoal"); !ok || v != "Car" {
		t.Errorf("case attribute not lifted: %q, %v", v, ok)
	}
	ev := c.Events[0]
	if _, ok := ev.Attr("case:LoanGoal"); ok {
		t.Error("case attribute should not remain on the event")
	}
	if v, ok := ev.Attr("EventOrigin"); !ok || v != "Application" {
		t.Errorf("event attribute missing: %q, %v", v, ok)
	}
}

func TestBuilder_EmptyCaseIsKept(t *testing.T) {
	b := NewBuilder()
	b.AddCase("empty")
	b.Add(&Event{CaseID: "c1", Activity: "A", Timestamp: 1})

	log := b.Build()
	if len(log.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(log.Cases))
	}
	if got := log.Cases[0].Activities(); len(got) != 0 {
		t.Errorf("empty case should have no activities, got %v", got)
	}
	if !log.Cases[0].Start().IsZero() {
		t.Error("empty case start should be zero time")
	}
}

func TestCase_DurationAndBounds(t *testing.T) {
	start := time.Date(2016, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	b := NewBuilder()
	b.Add(&Event{CaseID: "c1", Activity: "A", Timestamp: start.UnixNano()})
	b.Add(&Event{CaseID: "c1", Activity: "B", Timestamp: end.UnixNano()})

	c := b.Build().Cases[0]
	if !c.Start().Equal(start) {
		t.Errorf("start = %v, want %v", c.Start(), start)
	}
	if !c.End().Equal(end) {
		t.Errorf("end = %v, want %v", c.End(), end)
	}
	if c.Duration() != 90*time.Minute {
		t.Errorf("duration = %v, want 90m", c.Duration())
	}
}

func TestLog_DistinctActivitiesAndResources(t *testing.T) {
	b := NewBuilder()
	b.Add(&Event{CaseID: "c1", Activity: "A", Resource: "u1", Timestamp: 1})
	b.Add(&Event{CaseID: "c1", Activity: "B", Resource: "u2", Timestamp: 2})
	b.Add(&Event{CaseID: "c2", Activity: "A", Resource: "u1", Timestamp: 3})
	b.Add(&Event{CaseID: "c2", Activity: "C", Timestamp: 4})

	log := b.Build()
	if got := log.Activities(); len(got) != 3 {
		t.Errorf("distinct activities = %v, want 3", got)
	}
	if got := log.Resources(); len(got) != 2 {
		t.Errorf("distinct resources = %v, want 2", got)
	}
	if log.EventCount() != 4 {
		t.Errorf("event count = %d, want 4", log.EventCount())
	}
}
