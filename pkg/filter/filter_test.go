package filter

import (
	"testing"

	"github.com/tracelens/tracelens/internal/model"
)

func buildLog(add func(b *model.Builder)) *model.Log {
	b := model.NewBuilder()
	add(b)
	return b.Build()
}

func TestCompleteOnly(t *testing.T) {
	log := buildLog(func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Call", Lifecycle: "start", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Call", Lifecycle: "complete", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c2", Activity: "W_Call", Lifecycle: "suspend", Timestamp: 3})
		b.Add(&model.Event{CaseID: "c3", Activity: "A_Submitted", Lifecycle: "complete", Timestamp: 4})
	})

	filtered := CompleteOnly(log)

	// c2 loses all events and disappears; c1 keeps one of two.
	if len(filtered.Cases) != 2 {
		t.Fatalf("expected 2 cases, got %d", len(filtered.Cases))
	}
	if filtered.Cases[0].ID != "c1" || len(filtered.Cases[0].Events) != 1 {
		t.Errorf("case c1 = %+v", filtered.Cases[0])
	}
	// Source untouched.
	if len(log.Cases) != 3 || len(log.Cases[0].Events) != 2 {
		t.Error("source log was modified")
	}
}

func TestContainingAny(t *testing.T) {
	log := buildLog(func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create Application", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Submitted", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c2", Activity: "A_Submitted", Timestamp: 3})
	})

	filtered := ContainingAny(log, "A_Create Application")
	if len(filtered.Cases) != 1 || filtered.Cases[0].ID != "c1" {
		t.Errorf("filtered cases = %v", filtered.Cases)
	}
	// Kept cases retain all events.
	if len(filtered.Cases[0].Events) != 2 {
		t.Errorf("kept case lost events: %d", len(filtered.Cases[0].Events))
	}

	all := ContainingAny(log)
	if len(all.Cases) != 2 {
		t.Errorf("no-activity filter should keep all cases, got %d", len(all.Cases))
	}
}

func TestExcludingAny(t *testing.T) {
	log := buildLog(func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Pending", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c2", Activity: "A_Cancelled", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c3", Activity: "A_Incomplete", Timestamp: 3})
	})

	filtered := ExcludingAny(log, "A_Pending", "A_Cancelled", "A_Declined")
	if len(filtered.Cases) != 1 || filtered.Cases[0].ID != "c3" {
		t.Errorf("filtered cases = %v", filtered.Cases)
	}
}

func TestOpenCases(t *testing.T) {
	log := buildLog(func(b *model.Builder) {
		// c1: created, still open. c2: created but declined. c3: never created.
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create Application", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c2", Activity: "A_Create Application", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c2", Activity: "A_Declined", Timestamp: 3})
		b.Add(&model.Event{CaseID: "c3", Activity: "A_Submitted", Timestamp: 4})
	})

	open := OpenCases(log, "A_Create Application", "A_Pending", "A_Cancelled", "A_Declined")
	if len(open.Cases) != 1 || open.Cases[0].ID != "c1" {
		t.Errorf("open cases = %v", open.Cases)
	}
}
