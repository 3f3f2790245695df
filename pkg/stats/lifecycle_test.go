package stats

import (
	"testing"

	"github.com/tracelens/tracelens/internal/model"
)

func TestPrefixOf(t *testing.T) {
	tests := []struct {
		activity string
		want     PrefixCategory
	}{
		{"W_Validate application", PrefixWorkflow},
		{"A_Create Application", PrefixApplication},
		{"O_Create Offer", PrefixOffer},
		{"Handle leads", PrefixOther},
		{"", PrefixOther},
	}
	for _, tt := range tests {
		if got := PrefixOf(tt.activity); got != tt.want {
			t.Errorf("PrefixOf(%q) = %v, want %v", tt.activity, got, tt.want)
		}
	}
}

func TestAnalyzeLifecycle(t *testing.T) {
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Validate", Lifecycle: "start", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Validate", Lifecycle: "complete", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Submitted", Lifecycle: "complete", Timestamp: 3})
		b.Add(&model.Event{CaseID: "c1", Activity: "O_Created", Timestamp: 4})
	})

	r := AnalyzeLifecycle(log)

	if r.TotalEvents != 4 || r.WithLifecycle != 3 {
		t.Errorf("events = %d with lifecycle %d, want 4/3", r.TotalEvents, r.WithLifecycle)
	}

	byPrefix := make(map[string]int)
	for _, lc := range r.ByPrefix {
		byPrefix[lc.Label] = lc.Count
	}
	if byPrefix["W_"] != 2 || byPrefix["A_"] != 1 || byPrefix["O_"] != 0 {
		t.Errorf("prefix breakdown = %v", byPrefix)
	}

	if r.Transitions[0].Label != "complete" || r.Transitions[0].Count != 2 {
		t.Errorf("top transition = %+v", r.Transitions[0])
	}

	if got := r.ActivitiesWithout[PrefixOffer]; len(got) != 1 || got[0] != "O_Created" {
		t.Errorf("activities without lifecycle = %v", got)
	}
	if got := r.ActivitiesWith[PrefixWorkflow]; len(got) != 1 || got[0] != "W_Validate" {
		t.Errorf("W_ activities with lifecycle = %v", got)
	}
}

func TestCombinedLabel(t *testing.T) {
	if got := CombinedLabel("W_Validate", "start"); got != "W_Validate - start" {
		t.Errorf("combined = %q", got)
	}
	if got := CombinedLabel("A_Submitted", ""); got != "A_Submitted" {
		t.Errorf("combined without lifecycle = %q", got)
	}
}

func TestCombineLifecycle_PreservesStructure(t *testing.T) {
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Validate", Lifecycle: "start", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Submitted", Timestamp: 2})
	})

	combined := CombineLifecycle(log)

	if combined.EventCount() != log.EventCount() {
		t.Fatalf("event count changed: %d != %d", combined.EventCount(), log.EventCount())
	}
	got := combined.Cases[0].Activities()
	if got[0] != "W_Validate - start" || got[1] != "A_Submitted" {
		t.Errorf("combined activities = %v", got)
	}
	// Source log untouched.
	if log.Cases[0].Events[0].Activity != "W_Validate" {
		t.Error("source log was modified")
	}
}

func TestPrefixCounts(t *testing.T) {
	log := buildLog(t, func(b *model.Builder) {
		b.Add(&model.Event{CaseID: "c1", Activity: "A_Create", Timestamp: 1})
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Call", Timestamp: 2})
		b.Add(&model.Event{CaseID: "c1", Activity: "W_Call", Timestamp: 3})
		b.Add(&model.Event{CaseID: "c1", Activity: "misc", Timestamp: 4})
	})

	counts := make(map[string]int)
	for _, lc := range PrefixCounts(log) {
		counts[lc.Label] = lc.Count
	}
	if counts["W_"] != 2 || counts["A_"] != 1 || counts["other"] != 1 || counts["O_"] != 0 {
		t.Errorf("prefix counts = %v", counts)
	}
}
