package variants

import (
	"math"
	"reflect"
	"testing"

	"github.com/tracelens/tracelens/internal/model"
)

func caseOf(id string, activities ...string) *model.Case {
	c := &model.Case{ID: id}
	for i, a := range activities {
		c.Events = append(c.Events, model.Event{CaseID: id, Activity: a, Timestamp: int64(i)})
	}
	return c
}

func TestExtract_GroupsEqualSequences(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A", "B"),
		caseOf("c2", "A", "B"),
		caseOf("c3", "A", "C"),
	}

	table := Extract(cases)

	if len(table.Stats) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(table.Stats))
	}
	if table.TotalCases != 3 {
		t.Errorf("total cases = %d, want 3", table.TotalCases)
	}

	ab := table.Stats[0]
	if !reflect.DeepEqual(ab.Activities, []string{"A", "B"}) || ab.Count() != 2 {
		t.Errorf("variant [A B]: %v count %d", ab.Activities, ab.Count())
	}
	if !reflect.DeepEqual(ab.CaseIDs, []string{"c1", "c2"}) {
		t.Errorf("variant [A B] cases = %v", ab.CaseIDs)
	}
	ac := table.Stats[1]
	if !reflect.DeepEqual(ac.Activities, []string{"A", "C"}) || ac.Count() != 1 {
		t.Errorf("variant [A C]: %v count %d", ac.Activities, ac.Count())
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	table := Extract(nil)
	if len(table.Stats) != 0 || table.TotalCases != 0 {
		t.Errorf("empty input should yield empty table, got %+v", table)
	}
}

func TestExtract_CountsSumToCaseTotal(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A"),
		caseOf("c2", "A", "B"),
		caseOf("c3", "A"),
		caseOf("c4", "B"),
		caseOf("c5"),
	}

	table := Extract(cases)
	sum := 0
	for _, s := range table.Stats {
		sum += s.Count()
	}
	if sum != len(cases) {
		t.Errorf("variant counts sum to %d, want %d", sum, len(cases))
	}
}

func TestExtract_EmptyCaseIsDistinctVariant(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A"),
		caseOf("c2"),
		caseOf("c3"),
	}

	table := Extract(cases)
	if len(table.Stats) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(table.Stats))
	}

	var empty *Stat
	for _, s := range table.Stats {
		if len(s.Activities) == 0 {
			empty = s
		}
	}
	if empty == nil {
		t.Fatal("empty-sequence variant missing")
	}
	if empty.Count() != 2 {
		t.Errorf("empty variant count = %d, want 2", empty.Count())
	}
	if empty.Label() != "<empty>" {
		t.Errorf("empty variant label = %q", empty.Label())
	}
}

func TestCoverage_RanksAndAccumulates(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A", "B"),
		caseOf("c2", "A", "B"),
		caseOf("c3", "A", "C"),
	}

	rows, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if !reflect.DeepEqual(first.Activities, []string{"A", "B"}) {
		t.Errorf("rank 1 = %v, want [A B]", first.Activities)
	}
	if first.Count != 2 || first.Cumulative != 2 {
		t.Errorf("rank 1 counts: %d cumulative %d", first.Count, first.Cumulative)
	}
	if math.Abs(first.Coverage-2.0/3.0) > 1e-9 {
		t.Errorf("rank 1 coverage = %f, want 2/3", first.Coverage)
	}

	second := rows[1]
	if !reflect.DeepEqual(second.Activities, []string{"A", "C"}) {
		t.Errorf("rank 2 = %v, want [A C]", second.Activities)
	}
	if math.Abs(second.Coverage-1.0) > 1e-9 {
		t.Errorf("final coverage = %f, want 1.0", second.Coverage)
	}
}

func TestCoverage_NonDecreasingAndReachesOne(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A"),
		caseOf("c2", "A", "B"),
		caseOf("c3", "B"),
		caseOf("c4", "A"),
		caseOf("c5", "C"),
		caseOf("c6", "A", "B", "C"),
	}

	rows, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}

	prev := 0.0
	for _, r := range rows {
		if r.Coverage < prev {
			t.Errorf("coverage decreased at rank %d: %f < %f", r.Rank, r.Coverage, prev)
		}
		prev = r.Coverage
	}
	if math.Abs(prev-1.0) > 1e-9 {
		t.Errorf("final coverage = %f, want 1.0", prev)
	}
}

func TestCoverage_TieBrokenByFirstAppearance(t *testing.T) {
	// Both variants have count 1; [B] appears first in the log and must
	// rank first.
	cases := []*model.Case{
		caseOf("c1", "B"),
		caseOf("c2", "A"),
	}

	rows, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	if rows[0].Activities[0] != "B" || rows[1].Activities[0] != "A" {
		t.Errorf("tie-break wrong: %v then %v", rows[0].Activities, rows[1].Activities)
	}
}

func TestCoverage_Deterministic(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A", "B"),
		caseOf("c2", "C"),
		caseOf("c3", "A", "B"),
		caseOf("c4", "D"),
		caseOf("c5", "C"),
	}

	first, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Coverage(Extract(cases))
		if err != nil {
			t.Fatalf("Coverage failed on rerun: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestCoverage_RejectsInconsistentTable(t *testing.T) {
	table := &Table{
		Stats:      []*Stat{{Activities: []string{"A"}, CaseIDs: []string{"c1"}}},
		TotalCases: 5,
	}
	if _, err := Coverage(table); err == nil {
		t.Error("expected error for counts not summing to case total")
	}
}

func TestCoverageAt(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A"),
		caseOf("c2", "A"),
		caseOf("c3", "B"),
		caseOf("c4", "C"),
	}
	rows, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}

	tests := []struct {
		k    int
		want float64
	}{
		{0, 0},
		{1, 0.5},
		{2, 0.75},
		{3, 1.0},
		{100, 1.0},
	}
	for _, tt := range tests {
		if got := CoverageAt(rows, tt.k); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("CoverageAt(%d) = %f, want %f", tt.k, got, tt.want)
		}
	}
}

func TestSingletonsAndTail(t *testing.T) {
	cases := []*model.Case{
		caseOf("c1", "A"), caseOf("c2", "A"), caseOf("c3", "A"),
		caseOf("c4", "B"), caseOf("c5", "B"),
		caseOf("c6", "C"),
		caseOf("c7", "D"),
	}
	rows, err := Coverage(Extract(cases))
	if err != nil {
		t.Fatalf("Coverage failed: %v", err)
	}

	if got := Singletons(rows); got != 2 {
		t.Errorf("Singletons = %d, want 2", got)
	}
	if got := Tail(rows, 2); got != 3 {
		t.Errorf("Tail(2) = %d, want 3", got)
	}
	if got := Tail(rows, 3); got != 4 {
		t.Errorf("Tail(3) = %d, want 4", got)
	}
}
