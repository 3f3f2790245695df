package parser

import (
	"context"
	"strings"
	"testing"

	"github.com/tracelens/tracelens/internal/model"
)

const sampleXES = `<?xml version="1.0" encoding="UTF-8" ?>
<log xes.version="1.0">
	<trace>
		<string key="concept:name" value="Application_1"/>
		<string key="LoanGoal" value="Car"/>
		<event>
			<string key="concept:name" value="A_Create Application"/>
			<string key="org:resource" value="User_1"/>
			<string key="lifecycle:transition" value="complete"/>
			<date key="time:timestamp" value="2016-01-01T09:51:15.304+01:00"/>
			<string key="EventOrigin" value="Application"/>
		</event>
		<event>
			<string key="concept:name" value="A_Submitted"/>
			<string key="org:resource" value="User_1"/>
			<string key="lifecycle:transition" value="complete"/>
			<date key="time:timestamp" value="2016-01-01T09:51:15.352+01:00"/>
		</event>
	</trace>
	<trace>
		<string key="concept:name" value="Application_2"/>
	</trace>
</log>
`

func parseAll(t *testing.T, p Parser, input string) []*model.Event {
	t.Helper()

	out := make(chan *model.Event, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Parse(context.Background(), strings.NewReader(input), out)
		close(out)
	}()

	var events []*model.Event
	for e := range out {
		events = append(events, e)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return events
}

func TestXESParser_ParsesEventsAndCaseAttributes(t *testing.T) {
	events := parseAll(t, NewXESParser(DefaultConfig()), sampleXES)

	if len(events) != 3 {
		t.Fatalf("expected 3 records (2 events + 1 empty-trace marker), got %d", len(events))
	}

	first := events[0]
	if first.CaseID != "Application_1" {
		t.Errorf("case ID = %q, want Application_1", first.CaseID)
	}
	if first.Activity != "A_Create Application" {
		t.Errorf("activity = %q", first.Activity)
	}
	if first.Resource != "User_1" {
		t.Errorf("resource = %q", first.Resource)
	}
	if first.Lifecycle != model.LifecycleComplete {
		t.Errorf("lifecycle = %q", first.Lifecycle)
	}
	if first.Timestamp == 0 {
		t.Error("timestamp not parsed")
	}
	if v, ok := first.Attr("case:LoanGoal"); !ok || v != "Car" {
		t.Errorf("trace attribute not propagated: %q, %v", v, ok)
	}
	if v, ok := first.Attr("EventOrigin"); !ok || v != "Application" {
		t.Errorf("event attribute missing: %q, %v", v, ok)
	}

	if events[1].Timestamp <= first.Timestamp {
		t.Error("second event should be later than the first")
	}
}

func TestXESParser_EmptyTraceEmitsCaseOnlyMarker(t *testing.T) {
	events := parseAll(t, NewXESParser(DefaultConfig()), sampleXES)

	last := events[len(events)-1]
	if !last.CaseOnly {
		t.Fatal("expected CaseOnly marker for the empty trace")
	}
	if last.CaseID != "Application_2" {
		t.Errorf("marker case ID = %q, want Application_2", last.CaseID)
	}
}

func TestXESParser_UnescapesEntities(t *testing.T) {
	input := `<log>
	<trace>
		<string key="concept:name" value="c1"/>
		<event>
			<string key="concept:name" value="O_Sent (mail &amp; online)"/>
			<date key="time:timestamp" value="2016-01-01T10:00:00.000+01:00"/>
		</event>
	</trace>
</log>`

	events := parseAll(t, NewXESParser(DefaultConfig()), input)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := events[0].Activity; got != "O_Sent (mail & online)" {
		t.Errorf("activity = %q", got)
	}
}

func TestXESParser_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan *model.Event)
	err := NewXESParser(DefaultConfig()).Parse(ctx, strings.NewReader(sampleXES), out)
	if err != ErrContextCanceled {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
}

func TestCSVParser_ParsesFlattenedRows(t *testing.T) {
	input := "case:concept:name,concept:name,time:timestamp,org:resource,lifecycle:transition,LoanGoal\n" +
		"c1,A_Create Application,2016-01-01T09:51:15.304+01:00,User_1,complete,Car\n" +
		"c1,A_Submitted,2016-01-01T09:51:15.352+01:00,User_1,complete,Car\n"

	events := parseAll(t, NewCSVParser(DefaultConfig()), input)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	e := events[0]
	if e.CaseID != "c1" || e.Activity != "A_Create Application" || e.Lifecycle != "complete" {
		t.Errorf("unexpected event: %+v", e)
	}
	if v, ok := e.Attr("LoanGoal"); !ok || v != "Car" {
		t.Errorf("extra column not kept as attribute: %q, %v", v, ok)
	}
}

func TestCSVParser_MissingRequiredColumn(t *testing.T) {
	input := "foo,bar\n1,2\n"

	out := make(chan *model.Event, 1)
	err := NewCSVParser(DefaultConfig()).Parse(context.Background(), strings.NewReader(input), out)
	if err == nil || !strings.Contains(err.Error(), "required column") {
		t.Errorf("expected missing column error, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
	}{
		{"xes", FormatXES},
		{"XES", FormatXES},
		{"csv", FormatCSV},
		{"parquet", FormatUnknown},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.input); got != tt.expected {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}
